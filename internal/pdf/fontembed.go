package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heomed/docgen/internal/fonts"
)

// embedFont writes the object chain for one font program — FontFile2,
// FontDescriptor, CIDFontType2 descendant and the Type0 dictionary — and
// returns the Type0 object number. Glyph ids map 1:1 to CIDs
// (Identity-H), which matches the shaped runs written by showGlyphs.
func embedFont(w *Writer, h *fonts.Handle, used map[uint16]rune) int {
	data := h.Data()
	fileNum := w.AddStream(fmt.Sprintf(" /Length1 %d", len(data)), data, true)

	name := pdfName(h.PostScriptName())
	bbox := h.BBox()
	descNum := w.AddObject(fmt.Sprintf(
		"<< /Type /FontDescriptor /FontName /%s /Flags 4 /FontBBox [%d %d %d %d] "+
			"/ItalicAngle 0 /Ascent %d /Descent %d /CapHeight %d /StemV 80 /FontFile2 %d 0 R >>",
		name, bbox[0], bbox[1], bbox[2], bbox[3],
		h.Ascent(), h.Descent(), h.CapHeight(), fileNum))

	gids := make([]int, 0, len(used))
	for gid := range used {
		gids = append(gids, int(gid))
	}
	sort.Ints(gids)

	var widths strings.Builder
	for _, gid := range gids {
		fmt.Fprintf(&widths, "%d [%d] ", gid, h.AdvanceUnits(uint16(gid)))
	}

	cidNum := w.AddObject(fmt.Sprintf(
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /%s "+
			"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> "+
			"/FontDescriptor %d 0 R /DW 1000 /W [ %s] /CIDToGIDMap /Identity >>",
		name, descNum, widths.String()))

	toUniNum := w.AddStream("", toUnicodeCMap(gids, used), true)

	return w.AddObject(fmt.Sprintf(
		"<< /Type /Font /Subtype /Type0 /BaseFont /%s /Encoding /Identity-H "+
			"/DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>",
		name, cidNum, toUniNum))
}

// toUnicodeCMap maps glyph ids back to their source runes so text
// extraction and copy/paste work on the rendered document.
func toUnicodeCMap(gids []int, used map[uint16]rune) []byte {
	var b strings.Builder
	b.WriteString("/CIDInit /ProcSet findresource begin\n")
	b.WriteString("12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	fmt.Fprintf(&b, "%d beginbfchar\n", len(gids))
	for _, gid := range gids {
		r := used[uint16(gid)]
		if r > 0xFFFF {
			r = 0xFFFD // basic plane only; glyphs outside it keep a replacement mapping
		}
		fmt.Fprintf(&b, "<%04X> <%04X>\n", gid, r)
	}
	b.WriteString("endbfchar\nendcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return []byte(b.String())
}

// pdfName sanitizes a string for use as a PDF name token.
func pdfName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r > 0x20 && r < 0x7F && r != '/' && r != '%' && r != '(' && r != ')' &&
			r != '<' && r != '>' && r != '[' && r != ']' && r != '{' && r != '}' && r != '#' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Embedded"
	}
	return b.String()
}
