// Package shaping turns logical text into the visually ordered glyph
// sequence a renderer can draw: Arabic contextual joining, bidirectional
// reordering, and glyph lookup with placeholder fallback.
package shaping

// Script selects the shaping path. Latin is an identity pass.
type Script int

const (
	ScriptLatin Script = iota
	ScriptArabic
)

// Direction of a run or paragraph.
type Direction int

const (
	LTR Direction = iota
	RTL
)

// GlyphSource resolves runes to glyph ids and advance widths. Implemented
// by fonts.Handle; tests substitute stubs.
type GlyphSource interface {
	// GlyphIndex returns the glyph id for r, reporting false when the
	// font has no mapping.
	GlyphIndex(r rune) (uint16, bool)
	// AdvanceUnits returns the advance width of a glyph in 1/1000 em.
	AdvanceUnits(gid uint16) int
}

// Glyph is one positioned glyph of a shaped run.
type Glyph struct {
	ID           uint16
	Rune         rune
	AdvanceUnits int // 1/1000 em
	Fallback     bool
}

// Segment is a maximal sub-run of uniform direction, runes in visual order.
type Segment struct {
	Dir   Direction
	Runes []rune
}

// Run is the shaped form of one contiguous text segment. Glyphs are in
// visual (left-to-right drawing) order. Never persisted; computed per
// render.
type Run struct {
	Base      Direction
	Glyphs    []Glyph
	Fallbacks int
}

// placeholder stands in for codepoints the font cannot map.
const placeholder = 0x25A1 // white square

const fallbackAdvance = 500

// Shape converts logical text into a visually ordered glyph run.
// Empty input yields an empty run. A codepoint the source cannot map is
// replaced by a visible placeholder; shaping never fails for that reason.
func Shape(text string, script Script, src GlyphSource) (Run, error) {
	base := LTR
	if script == ScriptArabic {
		base = RTL
	}
	run := Run{Base: base}
	if text == "" {
		return run, nil
	}

	if script == ScriptLatin {
		for _, r := range text {
			run.append(mapGlyph(r, src))
		}
		return run, nil
	}

	segs, err := visualOrder(reshape([]rune(text)), base)
	if err != nil {
		return Run{}, err
	}
	for _, seg := range segs {
		for _, r := range seg.Runes {
			run.append(mapGlyph(r, src))
		}
	}
	return run, nil
}

func (r *Run) append(g Glyph) {
	r.Glyphs = append(r.Glyphs, g)
	if g.Fallback {
		r.Fallbacks++
	}
}

func mapGlyph(r rune, src GlyphSource) Glyph {
	if gid, ok := src.GlyphIndex(r); ok {
		return Glyph{ID: gid, Rune: r, AdvanceUnits: src.AdvanceUnits(gid)}
	}
	g := Glyph{Rune: r, Fallback: true}
	if gid, ok := src.GlyphIndex(placeholder); ok {
		g.ID = gid
	}
	g.AdvanceUnits = src.AdvanceUnits(g.ID)
	if g.AdvanceUnits == 0 {
		g.AdvanceUnits = fallbackAdvance
	}
	return g
}

// WidthUnits is the summed advance of the run in 1/1000 em.
func (r *Run) WidthUnits() int {
	w := 0
	for _, g := range r.Glyphs {
		w += g.AdvanceUnits
	}
	return w
}

// Width is the run width in points at the given font size.
func (r *Run) Width(size float64) float64 {
	return float64(r.WidthUnits()) * size / 1000
}

// Text returns the runes of the run in visual order, mainly for tests and
// diagnostics.
func (r *Run) Text() string {
	rr := make([]rune, len(r.Glyphs))
	for i, g := range r.Glyphs {
		rr[i] = g.Rune
	}
	return string(rr)
}

// ScriptFor picks the shaping path for a piece of text given the document
// language: Arabic documents and any text containing Arabic letters take
// the Arabic path, everything else stays Latin.
func ScriptFor(text string, rtlDoc bool) Script {
	if rtlDoc || ContainsArabic(text) {
		return ScriptArabic
	}
	return ScriptLatin
}
