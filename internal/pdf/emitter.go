package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/layout"
)

// Info populates the document information dictionary. CreationDate must
// come from the document record, never from a wall clock, so identical
// inputs yield identical bytes.
type Info struct {
	Title        string
	Author       string
	Subject      string
	CreationDate time.Time
}

const producer = "docgen"

// Emit serializes a page plan and its fonts into a self-contained PDF.
// No side effects: persistence of the returned bytes is the caller's
// concern.
func Emit(plan *layout.PagePlan, info Info) ([]byte, error) {
	if plan == nil || len(plan.Pages) == 0 {
		return nil, fmt.Errorf("pdf: empty page plan")
	}

	w := NewWriter()
	catalogNum := w.Reserve()
	pagesNum := w.Reserve()

	// collect the glyphs each font actually renders
	used := make(map[*fonts.Handle]map[uint16]rune, len(plan.Handles))
	for _, h := range plan.Handles {
		used[h] = make(map[uint16]rune)
	}
	for _, p := range plan.Pages {
		for _, run := range p.Runs {
			m, ok := used[run.Handle]
			if !ok {
				return nil, fmt.Errorf("pdf: run references unregistered font %s-%s",
					run.Handle.Family(), run.Handle.Style())
			}
			for _, g := range run.Glyphs {
				m[g.ID] = g.Rune
			}
		}
	}

	// embed fonts in first-use order; resource names follow that order
	resNames := make(map[*fonts.Handle]string, len(plan.Handles))
	var fontDict strings.Builder
	for i, h := range plan.Handles {
		name := fmt.Sprintf("F%d", i+1)
		resNames[h] = name
		objNum := embedFont(w, h, used[h])
		fmt.Fprintf(&fontDict, "/%s %d 0 R ", name, objNum)
	}
	resources := fmt.Sprintf("<< /Font << %s>> >>", fontDict.String())

	pageNums := make([]int, 0, len(plan.Pages))
	for _, p := range plan.Pages {
		var cs contentStream
		for _, l := range p.Lines {
			cs.stroke(l.X1, l.Y1, l.X2, l.Y2, l.Width)
		}
		for _, run := range p.Runs {
			cs.showGlyphs(resNames[run.Handle], run.Size, run.X, run.Y,
				run.Gray, run.Rotate, run.Glyphs)
		}
		contentNum := w.AddStream("", cs.bytes(), true)
		pageNum := w.AddObject(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.2f %.2f] /Contents %d 0 R /Resources %s >>",
			pagesNum, p.Width, p.Height, contentNum, resources))
		pageNums = append(pageNums, pageNum)
	}

	kids := make([]string, len(pageNums))
	for i, n := range pageNums {
		kids[i] = fmt.Sprintf("%d 0 R", n)
	}
	w.WriteObject(pagesNum, fmt.Sprintf(
		"<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageNums)))
	w.WriteObject(catalogNum, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesNum))

	infoNum := w.AddObject(infoDict(info))
	return w.Finish(catalogNum, infoNum)
}

func infoDict(info Info) string {
	var b strings.Builder
	b.WriteString("<<")
	if info.Title != "" {
		fmt.Fprintf(&b, " /Title (%s)", escapeString(info.Title))
	}
	if info.Author != "" {
		fmt.Fprintf(&b, " /Author (%s)", escapeString(info.Author))
	}
	if info.Subject != "" {
		fmt.Fprintf(&b, " /Subject (%s)", escapeString(info.Subject))
	}
	fmt.Fprintf(&b, " /Producer (%s)", producer)
	if !info.CreationDate.IsZero() {
		fmt.Fprintf(&b, " /CreationDate (D:%s)", info.CreationDate.UTC().Format("20060102150405"))
	}
	b.WriteString(" >>")
	return b.String()
}
