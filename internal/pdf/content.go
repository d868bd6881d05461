package pdf

import (
	"bytes"
	"fmt"
	"math"

	"github.com/heomed/docgen/internal/shaping"
)

// contentStream builds the drawing operator sequence for one page.
type contentStream struct {
	buf bytes.Buffer
}

func (c *contentStream) bytes() []byte { return c.buf.Bytes() }

func (c *contentStream) op(format string, args ...any) {
	fmt.Fprintf(&c.buf, format, args...)
	c.buf.WriteByte('\n')
}

// stroke draws a straight segment.
func (c *contentStream) stroke(x1, y1, x2, y2, width float64) {
	c.op("%.2f w", width)
	c.op("%.2f %.2f m", x1, y1)
	c.op("%.2f %.2f l", x2, y2)
	c.op("S")
}

// showGlyphs draws a glyph run at the baseline origin (x, y). Glyph ids
// are written as 2-byte codes for Identity-H encoded Type0 fonts. A
// nonzero rotation turns the text matrix about the origin.
func (c *contentStream) showGlyphs(fontRes string, size, x, y, gray, rotate float64, glyphs []shaping.Glyph) {
	if len(glyphs) == 0 {
		return
	}
	c.op("q")
	c.op("%.3f g", gray)
	c.op("BT")
	c.op("/%s %.2f Tf", fontRes, size)
	if rotate != 0 {
		rad := rotate * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		c.op("%.4f %.4f %.4f %.4f %.2f %.2f Tm", cos, sin, -sin, cos, x, y)
	} else {
		c.op("1 0 0 1 %.2f %.2f Tm", x, y)
	}
	var hex bytes.Buffer
	for _, g := range glyphs {
		fmt.Fprintf(&hex, "%04X", g.ID)
	}
	c.op("<%s> Tj", hex.String())
	c.op("ET")
	c.op("Q")
}
