package layout

import (
	"strings"

	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/shaping"
)

// wrapText greedily wraps text into shaped lines no wider than maxW at
// the given size. A single word that cannot fit on a line of its own is
// truncated with an ellipsis and recorded as an overflow warning.
func (b *builder) wrapText(text string, size, maxW float64) ([]shaping.Run, *fonts.Handle, error) {
	script := b.scriptFor(text)
	h, err := b.handleFor(script, false)
	if err != nil {
		return nil, nil, err
	}

	var lines []shaping.Run
	cur := ""
	commit := func() error {
		if cur == "" {
			return nil
		}
		run, err := shaping.Shape(cur, script, h)
		if err != nil {
			return err
		}
		if run.Width(size) > maxW {
			run = b.truncateRun(run, h, size, maxW)
		}
		b.plan.Fallbacks += run.Fallbacks
		lines = append(lines, run)
		cur = ""
		return nil
	}

	for _, word := range strings.Fields(text) {
		cand := word
		if cur != "" {
			cand = cur + " " + word
		}
		run, err := shaping.Shape(cand, script, h)
		if err != nil {
			return nil, nil, err
		}
		if run.Width(size) <= maxW || cur == "" {
			cur = cand
			continue
		}
		if err := commit(); err != nil {
			return nil, nil, err
		}
		cur = word
	}
	if err := commit(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		lines = append(lines, shaping.Run{})
	}
	return lines, h, nil
}

// truncateRun trims glyphs until the run plus an ellipsis fits maxW. RTL
// runs lose glyphs from the visual left, which is the logical end of the
// text.
func (b *builder) truncateRun(run shaping.Run, h *fonts.Handle, size, maxW float64) shaping.Run {
	dotGid, _ := h.GlyphIndex('.')
	dot := shaping.Glyph{ID: dotGid, Rune: '.', AdvanceUnits: h.AdvanceUnits(dotGid)}
	ellipsisW := 3 * float64(dot.AdvanceUnits) * size / 1000

	glyphs := run.Glyphs
	width := func(gs []shaping.Glyph) float64 {
		units := 0
		for _, g := range gs {
			units += g.AdvanceUnits
		}
		return float64(units) * size / 1000
	}
	for len(glyphs) > 0 && width(glyphs)+ellipsisW > maxW {
		if run.Base == shaping.RTL {
			glyphs = glyphs[1:]
		} else {
			glyphs = glyphs[:len(glyphs)-1]
		}
	}

	out := shaping.Run{Base: run.Base}
	dots := []shaping.Glyph{dot, dot, dot}
	if run.Base == shaping.RTL {
		out.Glyphs = append(dots, glyphs...)
	} else {
		out.Glyphs = append(append([]shaping.Glyph{}, glyphs...), dots...)
	}
	for _, g := range out.Glyphs {
		if g.Fallback {
			out.Fallbacks++
		}
	}
	b.plan.Warnings = append(b.plan.Warnings, OverflowWarning{
		Page: len(b.plan.Pages),
		Text: run.Text(),
	})
	logging.Logger().Warn("row content truncated",
		"document", b.doc.ID, "page", len(b.plan.Pages))
	return out
}
