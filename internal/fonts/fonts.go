// Package fonts loads and caches the embeddable font programs used for
// rendering, and exposes the glyph metrics the layout engine needs.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Family is the script-level font family.
type Family string

const (
	FamilyLatin  Family = "latin"
	FamilyArabic Family = "arabic"
)

// Style is the face style within a family.
type Style string

const (
	StyleRegular Style = "regular"
	StyleBold    Style = "bold"
)

// FontUnavailableError is fatal for the whole render session: a configured
// font file is missing or unparsable. Distinct from per-glyph fallback,
// which never aborts a render.
type FontUnavailableError struct {
	Family Family
	Style  Style
	Path   string
	Err    error
}

func (e *FontUnavailableError) Error() string {
	return fmt.Sprintf("font unavailable: %s-%s (%s): %v", e.Family, e.Style, e.Path, e.Err)
}

func (e *FontUnavailableError) Unwrap() error { return e.Err }

// Handle is one parsed font program. Safe for concurrent use; glyph
// lookups are memoized.
type Handle struct {
	family Family
	style  Style
	data   []byte
	fnt    *sfnt.Font
	upem   int
	psName string

	// descriptor metrics, 1/1000 em
	ascent, descent, capHeight int
	bbox                       [4]int

	mu      sync.Mutex
	buf     sfnt.Buffer
	widths  map[uint16]int
	mapping map[rune]uint16
}

func (h *Handle) Family() Family { return h.family }
func (h *Handle) Style() Style   { return h.style }

// Data returns the raw font program for embedding.
func (h *Handle) Data() []byte { return h.data }

func (h *Handle) PostScriptName() string { return h.psName }

// Ascent, Descent and CapHeight are in 1/1000 em. Descent is negative.
func (h *Handle) Ascent() int    { return h.ascent }
func (h *Handle) Descent() int   { return h.descent }
func (h *Handle) CapHeight() int { return h.capHeight }

// BBox is the font bounding box [llx lly urx ury] in 1/1000 em.
func (h *Handle) BBox() [4]int { return h.bbox }

// GlyphIndex resolves a rune to its glyph id, reporting false when the
// font has no mapping for it.
func (h *Handle) GlyphIndex(r rune) (uint16, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gid, ok := h.mapping[r]; ok {
		return gid, gid != 0
	}
	gi, err := h.fnt.GlyphIndex(&h.buf, r)
	if err != nil {
		gi = 0
	}
	h.mapping[r] = uint16(gi)
	return uint16(gi), gi != 0
}

// AdvanceUnits returns a glyph's advance width in 1/1000 em.
func (h *Handle) AdvanceUnits(gid uint16) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.widths[gid]; ok {
		return w
	}
	adv, err := h.fnt.GlyphAdvance(&h.buf, sfnt.GlyphIndex(gid), fixed.I(h.upem), font.HintingNone)
	w := 0
	if err == nil {
		// at ppem == upem the 26.6 value is the advance in font units
		w = adv.Round() * 1000 / h.upem
	}
	h.widths[gid] = w
	return w
}

type cacheKey struct {
	family Family
	style  Style
}

// Manager is a populate-once, read-many cache of font handles keyed by
// family and style. A race to load the same face converges on a single
// handle.
type Manager struct {
	dir   string
	mu    sync.RWMutex
	cache map[cacheKey]*Handle
}

// NewManager serves fonts from dir, expecting files named
// <family>-<style>.ttf.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, cache: make(map[cacheKey]*Handle)}
}

// Load returns the cached handle for family+style, parsing the font file
// on first use. Missing or corrupt files yield FontUnavailableError.
func (m *Manager) Load(family Family, style Style) (*Handle, error) {
	key := cacheKey{family, style}
	m.mu.RLock()
	h, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.cache[key]; ok {
		return h, nil
	}
	path := filepath.Join(m.dir, fmt.Sprintf("%s-%s.ttf", family, style))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FontUnavailableError{Family: family, Style: style, Path: path, Err: err}
	}
	h, err = parse(family, style, data)
	if err != nil {
		return nil, &FontUnavailableError{Family: family, Style: style, Path: path, Err: err}
	}
	m.cache[key] = h
	return h, nil
}

// Reset drops all cached handles, forcing reparse on next Load.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.cache = make(map[cacheKey]*Handle)
	m.mu.Unlock()
}

func parse(family Family, style Style, data []byte) (*Handle, error) {
	fnt, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		family:  family,
		style:   style,
		data:    data,
		fnt:     fnt,
		upem:    int(fnt.UnitsPerEm()),
		widths:  make(map[uint16]int),
		mapping: make(map[rune]uint16),
	}
	if h.upem == 0 {
		h.upem = 1000
	}
	if name, err := fnt.Name(&h.buf, sfnt.NameIDPostScript); err == nil {
		h.psName = name
	} else {
		h.psName = fmt.Sprintf("%s-%s", family, style)
	}
	ppem := fixed.I(h.upem)
	if met, err := fnt.Metrics(&h.buf, ppem, font.HintingNone); err == nil {
		h.ascent = met.Ascent.Round() * 1000 / h.upem
		h.descent = -met.Descent.Round() * 1000 / h.upem
		h.capHeight = met.CapHeight.Round() * 1000 / h.upem
	}
	if h.capHeight == 0 {
		h.capHeight = h.ascent
	}
	if bounds, err := fnt.Bounds(&h.buf, ppem, font.HintingNone); err == nil {
		// sfnt bounds are y-down; flip for PDF's y-up descriptor box
		h.bbox = [4]int{
			bounds.Min.X.Round() * 1000 / h.upem,
			-bounds.Max.Y.Round() * 1000 / h.upem,
			bounds.Max.X.Round() * 1000 / h.upem,
			-bounds.Min.Y.Round() * 1000 / h.upem,
		}
	}
	return h, nil
}
