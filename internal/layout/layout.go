// Package layout turns a document, its computed totals and the font
// metrics into a deterministic page plan of drawing instructions.
package layout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/i18n"
	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/models"
	"github.com/heomed/docgen/internal/money"
	"github.com/heomed/docgen/internal/shaping"
)

// A4 in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89

	marginX      = 40.0
	marginTop    = 50.0
	marginBottom = 60.0

	companySize = 8.0
	titleSize   = 16.0
	metaSize    = 10.0
	tableSize   = 9.0
	totalsSize  = 10.0
	grandSize   = 11.0

	rowLeading  = 12.0
	metaLeading = 14.0
	cellPadX    = 4.0
	cellPadY    = 3.0

	watermarkSize = 56.0
	watermarkGray = 0.88
)

// TextRun is one positioned glyph sequence; X,Y is the left end of the
// baseline in PDF coordinates (origin bottom-left).
type TextRun struct {
	X, Y   float64
	Size   float64
	Gray   float64
	Rotate float64 // degrees, counter-clockwise about (X, Y)
	Handle *fonts.Handle
	Glyphs []shaping.Glyph
}

// Line is a stroked segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Width          float64
}

// Page is the plan for one output page.
type Page struct {
	Width, Height float64
	Runs          []TextRun
	Lines         []Line
}

// OverflowWarning records a row that had to be truncated with an ellipsis
// because no amount of wrapping could fit it. Non-fatal.
type OverflowWarning struct {
	Page int
	Text string
}

// PagePlan is the full, renderer-independent drawing plan.
type PagePlan struct {
	Pages     []*Page
	Handles   []*fonts.Handle // fonts used, in first-use order
	Fallbacks int
	Warnings  []OverflowWarning
}

// CompanyInfo is the static header band content.
type CompanyInfo struct {
	Name  string
	Lines []string
}

// Engine lays out documents against a shared font cache.
type Engine struct {
	fonts *fonts.Manager
}

func NewEngine(m *fonts.Manager) *Engine { return &Engine{fonts: m} }

type column struct {
	key   string
	width float64 // 0 = flexible
}

// alignment anchors for text placement
const (
	alignLeft = iota
	alignRight
	alignCenter
)

type builder struct {
	eng     *Engine
	doc     *models.Document
	totals  money.Totals
	company CompanyInfo
	lang    i18n.Lang
	rtl     bool

	plan     *PagePlan
	page     *Page
	y        float64
	tableTop float64
	cols     []column
	colX     []float64 // len(cols)+1 boundaries, left to right
}

// Build is pure given its inputs: the same document, totals and font
// metrics always produce the same plan. The only date that appears is the
// document's stored creation timestamp.
func (e *Engine) Build(doc *models.Document, totals money.Totals, company CompanyInfo) (*PagePlan, error) {
	b := &builder{
		eng:     e,
		doc:     doc,
		totals:  totals,
		company: company,
		lang:    i18n.Normalize(doc.Language),
		plan:    &PagePlan{},
	}
	b.rtl = b.lang.RTL()
	b.computeColumns()
	b.startPage()

	if err := b.header(); err != nil {
		return nil, err
	}
	if err := b.clientBlock(); err != nil {
		return nil, err
	}
	if err := b.itemTable(); err != nil {
		return nil, err
	}
	if err := b.totalsBlock(); err != nil {
		return nil, err
	}
	if err := b.notesBlock(); err != nil {
		return nil, err
	}
	if b.plan.Fallbacks > 0 {
		logging.Logger().Warn("glyph fallbacks during layout",
			"document", doc.ID, "count", b.plan.Fallbacks)
	}
	return b.plan, nil
}

func (b *builder) computeColumns() {
	contentW := PageWidth - 2*marginX
	fixed := []column{
		{key: "qty", width: 50},
		{key: "unit_price", width: 85},
		{key: "line_total", width: 85},
	}
	descW := contentW - (50 + 85 + 85)
	cols := append([]column{{key: "item", width: descW}}, fixed...)
	if b.rtl {
		// mirror the column order; values and row order stay unchanged
		for i, j := 0, len(cols)-1; i < j; i, j = i+1, j-1 {
			cols[i], cols[j] = cols[j], cols[i]
		}
	}
	b.cols = cols
	b.colX = make([]float64, len(cols)+1)
	x := marginX
	for i, c := range cols {
		b.colX[i] = x
		x += c.width
	}
	b.colX[len(cols)] = x
}

func (b *builder) startPage() {
	p := &Page{Width: PageWidth, Height: PageHeight}
	b.plan.Pages = append(b.plan.Pages, p)
	b.page = p
	b.y = PageHeight - marginTop
	b.tableTop = 0
	b.watermark()
}

// watermark draws the company name diagonally across the page.
func (b *builder) watermark() {
	if b.company.Name == "" {
		return
	}
	h, err := b.handleFor(shaping.ScriptLatin, true)
	if err != nil {
		return // reported by the first real text run instead
	}
	run, err := shaping.Shape(b.company.Name, shaping.ScriptLatin, h)
	if err != nil || len(run.Glyphs) == 0 {
		return
	}
	w := run.Width(watermarkSize)
	b.page.Runs = append(b.page.Runs, TextRun{
		X:      PageWidth/2 - w/2*0.7071,
		Y:      PageHeight/2 - w/2*0.7071,
		Size:   watermarkSize,
		Gray:   watermarkGray,
		Rotate: 45,
		Handle: h,
		Glyphs: run.Glyphs,
	})
	b.plan.Fallbacks += run.Fallbacks
}

func (b *builder) handleFor(script shaping.Script, bold bool) (*fonts.Handle, error) {
	family := fonts.FamilyLatin
	if script == shaping.ScriptArabic {
		family = fonts.FamilyArabic
	}
	style := fonts.StyleRegular
	if bold {
		style = fonts.StyleBold
	}
	h, err := b.eng.fonts.Load(family, style)
	if err != nil {
		return nil, err
	}
	b.addHandle(h)
	return h, nil
}

func (b *builder) addHandle(h *fonts.Handle) {
	for _, have := range b.plan.Handles {
		if have == h {
			return
		}
	}
	b.plan.Handles = append(b.plan.Handles, h)
}

// scriptFor picks the shaping path from the text content: anything
// containing Arabic letters takes the Arabic path; Latin and numeric
// strings stay left-to-right even inside an RTL document.
func (b *builder) scriptFor(text string) shaping.Script {
	if shaping.ContainsArabic(text) {
		return shaping.ScriptArabic
	}
	if b.rtl && !latinOnly(text) {
		return shaping.ScriptArabic
	}
	return shaping.ScriptLatin
}

func (b *builder) shape(text string, bold bool) (shaping.Run, *fonts.Handle, error) {
	script := b.scriptFor(text)
	h, err := b.handleFor(script, bold)
	if err != nil {
		return shaping.Run{}, nil, err
	}
	run, err := shaping.Shape(text, script, h)
	if err != nil {
		return shaping.Run{}, nil, err
	}
	b.plan.Fallbacks += run.Fallbacks
	return run, h, nil
}

// latinOnly reports strings of ASCII letters, digits and punctuation,
// which render left-to-right even inside an RTL document.
func latinOnly(s string) bool {
	for _, r := range s {
		if r > 0x24F {
			return false
		}
	}
	return true
}

// text shapes and places a string; x is the anchor per align.
func (b *builder) text(x, y float64, s string, size float64, bold bool, align int) error {
	if s == "" {
		return nil
	}
	run, h, err := b.shape(s, bold)
	if err != nil {
		return err
	}
	b.placeRun(run, h, x, y, size, align)
	return nil
}

func (b *builder) placeRun(run shaping.Run, h *fonts.Handle, x, y, size float64, align int) {
	w := run.Width(size)
	switch align {
	case alignRight:
		x -= w
	case alignCenter:
		x -= w / 2
	}
	b.page.Runs = append(b.page.Runs, TextRun{
		X: x, Y: y, Size: size, Handle: h, Glyphs: run.Glyphs,
	})
}

func (b *builder) line(x1, y1, x2, y2, w float64) {
	b.page.Lines = append(b.page.Lines, Line{X1: x1, Y1: y1, X2: x2, Y2: y2, Width: w})
}

// header draws the company band and the centred document title.
func (b *builder) header() error {
	for _, l := range b.company.Lines {
		if err := b.text(marginX, b.y, l, companySize, false, alignLeft); err != nil {
			return err
		}
		b.y -= rowLeading
	}
	b.y -= 18
	title := i18n.Title(b.lang, string(b.doc.Kind))
	if err := b.text(PageWidth/2, b.y, title, titleSize, true, alignCenter); err != nil {
		return err
	}
	b.y -= 2 * metaLeading
	return nil
}

// clientBlock draws the client reference and date stamp.
func (b *builder) clientBlock() error {
	anchor := marginX
	align := alignLeft
	if b.rtl {
		anchor = PageWidth - marginX
		align = alignRight
	}
	rows := []struct{ label, value string }{
		{i18n.T(b.lang, "document_no"), fmt.Sprintf("%06d", b.doc.ID)},
		{i18n.T(b.lang, "client"), b.doc.ClientName},
		{i18n.T(b.lang, "date"), b.doc.CreatedAt.Format("2006-01-02")},
	}
	if b.doc.ClientAddress != "" {
		rows = append(rows, struct{ label, value string }{"", b.doc.ClientAddress})
	}
	for _, row := range rows {
		s := row.value
		if row.label != "" {
			s = row.label + ": " + row.value
		}
		if err := b.text(anchor, b.y, s, metaSize, false, align); err != nil {
			return err
		}
		b.y -= metaLeading
	}
	b.y -= metaLeading
	return nil
}

func (b *builder) cellValue(it models.LineItem, key string) string {
	switch key {
	case "item":
		return it.Description
	case "qty":
		return fmt.Sprintf("%d", it.Quantity)
	case "unit_price":
		return money.Display(it.UnitPrice)
	case "line_total":
		return money.Display(money.LineTotal(money.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice}))
	}
	return ""
}

// tableHeaderRow emits the bold column captions; repeated after a page
// break.
func (b *builder) tableHeaderRow() error {
	if b.tableTop == 0 {
		b.tableTop = b.y
	}
	top := b.y
	b.y -= rowLeading + cellPadY
	for i, c := range b.cols {
		if err := b.cell(i, i18n.T(b.lang, c.key), true); err != nil {
			return err
		}
	}
	b.line(marginX, top, PageWidth-marginX, top, 0.8)
	b.y -= cellPadY
	b.line(marginX, b.y, PageWidth-marginX, b.y, 0.8)
	b.y -= cellPadY
	return nil
}

// cell places single-line text inside column i at the current row
// baseline. Description cells align with the reading direction, numeric
// cells align right.
func (b *builder) cell(i int, s string, bold bool) error {
	c := b.cols[i]
	left := b.colX[i] + cellPadX
	right := b.colX[i+1] - cellPadX
	x := left
	align := alignLeft
	if c.key != "item" {
		x = right
		align = alignRight
	} else if b.rtl {
		x = right
		align = alignRight
	}
	return b.text(x, b.y, s, tableSize, bold, align)
}

// itemTable lays the line items out with per-row wrapping and page-break
// handling; the header row re-appears on every page the table spans.
func (b *builder) itemTable() error {
	if err := b.tableHeaderRow(); err != nil {
		return err
	}
	descIdx := 0
	for i, c := range b.cols {
		if c.key == "item" {
			descIdx = i
		}
	}
	descW := b.cols[descIdx].width - 2*cellPadX

	for _, it := range b.doc.Items {
		if strings.TrimSpace(it.Description) == "" {
			continue
		}
		lines, h, err := b.wrapText(it.Description, tableSize, descW)
		if err != nil {
			return err
		}
		rowH := float64(len(lines))*rowLeading + 2*cellPadY
		if b.y-rowH < marginBottom {
			b.closeTableGrid()
			b.startPage()
			if err := b.tableHeaderRow(); err != nil {
				return err
			}
		}
		rowTop := b.y
		b.y -= rowLeading
		// description lines
		descX := b.colX[descIdx] + cellPadX
		descAlign := alignLeft
		if b.rtl {
			descX = b.colX[descIdx+1] - cellPadX
			descAlign = alignRight
		}
		y := b.y
		for _, ln := range lines {
			b.placeRun(ln, h, descX, y, tableSize, descAlign)
			y -= rowLeading
		}
		// numeric cells on the first line of the row
		for i, c := range b.cols {
			if c.key == "item" {
				continue
			}
			if err := b.cell(i, b.cellValue(it, c.key), false); err != nil {
				return err
			}
		}
		b.y = rowTop - rowH
		b.line(marginX, b.y, PageWidth-marginX, b.y, 0.4)
	}
	b.closeTableGrid()
	b.y -= metaLeading
	return nil
}

// closeTableGrid strokes the vertical column rules for the table span on
// the current page.
func (b *builder) closeTableGrid() {
	if b.tableTop == 0 {
		return
	}
	for _, x := range b.colX {
		b.line(x, b.tableTop, x, b.y, 0.4)
	}
	b.tableTop = 0
}

// totalsBlock draws subtotal, discount, tax and the grand total. The
// numerals stay left-to-right even in Arabic mode; in Arabic mode the
// block mirrors to the left edge of the page.
func (b *builder) totalsBlock() error {
	// value column is 120pt wide; the block sits at the right edge for
	// English and mirrors to the left edge for Arabic
	valueRight := PageWidth - marginX
	labelRight := valueRight - 130.0
	if b.rtl {
		valueRight = marginX + 120
		labelRight = valueRight + 170
	}

	type totalRow struct {
		key    string
		amount decimal.Decimal
		bold   bool
		size   float64
	}
	rows := []totalRow{{"subtotal", b.totals.Subtotal, false, totalsSize}}
	if b.totals.Discount.Sign() != 0 {
		rows = append(rows, totalRow{"discount", b.totals.Discount.Neg(), false, totalsSize})
	}
	if b.totals.Tax.Sign() != 0 {
		rows = append(rows, totalRow{"tax", b.totals.Tax, false, totalsSize})
	}
	rows = append(rows, totalRow{"grand_total", b.totals.GrandTotal, true, grandSize})

	if b.y-float64(len(rows)+1)*metaLeading < marginBottom {
		b.startPage()
	}
	for _, row := range rows {
		if err := b.text(labelRight, b.y, i18n.T(b.lang, row.key), row.size, row.bold, alignRight); err != nil {
			return err
		}
		amount := money.Display(row.amount) + " " + b.doc.Currency
		if err := b.text(valueRight, b.y, amount, row.size, row.bold, alignRight); err != nil {
			return err
		}
		b.y -= metaLeading
	}
	// converted presentation when an exchange rate applies
	if !b.totals.ExchangeRate.Equal(decimal.NewFromInt(1)) {
		conv := b.totals.DisplayConverted(b.totals.GrandTotal) +
			" @ " + b.totals.ExchangeRate.String()
		if err := b.text(valueRight, b.y, conv, companySize, false, alignRight); err != nil {
			return err
		}
		b.y -= metaLeading
	}
	b.y -= metaLeading
	return nil
}

// notesBlock renders free-text notes below the totals, wrapped to the
// content width.
func (b *builder) notesBlock() error {
	notes := strings.TrimSpace(b.doc.Notes)
	if notes == "" {
		return nil
	}
	anchor := marginX
	align := alignLeft
	if b.rtl {
		anchor = PageWidth - marginX
		align = alignRight
	}
	if b.y-2*metaLeading < marginBottom {
		b.startPage()
	}
	if err := b.text(anchor, b.y, i18n.T(b.lang, "notes"), metaSize, true, align); err != nil {
		return err
	}
	b.y -= metaLeading
	lines, h, err := b.wrapText(notes, tableSize, PageWidth-2*marginX)
	if err != nil {
		return err
	}
	descX := anchor
	for _, ln := range lines {
		if b.y < marginBottom {
			b.startPage()
		}
		b.placeRun(ln, h, descX, b.y, tableSize, align)
		b.y -= rowLeading
	}
	return nil
}
