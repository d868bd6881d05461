package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/layout"
	"github.com/heomed/docgen/internal/models"
	"github.com/heomed/docgen/internal/money"
)

func testPlan(t *testing.T, n int) *layout.PagePlan {
	t.Helper()
	dir := t.TempDir()
	for name, data := range map[string][]byte{
		"latin-regular.ttf":  goregular.TTF,
		"latin-bold.ttf":     gobold.TTF,
		"arabic-regular.ttf": goregular.TTF,
		"arabic-bold.ttf":    gobold.TTF,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write font: %v", err)
		}
	}
	doc := &models.Document{
		ID:         12,
		Kind:       models.KindCommercialInvoice,
		Language:   "en",
		Currency:   "USD",
		ClientName: "ACME Corp",
		CreatedAt:  time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
	}
	items := make([]money.Item, 0, n)
	for i := 0; i < n; i++ {
		doc.Items = append(doc.Items, models.LineItem{
			Position: i, Description: "Sterile gauze pack, large size, lot 44-A",
			Quantity: 3, UnitPrice: decimal.NewFromInt(int64(10 + i)),
		})
		items = append(items, money.Item{Description: "x", Quantity: 3, UnitPrice: decimal.NewFromInt(int64(10 + i))})
	}
	totals, err := money.ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	eng := layout.NewEngine(fonts.NewManager(dir))
	plan, err := eng.Build(doc, totals, layout.CompanyInfo{Name: "HEO", Lines: []string{"HEO", "Cairo, Egypt"}})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return plan
}

func testInfo() Info {
	return Info{
		Title:        "Commercial Invoice 000012",
		Author:       "HEO",
		CreationDate: time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
	}
}

func TestEmitValidContainer(t *testing.T) {
	data, err := Emit(testPlan(t, 3), testInfo())
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.5")) {
		t.Fatalf("missing header: %q", data[:16])
	}
	if !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Fatalf("missing trailer terminator")
	}
	for _, marker := range []string{"/Type /Catalog", "/Type /Pages", "/Type /Page ",
		"/FlateDecode", "/Identity-H", "/FontFile2", "/Producer (docgen)"} {
		if !bytes.Contains(data, []byte(marker)) {
			t.Fatalf("output missing %q", marker)
		}
	}
}

func TestEmitStartXrefOffset(t *testing.T) {
	data, err := Emit(testPlan(t, 2), testInfo())
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	s := string(data)
	i := strings.LastIndex(s, "startxref\n")
	if i < 0 {
		t.Fatalf("no startxref")
	}
	rest := s[i+len("startxref\n"):]
	end := strings.IndexByte(rest, '\n')
	off, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		t.Fatalf("bad startxref value: %v", err)
	}
	if !strings.HasPrefix(s[off:], "xref\n") {
		t.Fatalf("startxref %d does not point at the xref table", off)
	}
}

func TestEmitDeterministic(t *testing.T) {
	plan := testPlan(t, models.MaxItems)
	a, err := Emit(plan, testInfo())
	if err != nil {
		t.Fatalf("emit 1: %v", err)
	}
	b, err := Emit(plan, testInfo())
	if err != nil {
		t.Fatalf("emit 2: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("identical plans produced different bytes")
	}
}

func TestEmitMultiPage(t *testing.T) {
	data, err := Emit(testPlan(t, models.MaxItems), testInfo())
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	count := bytes.Count(data, []byte("/Type /Page "))
	if count < 2 {
		t.Fatalf("expected multi-page pdf, found %d pages", count)
	}
}

func TestEmitEmptyPlan(t *testing.T) {
	if _, err := Emit(&layout.PagePlan{}, testInfo()); err == nil {
		t.Fatalf("expected error for empty plan")
	}
	if _, err := Emit(nil, testInfo()); err == nil {
		t.Fatalf("expected error for nil plan")
	}
}

func TestWriterXref(t *testing.T) {
	w := NewWriter()
	n1 := w.AddObject("<< /Answer 42 >>")
	data, err := w.Finish(n1, 0)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !bytes.Contains(data, []byte("<< /Answer 42 >>")) {
		t.Fatalf("object body missing")
	}
	if !bytes.Contains(data, []byte("0000000000 65535 f ")) {
		t.Fatalf("free entry missing")
	}
}

func TestWriterDetectsUnwrittenObjects(t *testing.T) {
	w := NewWriter()
	root := w.AddObject("<< >>")
	w.Reserve() // never written
	if _, err := w.Finish(root, 0); err == nil {
		t.Fatalf("expected error for reserved-but-unwritten object")
	}
}
