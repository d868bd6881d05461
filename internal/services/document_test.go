package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/layout"
	"github.com/heomed/docgen/internal/lifecycle"
	"github.com/heomed/docgen/internal/models"
)

func setupService(t *testing.T) *DocumentService {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}, &models.LineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fontDir := t.TempDir()
	for name, data := range map[string][]byte{
		"latin-regular.ttf":  goregular.TTF,
		"latin-bold.ttf":     gobold.TTF,
		"arabic-regular.ttf": goregular.TTF,
		"arabic-bold.ttf":    gobold.TTF,
	} {
		if err := os.WriteFile(filepath.Join(fontDir, name), data, 0o644); err != nil {
			t.Fatalf("write font: %v", err)
		}
	}

	engine := layout.NewEngine(fonts.NewManager(fontDir))
	company := layout.CompanyInfo{Name: "HEO", Lines: []string{"HEO", "Cairo, Egypt"}}
	return NewDocumentService(db, engine, lifecycle.NewMachine(db), company, t.TempDir())
}

func validInput() CreateInput {
	return CreateInput{
		Kind:       string(models.KindQuotation),
		Language:   "en",
		Currency:   "EGP",
		ClientName: "Nile Clinic",
		TaxPercent: "14",
		Items: []ItemInput{
			{Description: "Examination table", Quantity: 2, UnitPrice: "50"},
			{Description: "Pulse oximeter", Quantity: 1, UnitPrice: "75"},
		},
	}
}

func TestCreateDocument(t *testing.T) {
	s := setupService(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	doc, err := s.Create(context.Background(), validInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ID == 0 {
		t.Fatalf("no id assigned")
	}
	if doc.Status != models.StatusPending {
		t.Fatalf("status = %s, want Pending", doc.Status)
	}
	if got := doc.Subtotal.StringFixed(2); got != "175.00" {
		t.Fatalf("subtotal = %s, want 175.00", got)
	}
	if got := doc.GrandTotal.StringFixed(2); got != "199.50" {
		t.Fatalf("grand total = %s, want 199.50", got)
	}

	reloaded, err := s.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(reloaded.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(reloaded.Items))
	}
	if reloaded.Items[0].Position != 0 || reloaded.Items[1].Position != 1 {
		t.Fatalf("item positions not preserved: %+v", reloaded.Items)
	}
}

func TestCreateValidation(t *testing.T) {
	s := setupService(t)
	now := time.Now().UTC()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{"missing client", func(in *CreateInput) { in.ClientName = " " }, "client_name"},
		{"bad kind", func(in *CreateInput) { in.Kind = "receipt" }, "kind"},
		{"no items", func(in *CreateInput) { in.Items = nil }, "items"},
		{"bad decimal", func(in *CreateInput) { in.TaxPercent = "abc" }, "tax_percent"},
		{"zero quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(in *CreateInput) { in.Items[1].UnitPrice = "-5" }, "items[1].unit_price"},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := s.Create(context.Background(), in, now)
		var verr *ErrValidation
		if !errors.As(err, &verr) {
			t.Fatalf("%s: got %v, want ErrValidation", tc.name, err)
		}
		if _, ok := verr.Violations[tc.field]; !ok {
			t.Fatalf("%s: violations %v missing field %s", tc.name, verr.Violations, tc.field)
		}
	}

	in := validInput()
	in.Items = make([]ItemInput, models.MaxItems+1)
	for i := range in.Items {
		in.Items[i] = ItemInput{Description: "x", Quantity: 1, UnitPrice: "1"}
	}
	_, err := s.Create(context.Background(), in, now)
	var verr *ErrValidation
	if !errors.As(err, &verr) || verr.Violations["items"] != "too_many_rows" {
		t.Fatalf("oversize item list: got %v", err)
	}
}

func TestRenderDeterministic(t *testing.T) {
	s := setupService(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	doc, err := s.Create(context.Background(), validInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _, err := s.Render(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("render 1: %v", err)
	}
	b, _, err := s.Render(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("render 2: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("renders of the same document differ")
	}
	if !bytes.HasPrefix(a, []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}

func TestRenderToFile(t *testing.T) {
	s := setupService(t)
	now := time.Now().UTC()
	doc, err := s.Create(context.Background(), validInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	path, err := s.RenderToFile(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("render to file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("artifact is not a pdf")
	}

	reloaded, err := s.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.PDFPath != path {
		t.Fatalf("pdf_path = %q, want %q", reloaded.PDFPath, path)
	}
}

func TestRenderMissingDocument(t *testing.T) {
	s := setupService(t)
	if _, _, err := s.Render(context.Background(), 12345); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}
