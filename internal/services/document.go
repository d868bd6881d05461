// Package services holds the business operations behind the HTTP
// handlers: document creation, rendering, and status changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/heomed/docgen/internal/i18n"
	"github.com/heomed/docgen/internal/layout"
	"github.com/heomed/docgen/internal/lifecycle"
	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/models"
	"github.com/heomed/docgen/internal/money"
	"github.com/heomed/docgen/internal/pdf"
	"github.com/heomed/docgen/internal/validation"
)

// ErrValidation wraps field-level violations from document creation.
type ErrValidation struct {
	Violations validation.Violations
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Violations))
}

// ItemInput is one line of a creation request. Money fields travel as
// strings so no float ever touches an amount.
type ItemInput struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// CreateInput is a document creation request.
type CreateInput struct {
	Kind            string      `json:"kind"`
	Language        string      `json:"language"`
	Currency        string      `json:"currency"`
	ExchangeRate    string      `json:"exchange_rate"`
	ClientName      string      `json:"client_name"`
	ClientAddress   string      `json:"client_address"`
	Notes           string      `json:"notes"`
	TaxPercent      string      `json:"tax_percent"`
	DiscountPercent string      `json:"discount_percent"`
	Items           []ItemInput `json:"items"`
}

// DocumentService creates, renders, and transitions documents.
type DocumentService struct {
	db          *gorm.DB
	engine      *layout.Engine
	machine     *lifecycle.Machine
	company     layout.CompanyInfo
	artifactDir string
}

func NewDocumentService(db *gorm.DB, engine *layout.Engine, machine *lifecycle.Machine,
	company layout.CompanyInfo, artifactDir string) *DocumentService {
	return &DocumentService{db: db, engine: engine, machine: machine,
		company: company, artifactDir: artifactDir}
}

// parseAmount reads a decimal field, defaulting empty input.
func parseAmount(field, raw, def string, v validation.Violations) decimal.Decimal {
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v[field] = "not_a_number"
		return decimal.Zero
	}
	return d
}

// Create validates the input, computes totals once for the cached list
// columns, and stores a new Pending document.
func (s *DocumentService) Create(ctx context.Context, in CreateInput, now time.Time) (*models.Document, error) {
	v := validation.Violations{}
	validation.Required("client_name", in.ClientName, v)
	validation.MaxLen("client_name", in.ClientName, 200, v)
	validation.OneOf("kind", in.Kind, []string{
		string(models.KindQuotation), string(models.KindCommercialInvoice), string(models.KindProforma)}, v)
	if in.Currency == "" {
		in.Currency = "EGP"
	}
	validation.MaxLen("currency", in.Currency, 8, v)
	if len(in.Items) == 0 {
		v["items"] = "required"
	}
	if len(in.Items) > models.MaxItems {
		v["items"] = "too_many_rows"
	}

	rate := parseAmount("exchange_rate", in.ExchangeRate, "1", v)
	tax := parseAmount("tax_percent", in.TaxPercent, "0", v)
	discount := parseAmount("discount_percent", in.DiscountPercent, "0", v)

	items := make([]money.Item, 0, len(in.Items))
	for i, it := range in.Items {
		price := parseAmount(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice, "0", v)
		items = append(items, money.Item{Description: it.Description, Quantity: it.Quantity, UnitPrice: price})
	}
	if !v.Empty() {
		return nil, &ErrValidation{Violations: v}
	}

	totals, err := money.ComputeTotals(items, tax, discount, rate)
	if err != nil {
		var verr *money.ValidationError
		if errors.As(err, &verr) {
			field := verr.Field
			if verr.Row >= 0 {
				field = fmt.Sprintf("items[%d].%s", verr.Row, verr.Field)
			}
			v[field] = verr.Reason
			return nil, &ErrValidation{Violations: v}
		}
		return nil, err
	}

	doc := &models.Document{
		Kind:            models.DocumentKind(in.Kind),
		Status:          models.StatusPending,
		Language:        string(i18n.Normalize(in.Language)),
		Currency:        in.Currency,
		ExchangeRate:    rate,
		ClientName:      in.ClientName,
		ClientAddress:   in.ClientAddress,
		Notes:           in.Notes,
		TaxPercent:      tax,
		DiscountPercent: discount,
		Subtotal:        totals.Subtotal,
		GrandTotal:      totals.GrandTotal,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
	for i, it := range in.Items {
		doc.Items = append(doc.Items, models.LineItem{
			Position:    i,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   items[i].UnitPrice,
		})
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	logging.Logger().Info("document created", "id", doc.ID, "kind", in.Kind, "items", len(doc.Items))
	return doc, nil
}

// Get loads a document with its items ordered by position.
func (s *DocumentService) Get(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents newest first, optionally filtered by status.
func (s *DocumentService) List(ctx context.Context, status string) ([]models.Document, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Render recomputes totals from the stored items and produces the PDF
// bytes. Identical documents render to identical bytes.
func (s *DocumentService) Render(ctx context.Context, id uint) ([]byte, *models.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items := make([]money.Item, 0, len(doc.Items))
	for _, it := range doc.Items {
		items = append(items, money.Item{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	totals, err := money.ComputeTotals(items, doc.TaxPercent, doc.DiscountPercent, doc.ExchangeRate)
	if err != nil {
		return nil, nil, fmt.Errorf("render document %d: %w", id, err)
	}
	plan, err := s.engine.Build(doc, totals, s.company)
	if err != nil {
		return nil, nil, fmt.Errorf("render document %d: %w", id, err)
	}
	lang := i18n.Normalize(doc.Language)
	data, err := pdf.Emit(plan, pdf.Info{
		Title:        fmt.Sprintf("%s %06d", i18n.Title(lang, string(doc.Kind)), doc.ID),
		Author:       s.company.Name,
		Subject:      string(doc.Kind),
		CreationDate: doc.CreatedAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("render document %d: %w", id, err)
	}
	return data, doc, nil
}

// RenderToFile renders and persists the artifact under the artifact
// directory, recording its path on the document.
func (s *DocumentService) RenderToFile(ctx context.Context, id uint) (string, error) {
	data, doc, err := s.Render(ctx, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("artifact dir: %w", err)
	}
	name := fmt.Sprintf("%06d-%s.pdf", doc.ID, uuid.NewString())
	path := filepath.Join(s.artifactDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", doc.ID).Update("pdf_path", path).Error; err != nil {
		return "", fmt.Errorf("record artifact path: %w", err)
	}
	logging.Logger().Info("document rendered", "id", doc.ID, "path", path, "bytes", len(data))
	return path, nil
}

// MarkPaid transitions the document to Paid.
func (s *DocumentService) MarkPaid(ctx context.Context, id uint, now time.Time) error {
	return s.machine.MarkPaid(ctx, id, now)
}

// Cancel transitions the document to Cancelled.
func (s *DocumentService) Cancel(ctx context.Context, id uint, now time.Time) error {
	return s.machine.Cancel(ctx, id, now)
}

// Sweep cancels pending documents past the retention window.
func (s *DocumentService) Sweep(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	return s.machine.SweepExpired(ctx, now, retentionDays)
}
