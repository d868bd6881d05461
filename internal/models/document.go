package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the closed set of commercial document types.
type DocumentKind string

const (
	KindQuotation         DocumentKind = "quotation"
	KindCommercialInvoice DocumentKind = "commercial_invoice"
	KindProforma          DocumentKind = "proforma"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case KindQuotation, KindCommercialInvoice, KindProforma:
		return true
	}
	return false
}

// Status is the document lifecycle state. Paid and Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Terminal() bool { return s == StatusPaid || s == StatusCancelled }

// Document is one quotation / commercial invoice / proforma with its items.
// Client data is a denormalized display snapshot owned by the external
// client-management service; this core never joins against it.
type Document struct {
	ID           uint         `gorm:"primaryKey"`
	Kind         DocumentKind `gorm:"not null;default:'quotation'"`
	Status       Status       `gorm:"not null;default:'Pending';index"`
	Language     string       `gorm:"not null;default:'en'"` // "en" | "ar"
	Currency     string       `gorm:"not null;default:'EGP'"`
	ExchangeRate decimal.Decimal `gorm:"type:numeric;not null;default:1"`

	Items []LineItem `gorm:"foreignKey:DocumentID"`

	ClientName    string
	ClientAddress string
	Notes         string

	TaxPercent      decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric;not null;default:0"`

	// Cached totals for list views only; renders always recompute from items.
	Subtotal   decimal.Decimal `gorm:"type:numeric"`
	GrandTotal decimal.Decimal `gorm:"type:numeric"`

	// Opaque reference to the last rendered artifact, empty until rendered.
	PDFPath string

	CreatedAt       time.Time
	StatusChangedAt time.Time
	UpdatedAt       time.Time
}

// LineItem is one row of a document. Immutable once the document leaves
// composition; this core only ever reads persisted items.
type LineItem struct {
	ID          uint `gorm:"primaryKey"`
	DocumentID  uint `gorm:"not null;index"`
	Position    int  `gorm:"not null"`
	Description string
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null"`
}

// MaxItems is the practical cap on rows per document.
const MaxItems = 50
