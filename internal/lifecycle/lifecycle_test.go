package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heomed/docgen/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}, &models.LineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDoc(t *testing.T, db *gorm.DB, status models.Status, createdAt time.Time) uint {
	t.Helper()
	doc := models.Document{
		Kind:         models.KindQuotation,
		Status:       status,
		Language:     "en",
		Currency:     "EGP",
		ExchangeRate: decimal.NewFromInt(1),
		ClientName:   "Client",
		CreatedAt:    createdAt,
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return doc.ID
}

func TestMarkPaid(t *testing.T) {
	db := setupTestDB(t)
	m := NewMachine(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := seedDoc(t, db, models.StatusPending, now.AddDate(0, 0, -1))

	if err := m.MarkPaid(context.Background(), id, now); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	var doc models.Document
	if err := db.First(&doc, id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if doc.Status != models.StatusPaid {
		t.Fatalf("status = %s, want Paid", doc.Status)
	}
	if !doc.StatusChangedAt.Equal(now) {
		t.Fatalf("status_changed_at = %v, want %v", doc.StatusChangedAt, now)
	}
}

func TestTransitionFromTerminalState(t *testing.T) {
	db := setupTestDB(t)
	m := NewMachine(db)
	now := time.Now().UTC()
	id := seedDoc(t, db, models.StatusPending, now)

	if err := m.Cancel(context.Background(), id, now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err := m.MarkPaid(context.Background(), id, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("paying a cancelled document: got %v, want ErrInvalidTransition", err)
	}

	// Paid is terminal too.
	id2 := seedDoc(t, db, models.StatusPaid, now)
	if err := m.Cancel(context.Background(), id2, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelling a paid document: got %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionMissingDocument(t *testing.T) {
	db := setupTestDB(t)
	m := NewMachine(db)
	err := m.MarkPaid(context.Background(), 9999, time.Now().UTC())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}

func TestSweepBoundary(t *testing.T) {
	db := setupTestDB(t)
	m := NewMachine(db)
	now := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)

	fresh := seedDoc(t, db, models.StatusPending, now.AddDate(0, 0, -14))
	stale := seedDoc(t, db, models.StatusPending, now.AddDate(0, 0, -16))
	paid := seedDoc(t, db, models.StatusPaid, now.AddDate(0, 0, -30))

	n, err := m.SweepExpired(context.Background(), now, DefaultRetentionDays)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d documents, want 1", n)
	}

	want := map[uint]models.Status{
		fresh: models.StatusPending,
		stale: models.StatusCancelled,
		paid:  models.StatusPaid,
	}
	for id, status := range want {
		var doc models.Document
		if err := db.First(&doc, id).Error; err != nil {
			t.Fatalf("reload %d: %v", id, err)
		}
		if doc.Status != status {
			t.Fatalf("doc %d status = %s, want %s", id, doc.Status, status)
		}
	}
}

func TestSweepIdempotent(t *testing.T) {
	db := setupTestDB(t)
	m := NewMachine(db)
	now := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	seedDoc(t, db, models.StatusPending, now.AddDate(0, 0, -20))

	if n, err := m.SweepExpired(context.Background(), now, DefaultRetentionDays); err != nil || n != 1 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	if n, err := m.SweepExpired(context.Background(), now, DefaultRetentionDays); err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}
