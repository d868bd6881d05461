// Package lifecycle guards document status transitions and runs the
// retention sweep that cancels stale pending documents.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/models"
)

// ErrInvalidTransition is returned when a document is not in a state
// that permits the requested transition. Paid and Cancelled are final.
var ErrInvalidTransition = errors.New("lifecycle: invalid status transition")

// DefaultRetentionDays is how long a pending document may sit before
// the sweep cancels it.
const DefaultRetentionDays = 15

// Machine serializes status transitions through conditional updates so
// concurrent callers cannot move the same document twice.
type Machine struct {
	db       *gorm.DB
	sweeping atomic.Bool
}

func NewMachine(db *gorm.DB) *Machine { return &Machine{db: db} }

// MarkPaid moves a pending document to Paid.
func (m *Machine) MarkPaid(ctx context.Context, id uint, now time.Time) error {
	return m.transition(ctx, id, models.StatusPaid, now)
}

// Cancel moves a pending document to Cancelled.
func (m *Machine) Cancel(ctx context.Context, id uint, now time.Time) error {
	return m.transition(ctx, id, models.StatusCancelled, now)
}

// transition performs the conditional update. The WHERE clause on the
// current status is the whole concurrency story: of two racing callers
// exactly one observes RowsAffected == 1.
func (m *Machine) transition(ctx context.Context, id uint, to models.Status, now time.Time) error {
	res := m.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{
			"status":            to,
			"status_changed_at": now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return fmt.Errorf("lifecycle: transition to %s: %w", to, res.Error)
	}
	if res.RowsAffected == 1 {
		logging.Logger().Info("document status changed", "id", id, "status", string(to))
		return nil
	}

	// No row moved: either the document does not exist or it already
	// left Pending. Distinguish for the caller.
	var doc models.Document
	if err := m.db.WithContext(ctx).Select("id", "status").First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("lifecycle: transition to %s: %w", to, err)
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, to, doc.Status)
}

// SweepExpired cancels every pending document created strictly more
// than retentionDays before now and returns how many it moved. The
// caller supplies now so the cutoff is testable and so a document at
// exactly the boundary day survives. Only one sweep runs at a time;
// overlapping calls return 0 without touching the database.
func (m *Machine) SweepExpired(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if !m.sweeping.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer m.sweeping.Store(false)

	cutoff := now.AddDate(0, 0, -retentionDays)
	res := m.db.WithContext(ctx).Model(&models.Document{}).
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Updates(map[string]any{
			"status":            models.StatusCancelled,
			"status_changed_at": now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("lifecycle: sweep: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logging.Logger().Info("retention sweep cancelled documents",
			"count", res.RowsAffected, "cutoff", cutoff.Format(time.RFC3339))
	}
	return res.RowsAffected, nil
}
