package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
)

var errNoTx = errors.New("transaction required")

// ErrEventNotFound means a bookkeeping update matched no outbox row.
var ErrEventNotFound = errors.New("outbox event not found")

// Repository reads and updates outbox_events. Every method runs on the
// caller's transaction: rows are written next to the order that caused them
// and claimed by the publisher under a row lock.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// ClaimBatch locks up to limit unpublished rows, oldest first, that have
// fewer than maxAttempts failures. SKIP LOCKED lets several publishers run
// without handing out the same row twice.
func (r *Repository) ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := q.Order("created_at ASC, id ASC").
		Limit(limit).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return update(tx, id, map[string]any{
		"published_at": time.Now().UTC(),
		"last_error":   nil,
	})
}

// RecordFailure counts one failed attempt; the row stays claimable.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return update(tx, id, map[string]any{
		"last_error":    failureText(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// Retire sets attempt_count to attempts so ClaimBatch stops returning the
// row. Its copy in the DLQ is what operators replay.
func (r *Repository) Retire(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error {
	return update(tx, id, map[string]any{
		"last_error":    failureText(cause),
		"attempt_count": attempts,
	})
}

func update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}

func failureText(err error) string {
	if err == nil {
		return ""
	}
	return clipError(err.Error())
}
