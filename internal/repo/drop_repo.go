// Package repo implements the document store for drops, backed by GORM.
// This file provides SQLStore, the table-per-kind implementation of the
// store contract consumed by services.DropService.
//
// Error semantics:
//   - Missing documents return ErrNotFound.
//   - Primary-key collisions return ErrDuplicate so callers can regenerate
//     the identifier.
//   - Any other driver error is propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/zync-backend/internal/domain"
)

var (
	// ErrNotFound is returned when no drop with the given id exists in the
	// requested kind's namespace.
	ErrNotFound = errors.New("drop not found")

	// ErrDuplicate indicates the drop id is already taken in that namespace.
	ErrDuplicate = errors.New("duplicate drop id")

	// ErrUnknownKind is returned for a kind without a storage namespace.
	ErrUnknownKind = errors.New("unknown drop kind")
)

// SQLStore persists drops in one GORM table per kind. It is safe for
// concurrent use; each call is a single statement.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQLStore wraps db. Call AutoMigrate before first use.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) table(ctx context.Context, kind domain.Kind) (*gorm.DB, error) {
	col := kind.Collection()
	if col == "" {
		return nil, ErrUnknownKind
	}
	return s.DB.WithContext(ctx).Table(col), nil
}

// Insert writes d into kind's table.
func (s *SQLStore) Insert(ctx context.Context, kind domain.Kind, d *domain.Drop) error {
	tx, err := s.table(ctx, kind)
	if err != nil {
		return err
	}
	if err := tx.Create(d).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get fetches a drop by id within kind's table.
func (s *SQLStore) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Drop, error) {
	tx, err := s.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	var d domain.Drop
	if err := tx.Where("id = ?", id).Take(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Kind = kind
	return &d, nil
}

// ListReplies returns every drop replying to parentID, ordered by creation
// time ascending. Equal timestamps fall back to SQLite insertion order
// (rowid), which keeps the thread stable.
func (s *SQLStore) ListReplies(ctx context.Context, kind domain.Kind, parentID string) ([]domain.Drop, error) {
	tx, err := s.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := []domain.Drop{}
	err = tx.
		Where("reply_to = ?", parentID).
		Order("created_at ASC").
		Order("rowid ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Kind = kind
	}
	return out, nil
}

// DeleteExpired removes drops whose ExpiresAt is before nowMillis and
// reports how many rows were deleted.
func (s *SQLStore) DeleteExpired(ctx context.Context, kind domain.Kind, nowMillis int64) (int64, error) {
	tx, err := s.table(ctx, kind)
	if err != nil {
		return 0, err
	}
	res := tx.Where("expires_at < ?", nowMillis).Delete(&domain.Drop{})
	return res.RowsAffected, res.Error
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
