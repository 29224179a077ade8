package certification

import (
	"context"

	domain "makerspace/internal/domain/certification"
)

// Store persists earned certifications.
type Store interface {
	// Grant inserts c unless the user already holds the area; created is false for the no-op case.
	Grant(ctx context.Context, c domain.Certification) (created bool, err error)
	ListByUser(ctx context.Context, userID string) ([]domain.Certification, error)
	// Delete removes certification id from userID, or returns an error wrapping sql.ErrNoRows.
	Delete(ctx context.Context, userID, id string) (domain.Certification, error)
}

var _ Store = (*SQLiteStore)(nil)
