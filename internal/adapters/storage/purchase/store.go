package purchase

import (
	"context"

	domain "makerspace/internal/domain/purchase"
)

// Store persists manually tracked purchases.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Purchase, error)
	Save(ctx context.Context, value domain.Purchase) error
	Delete(ctx context.Context, userID, id string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Purchase, error)
}

var _ Store = (*SQLiteStore)(nil)
