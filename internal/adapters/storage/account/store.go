package account

import (
	"context"

	domain "makerspace/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit          int
	Offset         int
	UserType       string
	Search         string // matched against name and email
	InstructorOnly bool
	Sort           string // "name", "email", "created"; prefix "-" for descending
}

var _ Store = (*SQLiteStore)(nil)
