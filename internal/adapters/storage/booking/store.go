package booking

import (
	"context"

	domain "makerspace/internal/domain/booking"
)

// Store persists Booking state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Booking, error)
	// CreateIfCapacity inserts b only while fewer than capacity bookings hold its slot.
	// Returns domain.ErrSlotFull or domain.ErrAlreadyBooked when nothing was written.
	CreateIfCapacity(ctx context.Context, b domain.Booking, capacity int) error
	// RescheduleIfCapacity moves booking id to date/slot with the same guard, excluding itself.
	RescheduleIfCapacity(ctx context.Context, id, date, timeSlot string, capacity int) error
	Delete(ctx context.Context, id string) error
	CountBySlot(ctx context.Context, shopArea, date, timeSlot string) (int, error)
	// CountsByDay returns time slot label -> booking count for one area and date.
	CountsByDay(ctx context.Context, shopArea, date string) (map[string]int, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Booking, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	UserID   string
	Date     string
	ShopArea string
	Limit    int
	Offset   int
}

var _ Store = (*SQLiteStore)(nil)
