package class

import (
	"context"

	domain "makerspace/internal/domain/class"
)

// Store persists class offerings and their enrolled students.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Offering, error)
	Save(ctx context.Context, value domain.Offering) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Offering, error)

	// EnrollIfCapacity inserts e only while the class has room and the linked user is not enrolled.
	// Returns domain.ErrClassFull or domain.ErrAlreadyEnrolled when nothing was written.
	EnrollIfCapacity(ctx context.Context, e domain.Enrollment, maxCapacity int) error
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	ListEnrollments(ctx context.Context, classID string) ([]domain.Enrollment, error)
	DeleteEnrollment(ctx context.Context, classID, id string) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	InstructorID string
	Limit        int
	Offset       int
}

var _ Store = (*SQLiteStore)(nil)
