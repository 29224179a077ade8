package projections

import (
	"context"

	"makerspace/internal/adapters/storage/account"
	"makerspace/internal/adapters/storage/booking"
	domainAccount "makerspace/internal/domain/account"
	domainAttendance "makerspace/internal/domain/attendance"
	domainBooking "makerspace/internal/domain/booking"
	domainCertification "makerspace/internal/domain/certification"
	domainClass "makerspace/internal/domain/class"
)

// AccountStore interface for user queries.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
	Count(ctx context.Context, filter account.ListFilter) (int, error)
}

// BookingStore interface for booking and capacity queries.
type BookingStore interface {
	CountBySlot(ctx context.Context, shopArea, date, timeSlot string) (int, error)
	CountsByDay(ctx context.Context, shopArea, date string) (map[string]int, error)
	List(ctx context.Context, filter booking.ListFilter) ([]domainBooking.Booking, error)
}

// CertificationStore interface for held certifications.
type CertificationStore interface {
	ListByUser(ctx context.Context, userID string) ([]domainCertification.Certification, error)
}

// ClassStore interface for class and roster queries.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (domainClass.Offering, error)
	ListEnrollments(ctx context.Context, classID string) ([]domainClass.Enrollment, error)
}

// AttendanceStore interface for attendance queries.
type AttendanceStore interface {
	ListByClass(ctx context.Context, classID string) ([]domainAttendance.Record, error)
}
