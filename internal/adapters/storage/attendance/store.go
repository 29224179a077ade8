package attendance

import (
	"context"

	domain "makerspace/internal/domain/attendance"
)

// Store persists attendance records, one per (class, student, session date).
type Store interface {
	// Get returns the record for one student and session, or an error wrapping sql.ErrNoRows.
	Get(ctx context.Context, classID, enrolledStudentID, sessionDate string) (domain.Record, error)
	// Upsert writes r keyed on (class, student, session date) and returns the stored row.
	Upsert(ctx context.Context, r domain.Record) (domain.Record, error)
	ListByClass(ctx context.Context, classID string) ([]domain.Record, error)
	// CountPresent counts the given session dates the student is marked present for.
	// Rows for dates outside sessionDates are ignored.
	CountPresent(ctx context.Context, classID, enrolledStudentID string, sessionDates []string) (int, error)
}

var _ Store = (*SQLiteStore)(nil)
