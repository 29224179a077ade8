package attendance

import (
	"errors"
	"time"
)

// Record is one student's attendance at one class session.
// INVARIANT: unique per (ClassID, EnrolledStudentID, SessionDate); updated in place, never appended
type Record struct {
	ID                string    `json:"id"`
	ClassID           string    `json:"classId"`
	EnrolledStudentID string    `json:"enrolledStudentId"`
	SessionDate       string    `json:"sessionDate"` // YYYY-MM-DD format
	Present           bool      `json:"present"`
	CheckedInAt       time.Time `json:"checkedInAt,omitempty"`
	MarkedBy          string    `json:"markedBy,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: class, student, and session date must be set
func (r *Record) Validate() error {
	if r.ClassID == "" {
		return errors.New("attendance must be associated with a class")
	}
	if r.EnrolledStudentID == "" {
		return errors.New("attendance must be associated with an enrolled student")
	}
	if _, err := time.Parse("2006-01-02", r.SessionDate); err != nil {
		return errors.New("session date must be YYYY-MM-DD")
	}
	return nil
}

// Mark sets the present flag.
// POST: CheckedInAt is set only when present moves from false to true; returns whether that happened
func (r *Record) Mark(present bool, by string, now time.Time) bool {
	transitioned := present && !r.Present
	r.Present = present
	r.MarkedBy = by
	r.UpdatedAt = now
	if transitioned {
		r.CheckedInAt = now
	}
	return transitioned
}
