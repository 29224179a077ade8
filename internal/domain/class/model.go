package class

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	ErrEmptyTitle       = errors.New("class title cannot be empty")
	ErrNoSessions       = errors.New("class must have at least one session")
	ErrInvalidSession   = errors.New("session date must be YYYY-MM-DD")
	ErrDuplicateSession = errors.New("session dates must be unique within a class")
	ErrInvalidCapacity  = errors.New("class capacity must be positive")
	ErrNegativePrice    = errors.New("class price cannot be negative")
	ErrUnknownSession   = errors.New("session date is not part of this class")
	ErrEmptyStudentName = errors.New("student name cannot be empty")
	ErrAlreadyEnrolled  = errors.New("Already enrolled")
	ErrClassFull        = errors.New("Class is full")
)

// Session is one meeting of a class.
type Session struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// Offering is a scheduled class. Title is the join key for certification rules.
type Offering struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	InstructorID string          `json:"instructorId,omitempty"`
	Sessions     []Session       `json:"sessions"`
	MaxCapacity  int             `json:"maxCapacity"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Validate checks the offering and normalises session order.
// PRE: Offering struct is populated
// POST: Sessions are sorted by date then start time
func (o *Offering) Validate() error {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return ErrEmptyTitle
	}
	if len(o.Sessions) == 0 {
		return ErrNoSessions
	}
	seen := make(map[string]bool, len(o.Sessions))
	for _, s := range o.Sessions {
		if _, err := time.Parse(dateLayout, s.Date); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSession, s.Date)
		}
		if seen[s.Date] {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, s.Date)
		}
		seen[s.Date] = true
	}
	if o.MaxCapacity <= 0 {
		return ErrInvalidCapacity
	}
	if o.Price.IsNegative() {
		return ErrNegativePrice
	}
	sort.SliceStable(o.Sessions, func(i, j int) bool {
		if o.Sessions[i].Date != o.Sessions[j].Date {
			return o.Sessions[i].Date < o.Sessions[j].Date
		}
		return o.Sessions[i].StartTime < o.Sessions[j].StartTime
	})
	return nil
}

// TotalSessions is the completion target for attendance-based certification.
func (o *Offering) TotalSessions() int {
	return len(o.Sessions)
}

// SessionDates lists the current session dates in session order.
func (o *Offering) SessionDates() []string {
	dates := make([]string, 0, len(o.Sessions))
	for _, s := range o.Sessions {
		dates = append(dates, s.Date)
	}
	return dates
}

// HasSession reports whether the date is one of the class sessions.
func (o *Offering) HasSession(date string) bool {
	for _, s := range o.Sessions {
		if s.Date == date {
			return true
		}
	}
	return false
}

// IsTaughtBy reports whether the account is the assigned instructor.
func (o *Offering) IsTaughtBy(accountID string) bool {
	return accountID != "" && o.InstructorID == accountID
}

// Enrollment links a student to a class. UserID is empty for name-only enrollment.
type Enrollment struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"classId"`
	UserID     string    `json:"userId,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// Validate checks required enrollment fields.
func (e *Enrollment) Validate() error {
	if strings.TrimSpace(e.ClassID) == "" {
		return errors.New("enrollment class cannot be empty")
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyStudentName
	}
	return nil
}

// HasLinkedUser reports whether the enrollment is tied to an account.
func (e *Enrollment) HasLinkedUser() bool {
	return e.UserID != ""
}
