package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"makerspace/internal/domain/account"
)

var (
	ErrEmptyDate     = errors.New("booking date cannot be empty")
	ErrEmptySlot     = errors.New("booking time slot cannot be empty")
	ErrEmptyArea     = errors.New("booking shop area cannot be empty")
	ErrEmptyName     = errors.New("booking name cannot be empty")
	ErrNegativeRate  = errors.New("booking rate cannot be negative")
	ErrInvalidType   = errors.New("booking user type is not recognised")
	ErrMissingAdmin  = errors.New("admin bookings must record the admin")
	ErrNotOwnerAdmin = errors.New("only the booking owner or an admin may change this booking")

	// Conflict errors carry the user-facing text verbatim.
	ErrSlotFull      = errors.New("Class is full")
	ErrAlreadyBooked = errors.New("Already booked this slot")
)

// Booking is one reserved hour in a shop area.
// INVARIANT: ShopArea, RateCharged, RateLabel, and UserType never change after creation
type Booking struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId,omitempty"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	UserType      string          `json:"userType"`
	Date          string          `json:"date"`
	TimeSlot      string          `json:"timeSlot"`
	ShopArea      string          `json:"shopArea"`
	RateCharged   decimal.Decimal `json:"rateCharged"`
	RateLabel     string          `json:"rateLabel"`
	BookedByAdmin bool            `json:"bookedByAdmin"`
	AdminID       string          `json:"adminId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Validate checks snapshot fields before persistence.
// PRE: Booking struct is populated
// POST: Returns nil if valid, error otherwise
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(b.Date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(b.TimeSlot) == "" {
		return ErrEmptySlot
	}
	if strings.TrimSpace(b.ShopArea) == "" {
		return ErrEmptyArea
	}
	if !account.IsValidType(b.UserType) {
		return ErrInvalidType
	}
	if b.RateCharged.IsNegative() {
		return ErrNegativeRate
	}
	if b.BookedByAdmin && b.AdminID == "" {
		return ErrMissingAdmin
	}
	return nil
}

// IsWalkIn reports whether the booking has no linked user.
func (b *Booking) IsWalkIn() bool {
	return b.UserID == ""
}

// CanModify reports whether the actor may reschedule or cancel.
// INVARIANT: Booking fields are not mutated
func (b *Booking) CanModify(actorID, actorType string) bool {
	if actorType == account.TypeAdmin {
		return true
	}
	return actorID != "" && actorID == b.UserID
}

// Reschedule moves the booking to a new date and slot.
// POST: only Date and TimeSlot change
func (b *Booking) Reschedule(date, timeSlot string) error {
	if strings.TrimSpace(date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(timeSlot) == "" {
		return ErrEmptySlot
	}
	b.Date = date
	b.TimeSlot = timeSlot
	return nil
}
