package purchase

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase types
const (
	TypeInvoice    = "invoice"
	TypeClass      = "class"
	TypeBooking    = "booking"
	TypeMembership = "membership"
	TypeOther      = "other"
)

// Statuses
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

// ValidTypes contains all valid purchase types.
var ValidTypes = []string{TypeInvoice, TypeClass, TypeBooking, TypeMembership, TypeOther}

var (
	ErrEmptyUser        = errors.New("purchase must belong to a user")
	ErrEmptyDescription = errors.New("purchase description cannot be empty")
	ErrInvalidAmount    = errors.New("purchase amount must be greater than zero")
	ErrInvalidType      = errors.New("purchase type must be one of: invoice, class, booking, membership, other")
	ErrInvalidDueDate   = errors.New("due date must be YYYY-MM-DD")
)

// Purchase is a manually tracked charge against a user.
type Purchase struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	DueDate     string          `json:"dueDate,omitempty"`
	PaidAt      time.Time       `json:"paidAt,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Validate checks if the Purchase has valid data.
func (p *Purchase) Validate() error {
	if p.UserID == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	valid := false
	for _, t := range ValidTypes {
		if t == p.Type {
			valid = true
		}
	}
	if !valid {
		return ErrInvalidType
	}
	if p.DueDate != "" {
		if _, err := time.Parse("2006-01-02", p.DueDate); err != nil {
			return ErrInvalidDueDate
		}
	}
	return nil
}

// MarkPaid records payment.
// POST: Status is paid and PaidAt is set
func (p *Purchase) MarkPaid(now time.Time) {
	p.Status = StatusPaid
	p.PaidAt = now
}

// MarkUnpaid reverses a payment entry.
func (p *Purchase) MarkUnpaid() {
	p.Status = StatusUnpaid
	p.PaidAt = time.Time{}
}

// IsOverdue reports whether an unpaid purchase is past its due date.
func (p *Purchase) IsOverdue(today string) bool {
	return p.Status == StatusUnpaid && p.DueDate != "" && p.DueDate < today
}
