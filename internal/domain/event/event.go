package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys
const (
	TypeCertificationGranted = "certification.granted"
	TypeBookingCreated       = "booking.created"
	TypeBookingCancelled     = "booking.cancelled"
)

// Event is a domain fact published after the primary write has committed.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// CertificationGranted is emitted once per newly created certification.
type CertificationGranted struct {
	CertificationID string `json:"certificationId"`
	UserID          string `json:"userId"`
	ShopArea        string `json:"shopArea"`
	GrantedBy       string `json:"grantedBy"`
	Source          string `json:"source"`
}

// BookingChanged is the payload for booking.created and booking.cancelled.
type BookingChanged struct {
	BookingID   string          `json:"bookingId"`
	UserID      string          `json:"userId,omitempty"`
	ShopArea    string          `json:"shopArea"`
	Date        string          `json:"date"`
	TimeSlot    string          `json:"timeSlot"`
	RateCharged decimal.Decimal `json:"rateCharged"`
	ActorID     string          `json:"actorId"`
}

// New stamps a payload with its routing key.
func New(eventType string, payload any, now time.Time) Event {
	return Event{Type: eventType, OccurredAt: now.UTC(), Payload: payload}
}
