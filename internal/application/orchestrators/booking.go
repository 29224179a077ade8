package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/adapters/events"
	"makerspace/internal/domain/account"
	"makerspace/internal/domain/availability"
	"makerspace/internal/domain/booking"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/event"
	"makerspace/internal/domain/rate"
	"makerspace/internal/domain/shoparea"
)

// BookingStore defines the booking persistence used by the lifecycle orchestrators.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (booking.Booking, error)
	CreateIfCapacity(ctx context.Context, b booking.Booking, capacity int) error
	RescheduleIfCapacity(ctx context.Context, id, date, timeSlot string, capacity int) error
	Delete(ctx context.Context, id string) error
}

// AccountGetter loads accounts by id.
type AccountGetter interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// CertificationLister loads a user's earned certifications.
type CertificationLister interface {
	ListByUser(ctx context.Context, userID string) ([]certification.Certification, error)
}

// BookingDeps holds dependencies shared by create, reschedule and cancel.
type BookingDeps struct {
	Bookings       BookingStore
	Accounts       AccountGetter
	Certifications CertificationLister
	Catalog        *shoparea.Catalog
	Rules          *certrule.Table
	Events         events.Publisher
	Location       *time.Location
	Now            func() time.Time
	GenerateID     func() string
}

// CreateBookingInput carries a booking request.
// Non-admins always book for themselves. Admins may name a registered UserID,
// or a walk-in by Name/Email/UserType, or leave both empty to book for themselves.
type CreateBookingInput struct {
	Actor    Actor
	UserID   string
	Name     string
	Email    string
	UserType string
	Date     string
	TimeSlot string
	ShopArea string
	SubArea  string
}

// booker is whoever the booking is for.
type booker struct {
	id       string
	name     string
	email    string
	userType string
}

func resolveBooker(ctx context.Context, input CreateBookingInput, deps BookingDeps) (booker, error) {
	target := input.UserID
	if !input.Actor.IsAdmin() {
		if target != "" && target != input.Actor.ID {
			return booker{}, ErrForbidden
		}
		target = input.Actor.ID
	} else if target == "" && strings.TrimSpace(input.Name) != "" {
		userType := input.UserType
		if userType == "" {
			userType = account.TypeNonMember
		}
		if !account.IsValidType(userType) {
			return booker{}, invalid(account.ErrInvalidType)
		}
		return booker{name: strings.TrimSpace(input.Name), email: input.Email, userType: userType}, nil
	} else if target == "" {
		target = input.Actor.ID
	}

	acct, err := deps.Accounts.GetByID(ctx, target)
	if err != nil {
		return booker{}, notFound(err, "user")
	}
	return booker{id: acct.ID, name: acct.Name, email: acct.Email, userType: acct.UserType}, nil
}

// gate runs the certification check for the booker, with admin actors bypassing it.
func gate(ctx context.Context, actor Actor, b booker, area string, deps BookingDeps) error {
	principal := certification.Principal{ID: b.id, UserType: b.userType}
	if actor.IsAdmin() {
		principal.UserType = account.TypeAdmin
	} else {
		held, err := deps.Certifications.ListByUser(ctx, b.id)
		if err != nil {
			return err
		}
		principal = certification.NewPrincipal(b.id, b.userType, held)
	}
	decision := certification.Check(deps.Rules, principal, area)
	if !decision.Allowed {
		slog.Info("booking_event", "event", "gate_denied", "user_id", b.id, "shop_area", area, "method", decision.Method)
		return &CertificationDeniedError{ShopArea: area, Decision: decision}
	}
	return nil
}

// checkHours validates the slot against the allowed hours. Admin actors use admin hours.
func checkHours(actor Actor, userType, date, slot string, loc *time.Location) error {
	day, err := availability.ParseDate(date, loc)
	if err != nil {
		return invalid(err)
	}
	if actor.IsAdmin() {
		userType = account.TypeAdmin
	}
	if err := availability.CheckSlot(userType, day, slot); err != nil {
		return invalid(err)
	}
	return nil
}

func bookingEvent(eventType string, b booking.Booking, actorID string, now time.Time) event.Event {
	return event.New(eventType, event.BookingChanged{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShopArea:    b.ShopArea,
		Date:        b.Date,
		TimeSlot:    b.TimeSlot,
		RateCharged: b.RateCharged,
		ActorID:     actorID,
	}, now)
}

// ExecuteCreateBooking validates and persists a booking.
// PRE: input.Actor is authenticated
// POST: on success the booking is stored with the server-computed rate; otherwise nothing is written
// INVARIANT: the certification gate and capacity are evaluated here regardless of any client pre-check
func ExecuteCreateBooking(ctx context.Context, input CreateBookingInput, deps BookingDeps) (booking.Booking, error) {
	area, err := deps.Catalog.Resolve(input.ShopArea, input.SubArea)
	if err != nil {
		return booking.Booking{}, invalid(err)
	}

	who, err := resolveBooker(ctx, input, deps)
	if err != nil {
		return booking.Booking{}, err
	}

	if err := checkHours(input.Actor, who.userType, input.Date, input.TimeSlot, deps.Location); err != nil {
		return booking.Booking{}, err
	}

	if err := gate(ctx, input.Actor, who, area.Name, deps); err != nil {
		return booking.Booking{}, err
	}

	quote := rate.For(who.userType, area)
	b := booking.Booking{
		ID:          deps.GenerateID(),
		UserID:      who.id,
		Name:        who.name,
		Email:       who.email,
		UserType:    who.userType,
		Date:        strings.TrimSpace(input.Date),
		TimeSlot:    strings.TrimSpace(input.TimeSlot),
		ShopArea:    area.Name,
		RateCharged: quote.Amount,
		RateLabel:   quote.Label,
		CreatedAt:   deps.Now(),
	}
	if input.Actor.IsAdmin() && who.id != input.Actor.ID {
		b.BookedByAdmin = true
		b.AdminID = input.Actor.ID
	}
	if err := b.Validate(); err != nil {
		return booking.Booking{}, invalid(err)
	}

	if err := deps.Bookings.CreateIfCapacity(ctx, b, area.Capacity); err != nil {
		if errors.Is(err, booking.ErrSlotFull) || errors.Is(err, booking.ErrAlreadyBooked) {
			slog.Info("booking_event", "event", "rejected", "reason", err.Error(), "shop_area", b.ShopArea, "date", b.Date, "slot", b.TimeSlot)
		}
		return booking.Booking{}, err
	}

	slog.Info("booking_event", "event", "created", "booking_id", b.ID, "user_id", b.UserID, "shop_area", b.ShopArea,
		"date", b.Date, "slot", b.TimeSlot, "rate", b.RateCharged.String(), "by_admin", b.BookedByAdmin)
	events.PublishQuietly(ctx, deps.Events, bookingEvent(event.TypeBookingCreated, b, input.Actor.ID, b.CreatedAt))
	return b, nil
}

// loadModifiable fetches a booking the actor owns or administers.
func loadModifiable(ctx context.Context, actor Actor, id string, deps BookingDeps) (booking.Booking, error) {
	b, err := deps.Bookings.GetByID(ctx, id)
	if err != nil {
		return booking.Booking{}, notFound(err, "booking")
	}
	if !b.CanModify(actor.ID, actor.UserType) {
		return booking.Booking{}, ErrForbidden
	}
	return b, nil
}

// GetBooking returns a booking visible to the actor.
func GetBooking(ctx context.Context, actor Actor, id string, deps BookingDeps) (booking.Booking, error) {
	return loadModifiable(ctx, actor, id, deps)
}

// RescheduleBookingInput carries the new date and slot.
type RescheduleBookingInput struct {
	Actor     Actor
	BookingID string
	Date      string
	TimeSlot  string
}

// ExecuteRescheduleBooking moves a booking to a new date and slot.
// PRE: actor owns the booking or is admin
// POST: only Date and TimeSlot change; the new slot passed the hours, gate and capacity checks
func ExecuteRescheduleBooking(ctx context.Context, input RescheduleBookingInput, deps BookingDeps) (booking.Booking, error) {
	b, err := loadModifiable(ctx, input.Actor, input.BookingID, deps)
	if err != nil {
		return booking.Booking{}, err
	}
	if err := b.Reschedule(strings.TrimSpace(input.Date), strings.TrimSpace(input.TimeSlot)); err != nil {
		return booking.Booking{}, invalid(err)
	}

	area, ok := deps.Catalog.Lookup(b.ShopArea)
	if !ok {
		return booking.Booking{}, invalidf("shop area %q is no longer bookable", b.ShopArea)
	}
	if err := checkHours(input.Actor, b.UserType, b.Date, b.TimeSlot, deps.Location); err != nil {
		return booking.Booking{}, err
	}
	if !b.IsWalkIn() {
		owner := booker{id: b.UserID, name: b.Name, email: b.Email, userType: b.UserType}
		if err := gate(ctx, input.Actor, owner, b.ShopArea, deps); err != nil {
			return booking.Booking{}, err
		}
	}

	if err := deps.Bookings.RescheduleIfCapacity(ctx, b.ID, b.Date, b.TimeSlot, area.Capacity); err != nil {
		return booking.Booking{}, notFound(err, "booking")
	}
	slog.Info("booking_event", "event", "rescheduled", "booking_id", b.ID, "date", b.Date, "slot", b.TimeSlot, "actor_id", input.Actor.ID)
	return b, nil
}

// ExecuteCancelBooking deletes a booking.
// PRE: actor owns the booking or is admin
// POST: booking removed and booking.cancelled published
func ExecuteCancelBooking(ctx context.Context, actor Actor, id string, deps BookingDeps) error {
	b, err := loadModifiable(ctx, actor, id, deps)
	if err != nil {
		return err
	}
	if err := deps.Bookings.Delete(ctx, b.ID); err != nil {
		return notFound(err, "booking")
	}
	slog.Info("booking_event", "event", "cancelled", "booking_id", b.ID, "actor_id", actor.ID)
	events.PublishQuietly(ctx, deps.Events, bookingEvent(event.TypeBookingCancelled, b, actor.ID, deps.Now()))
	return nil
}
