package projections

import (
	"context"

	"makerspace/internal/adapters/storage/booking"
	domainBooking "makerspace/internal/domain/booking"
)

// BookingListQuery filters the booking list. Non-admin viewers only ever see their own bookings.
type BookingListQuery struct {
	ViewerID      string
	ViewerIsAdmin bool
	UserID        string
	Date          string
	ShopArea      string
	Limit         int
	Offset        int
}

// QueryBookings lists bookings visible to the viewer, newest date first.
// POST: for non-admin viewers every row has UserID == ViewerID
func QueryBookings(ctx context.Context, q BookingListQuery, store BookingStore) ([]domainBooking.Booking, error) {
	filter := booking.ListFilter{
		UserID:   q.UserID,
		Date:     q.Date,
		ShopArea: q.ShopArea,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if !q.ViewerIsAdmin {
		filter.UserID = q.ViewerID
	}
	out, err := store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domainBooking.Booking{}
	}
	return out, nil
}
