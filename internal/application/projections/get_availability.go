package projections

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"makerspace/internal/domain/availability"
	"makerspace/internal/domain/rate"
	"makerspace/internal/domain/shoparea"
)

// AvailabilityDeps holds dependencies for the availability projections.
type AvailabilityDeps struct {
	BookingStore BookingStore
	Catalog      *shoparea.Catalog
	Location     *time.Location
}

// QueryAllowedHours returns the bookable range for a user type on a date, or nil when closed.
// PRE: date is YYYY-MM-DD
func QueryAllowedHours(userType, date string, loc *time.Location) (*availability.Hours, error) {
	day, err := availability.ParseDate(date, loc)
	if err != nil {
		return nil, err
	}
	h, ok := availability.AllowedHours(userType, day)
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// SlotAvailabilityQuery names one area, date, and slot.
type SlotAvailabilityQuery struct {
	ShopArea string
	SubArea  string
	Date     string
	TimeSlot string
}

// QuerySlotAvailability counts bookings in one slot against the area capacity.
// POST: Remaining = capacity - booked, floored at zero
func QuerySlotAvailability(ctx context.Context, q SlotAvailabilityQuery, deps AvailabilityDeps) (availability.SlotAvailability, error) {
	area, err := deps.Catalog.Resolve(q.ShopArea, q.SubArea)
	if err != nil {
		return availability.SlotAvailability{}, err
	}
	if _, err := availability.ParseDate(q.Date, deps.Location); err != nil {
		return availability.SlotAvailability{}, err
	}
	if _, err := availability.ParseSlotLabel(q.TimeSlot); err != nil {
		return availability.SlotAvailability{}, err
	}
	booked, err := deps.BookingStore.CountBySlot(ctx, area.Name, q.Date, strings.TrimSpace(q.TimeSlot))
	if err != nil {
		return availability.SlotAvailability{}, err
	}
	return availability.ForSlot(area.Capacity, booked), nil
}

// DayAvailabilityQuery asks for every slot of an area on one date for a user type.
type DayAvailabilityQuery struct {
	UserType string
	ShopArea string
	SubArea  string
	Date     string
}

// SlotView is one row of the day grid.
type SlotView struct {
	Label     string `json:"label"`
	StartHour int    `json:"startHour"`
	availability.SlotAvailability
}

// DayAvailability is the booking grid for one area and date.
type DayAvailability struct {
	Date      string              `json:"date"`
	ShopArea  string              `json:"shopArea"`
	Capacity  int                 `json:"capacity"`
	Bookable  bool                `json:"bookable"`
	Hours     *availability.Hours `json:"hours"`
	Rate      decimal.Decimal     `json:"rate"`
	RateLabel string              `json:"rateLabel"`
	Slots     []SlotView          `json:"slots"`
}

// QueryDayAvailability builds the slot grid a booking form shows.
// POST: Slots is empty when the date is closed for the user type
func QueryDayAvailability(ctx context.Context, q DayAvailabilityQuery, deps AvailabilityDeps) (DayAvailability, error) {
	area, err := deps.Catalog.Resolve(q.ShopArea, q.SubArea)
	if err != nil {
		return DayAvailability{}, err
	}
	day, err := availability.ParseDate(q.Date, deps.Location)
	if err != nil {
		return DayAvailability{}, err
	}
	quote := rate.For(q.UserType, area)
	out := DayAvailability{
		Date:      q.Date,
		ShopArea:  area.Name,
		Capacity:  area.Capacity,
		Rate:      quote.Amount,
		RateLabel: quote.Label,
		Slots:     []SlotView{},
	}
	h, ok := availability.AllowedHours(q.UserType, day)
	if !ok {
		return out, nil
	}
	out.Bookable = true
	out.Hours = &h

	counts, err := deps.BookingStore.CountsByDay(ctx, area.Name, q.Date)
	if err != nil {
		return DayAvailability{}, err
	}
	for _, s := range availability.Slots(h) {
		out.Slots = append(out.Slots, SlotView{
			Label:            s.Label,
			StartHour:        s.StartHour,
			SlotAvailability: availability.ForSlot(area.Capacity, counts[s.Label]),
		})
	}
	return out, nil
}

// AreaView is a catalog entry priced for the caller.
type AreaView struct {
	Name      string          `json:"name"`
	Capacity  int             `json:"capacity,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	RateLabel string          `json:"rateLabel"`
	SubAreas  []AreaView      `json:"subAreas,omitempty"`
}

// CategoryView groups areas for display.
type CategoryView struct {
	Name  string     `json:"name"`
	Areas []AreaView `json:"areas"`
}

// QueryShopAreas lists the catalog with rates for userType.
// Parent areas list their sub-areas, each carrying the canonical "Parent - Sub" name.
func QueryShopAreas(catalog *shoparea.Catalog, userType string) []CategoryView {
	var out []CategoryView
	for _, cat := range catalog.Categories() {
		cv := CategoryView{Name: cat.Name}
		for _, a := range cat.Areas {
			cv.Areas = append(cv.Areas, areaView(catalog, a, userType))
		}
		out = append(out, cv)
	}
	return out
}

func areaView(catalog *shoparea.Catalog, a shoparea.Area, userType string) AreaView {
	if !a.HasSubAreas() {
		q := rate.For(userType, a)
		return AreaView{Name: a.Name, Capacity: a.Capacity, Rate: q.Amount, RateLabel: q.Label}
	}
	v := AreaView{Name: a.Name}
	for _, sub := range a.SubAreas {
		leaf, err := catalog.Resolve(a.Name, sub.Name)
		if err != nil {
			continue
		}
		v.SubAreas = append(v.SubAreas, areaView(catalog, leaf, userType))
	}
	if len(v.SubAreas) > 0 {
		v.Rate, v.RateLabel = v.SubAreas[0].Rate, v.SubAreas[0].RateLabel
	}
	return v
}
