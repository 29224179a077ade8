// Package availability computes bookable hours, slot labels, and remaining capacity.
package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"makerspace/internal/domain/account"
)

// DateLayout is the wire and storage format for booking dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
	ErrInvalidSlot  = errors.New("time slot must look like \"8am - 9am\"")
	ErrNotBookable  = errors.New("no bookable hours on this date")
	ErrOutsideHours = errors.New("time slot is outside the allowed hours for this date")
)

// Hours is a half-open range of start hours [Start, End).
type Hours struct {
	Start int `json:"startHour"`
	End   int `json:"endHour"`
}

// Contains reports whether a slot starting at hour h lies inside the range.
func (h Hours) Contains(hour int) bool {
	return hour >= h.Start && hour < h.End
}

// Rule is one row of the allowed-hours decision table.
// Types and Days are match sets; an empty set matches anything. Closed rules yield no hours.
type Rule struct {
	Name   string
	Types  []string
	Days   []time.Weekday
	Hours  Hours
	Closed bool
}

func (r Rule) matches(userType string, day time.Weekday) bool {
	if len(r.Types) > 0 && !containsType(r.Types, userType) {
		return false
	}
	if len(r.Days) > 0 && !containsDay(r.Days, day) {
		return false
	}
	return true
}

var allDay = Hours{Start: 8, End: 22}

// Rules is the ordered decision table; the first matching rule wins.
var Rules = []Rule{
	{Name: "staff_all_week", Types: []string{account.TypeAdmin, account.TypeCavePro}, Hours: allDay},
	{Name: "steward_wednesday", Types: []string{account.TypeSteward}, Days: []time.Weekday{time.Wednesday}, Hours: allDay},
	{Name: "thursday", Days: []time.Weekday{time.Thursday}, Hours: Hours{Start: 10, End: 22}},
	{Name: "friday_saturday", Days: []time.Weekday{time.Friday, time.Saturday}, Hours: Hours{Start: 8, End: 20}},
	{Name: "sunday", Days: []time.Weekday{time.Sunday}, Hours: Hours{Start: 8, End: 17}},
	{Name: "closed_early_week", Days: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}, Closed: true},
}

// AllowedHours returns the bookable hours for a user type on a date.
// POST: ok is false when the date is not bookable for that user type
func AllowedHours(userType string, date time.Time) (Hours, bool) {
	day := date.Weekday()
	for _, r := range Rules {
		if !r.matches(userType, day) {
			continue
		}
		if r.Closed {
			return Hours{}, false
		}
		return r.Hours, true
	}
	return Hours{}, false
}

// ParseDate parses a YYYY-MM-DD date as a calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Slot is a one-hour bookable window.
type Slot struct {
	StartHour int    `json:"startHour"`
	Label     string `json:"label"`
}

// Slots generates contiguous one-hour slots for the range.
func Slots(h Hours) []Slot {
	if h.End <= h.Start {
		return nil
	}
	out := make([]Slot, 0, h.End-h.Start)
	for hour := h.Start; hour < h.End; hour++ {
		out = append(out, Slot{StartHour: hour, Label: SlotLabel(hour)})
	}
	return out
}

// SlotLabel formats [h, h+1) in 12-hour clock form, e.g. "8am - 9am".
func SlotLabel(startHour int) string {
	return formatHour(startHour) + " - " + formatHour(startHour+1)
}

func formatHour(h int) string {
	switch {
	case h == 0 || h == 24:
		return "12am"
	case h == 12:
		return "12pm"
	case h > 12:
		return strconv.Itoa(h-12) + "pm"
	default:
		return strconv.Itoa(h) + "am"
	}
}

// ParseSlotLabel returns the start hour of a label produced by SlotLabel.
func ParseSlotLabel(label string) (int, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(label), " - ")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	h, err := parseHour(start)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	if SlotLabel(h) != start+" - "+end {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	return h, nil
}

func parseHour(s string) (int, error) {
	var suffix string
	switch {
	case strings.HasSuffix(s, "am"):
		suffix = "am"
	case strings.HasSuffix(s, "pm"):
		suffix = "pm"
	default:
		return 0, ErrInvalidSlot
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, suffix))
	if err != nil || n < 1 || n > 12 {
		return 0, ErrInvalidSlot
	}
	if suffix == "am" {
		if n == 12 {
			return 0, nil
		}
		return n, nil
	}
	if n == 12 {
		return 12, nil
	}
	return n + 12, nil
}

// CheckSlot verifies that a slot label is bookable for the user type on the date.
func CheckSlot(userType string, date time.Time, label string) error {
	hour, err := ParseSlotLabel(label)
	if err != nil {
		return err
	}
	hours, ok := AllowedHours(userType, date)
	if !ok {
		return ErrNotBookable
	}
	if !hours.Contains(hour) {
		return ErrOutsideHours
	}
	return nil
}

func containsType(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsDay(list []time.Weekday, d time.Weekday) bool {
	for _, v := range list {
		if v == d {
			return true
		}
	}
	return false
}
