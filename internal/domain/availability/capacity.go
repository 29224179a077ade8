package availability

// SlotAvailability is the remaining capacity of one area, date, and slot.
type SlotAvailability struct {
	Capacity  int  `json:"capacity"`
	Booked    int  `json:"booked"`
	Remaining int  `json:"remaining"`
	IsFull    bool `json:"isFull"`
}

// ForSlot computes remaining capacity from the area capacity and matching booking count.
// INVARIANT: Remaining is never negative; IsFull iff capacity - booked <= 0
func ForSlot(capacity, booked int) SlotAvailability {
	remaining := capacity - booked
	full := remaining <= 0
	if remaining < 0 {
		remaining = 0
	}
	return SlotAvailability{
		Capacity:  capacity,
		Booked:    booked,
		Remaining: remaining,
		IsFull:    full,
	}
}
