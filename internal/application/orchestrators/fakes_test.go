package orchestrators

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/attendance"
	"makerspace/internal/domain/audit"
	"makerspace/internal/domain/booking"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/class"
	"makerspace/internal/domain/purchase"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// sequentialIDs returns a GenerateID func yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// fakeAccounts implements the account store interfaces.
type fakeAccounts struct {
	accounts map[string]account.Account
}

func newFakeAccounts(list ...account.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: map[string]account.Account{}}
	for _, a := range list {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (account.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range f.accounts {
		if a.Email == account.NormalizeEmail(email) {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (f *fakeAccounts) Save(_ context.Context, a account.Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	delete(f.accounts, id)
	return nil
}

// fakeBookings keeps bookings in a map and applies the same capacity rule as storage.
type fakeBookings struct {
	bookings map[string]booking.Booking
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: map[string]booking.Booking{}}
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (booking.Booking, error) {
	if b, ok := f.bookings[id]; ok {
		return b, nil
	}
	return booking.Booking{}, fmt.Errorf("booking not found: %w", sql.ErrNoRows)
}

func (f *fakeBookings) holders(area, date, slot, exclude string) (count int, users map[string]bool) {
	users = map[string]bool{}
	for _, b := range f.bookings {
		if b.ID == exclude || b.ShopArea != area || b.Date != date || b.TimeSlot != slot {
			continue
		}
		count++
		if b.UserID != "" {
			users[b.UserID] = true
		}
	}
	return count, users
}

func (f *fakeBookings) CreateIfCapacity(_ context.Context, b booking.Booking, capacity int) error {
	count, users := f.holders(b.ShopArea, b.Date, b.TimeSlot, "")
	if b.UserID != "" && users[b.UserID] {
		return booking.ErrAlreadyBooked
	}
	if count >= capacity {
		return booking.ErrSlotFull
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookings) RescheduleIfCapacity(_ context.Context, id, date, slot string, capacity int) error {
	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("booking not found: %w", sql.ErrNoRows)
	}
	count, users := f.holders(b.ShopArea, date, slot, id)
	if b.UserID != "" && users[b.UserID] {
		return booking.ErrAlreadyBooked
	}
	if count >= capacity {
		return booking.ErrSlotFull
	}
	b.Date, b.TimeSlot = date, slot
	f.bookings[id] = b
	return nil
}

func (f *fakeBookings) Delete(_ context.Context, id string) error {
	if _, ok := f.bookings[id]; !ok {
		return fmt.Errorf("booking not found: %w", sql.ErrNoRows)
	}
	delete(f.bookings, id)
	return nil
}

// fakeCertifications is keyed by user then area.
type fakeCertifications struct {
	byUser   map[string]map[string]certification.Certification
	grantErr error
}

func newFakeCertifications() *fakeCertifications {
	return &fakeCertifications{byUser: map[string]map[string]certification.Certification{}}
}

func (f *fakeCertifications) Grant(_ context.Context, c certification.Certification) (bool, error) {
	if f.grantErr != nil {
		return false, f.grantErr
	}
	held := f.byUser[c.UserID]
	if held == nil {
		held = map[string]certification.Certification{}
		f.byUser[c.UserID] = held
	}
	if _, ok := held[c.ShopArea]; ok {
		return false, nil
	}
	held[c.ShopArea] = c
	return true, nil
}

func (f *fakeCertifications) ListByUser(_ context.Context, userID string) ([]certification.Certification, error) {
	var out []certification.Certification
	for _, c := range f.byUser[userID] {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCertifications) Delete(_ context.Context, userID, id string) (certification.Certification, error) {
	for area, c := range f.byUser[userID] {
		if c.ID == id {
			delete(f.byUser[userID], area)
			return c, nil
		}
	}
	return certification.Certification{}, fmt.Errorf("certification not found: %w", sql.ErrNoRows)
}

func (f *fakeCertifications) holds(userID, area string) bool {
	_, ok := f.byUser[userID][area]
	return ok
}

// fakeClasses holds offerings and enrollments.
type fakeClasses struct {
	offerings   map[string]class.Offering
	enrollments map[string]class.Enrollment
}

func newFakeClasses() *fakeClasses {
	return &fakeClasses{offerings: map[string]class.Offering{}, enrollments: map[string]class.Enrollment{}}
}

func (f *fakeClasses) GetByID(_ context.Context, id string) (class.Offering, error) {
	if o, ok := f.offerings[id]; ok {
		return o, nil
	}
	return class.Offering{}, fmt.Errorf("class not found: %w", sql.ErrNoRows)
}

func (f *fakeClasses) Save(_ context.Context, o class.Offering) error {
	f.offerings[o.ID] = o
	return nil
}

func (f *fakeClasses) Delete(_ context.Context, id string) error {
	if _, ok := f.offerings[id]; !ok {
		return fmt.Errorf("class not found: %w", sql.ErrNoRows)
	}
	delete(f.offerings, id)
	return nil
}

func (f *fakeClasses) EnrollIfCapacity(_ context.Context, e class.Enrollment, maxCapacity int) error {
	count := 0
	for _, existing := range f.enrollments {
		if existing.ClassID != e.ClassID {
			continue
		}
		if e.UserID != "" && existing.UserID == e.UserID {
			return class.ErrAlreadyEnrolled
		}
		count++
	}
	if count >= maxCapacity {
		return class.ErrClassFull
	}
	f.enrollments[e.ID] = e
	return nil
}

func (f *fakeClasses) GetEnrollment(_ context.Context, id string) (class.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		return e, nil
	}
	return class.Enrollment{}, fmt.Errorf("enrollment not found: %w", sql.ErrNoRows)
}

func (f *fakeClasses) DeleteEnrollment(_ context.Context, classID, id string) error {
	e, ok := f.enrollments[id]
	if !ok || e.ClassID != classID {
		return fmt.Errorf("enrollment not found: %w", sql.ErrNoRows)
	}
	delete(f.enrollments, id)
	return nil
}

// fakeAttendance keys records by class|student|date.
type fakeAttendance struct {
	records  map[string]attendance.Record
	countErr error
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{records: map[string]attendance.Record{}}
}

func attendanceKey(classID, studentID, date string) string {
	return classID + "|" + studentID + "|" + date
}

func (f *fakeAttendance) Get(_ context.Context, classID, studentID, date string) (attendance.Record, error) {
	if r, ok := f.records[attendanceKey(classID, studentID, date)]; ok {
		return r, nil
	}
	return attendance.Record{}, fmt.Errorf("attendance not found: %w", sql.ErrNoRows)
}

func (f *fakeAttendance) Upsert(_ context.Context, r attendance.Record) (attendance.Record, error) {
	key := attendanceKey(r.ClassID, r.EnrolledStudentID, r.SessionDate)
	if existing, ok := f.records[key]; ok {
		r.ID = existing.ID
	}
	f.records[key] = r
	return r, nil
}

func (f *fakeAttendance) CountPresent(_ context.Context, classID, studentID string, dates []string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, d := range dates {
		if r, ok := f.records[attendanceKey(classID, studentID, d)]; ok && r.Present {
			n++
		}
	}
	return n, nil
}

// fakeAudit records saved events.
type fakeAudit struct {
	events []audit.Event
	err    error
}

func (f *fakeAudit) Save(_ context.Context, e audit.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

// fakePurchases is keyed by purchase id.
type fakePurchases struct {
	purchases map[string]purchase.Purchase
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{purchases: map[string]purchase.Purchase{}}
}

func (f *fakePurchases) GetByID(_ context.Context, id string) (purchase.Purchase, error) {
	if p, ok := f.purchases[id]; ok {
		return p, nil
	}
	return purchase.Purchase{}, fmt.Errorf("purchase not found: %w", sql.ErrNoRows)
}

func (f *fakePurchases) Save(_ context.Context, p purchase.Purchase) error {
	f.purchases[p.ID] = p
	return nil
}

func (f *fakePurchases) Delete(_ context.Context, userID, id string) error {
	p, ok := f.purchases[id]
	if !ok || p.UserID != userID {
		return fmt.Errorf("purchase not found: %w", sql.ErrNoRows)
	}
	delete(f.purchases, id)
	return nil
}
