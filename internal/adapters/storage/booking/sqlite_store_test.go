package booking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"makerspace/internal/adapters/storage/storagetest"
	domain "makerspace/internal/domain/booking"
)

func newBooking(id, userID, area, date, slot string) domain.Booking {
	return domain.Booking{
		ID:          id,
		UserID:      userID,
		Name:        "Booker " + id,
		UserType:    "member",
		Date:        date,
		TimeSlot:    slot,
		ShopArea:    area,
		RateCharged: decimal.NewFromInt(12),
		RateLabel:   "Member Rate",
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func setup(t *testing.T, users ...string) *SQLiteStore {
	t.Helper()
	db := storagetest.Open(t)
	for _, u := range users {
		storagetest.InsertAccount(t, db, u, "member")
	}
	return NewSQLiteStore(db)
}

func TestSQLiteStore_CreateAndGetRoundTrip(t *testing.T) {
	store := setup(t, "u1", "admin1")
	ctx := context.Background()

	b := newBooking("b1", "u1", "Wood Lathe - Powermatic 1", "2026-03-06", "2pm - 3pm")
	b.RateCharged = decimal.RequireFromString("24.50")
	b.BookedByAdmin = true
	b.AdminID = "admin1"
	if err := store.CreateIfCapacity(ctx, b, 1); err != nil {
		t.Fatalf("CreateIfCapacity: %v", err)
	}

	got, err := store.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Date != b.Date || got.TimeSlot != b.TimeSlot || got.ShopArea != b.ShopArea ||
		!got.RateCharged.Equal(b.RateCharged) || got.RateLabel != b.RateLabel {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.BookedByAdmin || got.AdminID != "admin1" || got.UserID != "u1" {
		t.Errorf("admin fields: %+v", got)
	}
}

func TestSQLiteStore_CapacityAndDuplicate(t *testing.T) {
	store := setup(t, "u1", "u2", "u3")
	ctx := context.Background()
	const area, date, slot = "Glowforge", "2026-03-06", "10am - 11am"

	if err := store.CreateIfCapacity(ctx, newBooking("b1", "u1", area, date, slot), 1); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if err := store.CreateIfCapacity(ctx, newBooking("b2", "u2", area, date, slot), 1); !errors.Is(err, domain.ErrSlotFull) {
		t.Errorf("second booking err = %v, want ErrSlotFull", err)
	}

	const forge = "Forge"
	if err := store.CreateIfCapacity(ctx, newBooking("f1", "u1", forge, date, slot), 3); err != nil {
		t.Fatalf("forge 1: %v", err)
	}
	if err := store.CreateIfCapacity(ctx, newBooking("f2", "u1", forge, date, slot), 3); !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Errorf("duplicate err = %v, want ErrAlreadyBooked", err)
	}
	walkIn := newBooking("f3", "", forge, date, slot)
	if err := store.CreateIfCapacity(ctx, walkIn, 3); err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if err := store.CreateIfCapacity(ctx, newBooking("f4", "", forge, date, slot), 3); err != nil {
		t.Fatalf("second walk-in: %v", err)
	}
	if err := store.CreateIfCapacity(ctx, newBooking("f5", "u3", forge, date, slot), 3); !errors.Is(err, domain.ErrSlotFull) {
		t.Errorf("fourth forge err = %v, want ErrSlotFull", err)
	}

	n, _ := store.CountBySlot(ctx, forge, date, slot)
	if n != 3 {
		t.Errorf("CountBySlot = %d, want 3", n)
	}
	counts, _ := store.CountsByDay(ctx, forge, date)
	if counts[slot] != 3 || len(counts) != 1 {
		t.Errorf("CountsByDay = %v", counts)
	}
}

func TestSQLiteStore_ConcurrentLastSlot(t *testing.T) {
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	store := setup(t, users...)
	ctx := context.Background()

	var ok, full int32
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			err := store.CreateIfCapacity(ctx, newBooking(u+"-b", u, "Glowforge", "2026-03-07", "8am - 9am"), 1)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrSlotFull):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	if ok != 1 || full != int32(len(users)-1) {
		t.Errorf("ok=%d full=%d; want exactly one success", ok, full)
	}
}

func TestSQLiteStore_Reschedule(t *testing.T) {
	store := setup(t, "u1", "u2")
	ctx := context.Background()
	const area = "Glowforge"

	store.CreateIfCapacity(ctx, newBooking("b1", "u1", area, "2026-03-06", "8am - 9am"), 1)
	store.CreateIfCapacity(ctx, newBooking("b2", "u2", area, "2026-03-06", "9am - 10am"), 1)

	if err := store.RescheduleIfCapacity(ctx, "b1", "2026-03-06", "9am - 10am", 1); !errors.Is(err, domain.ErrSlotFull) {
		t.Errorf("reschedule into full slot err = %v", err)
	}
	if err := store.RescheduleIfCapacity(ctx, "b1", "2026-03-06", "8am - 9am", 1); err != nil {
		t.Errorf("reschedule onto own slot: %v", err)
	}
	if err := store.RescheduleIfCapacity(ctx, "b1", "2026-03-07", "11am - 12pm", 1); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	got, _ := store.GetByID(ctx, "b1")
	if got.Date != "2026-03-07" || got.TimeSlot != "11am - 12pm" {
		t.Errorf("not moved: %+v", got)
	}
	if got.ShopArea != area || got.RateLabel != "Member Rate" || !got.RateCharged.Equal(decimal.NewFromInt(12)) {
		t.Errorf("snapshot fields changed: %+v", got)
	}
	if err := store.RescheduleIfCapacity(ctx, "missing", "2026-03-07", "8am - 9am", 1); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing booking err = %v", err)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := setup(t, "u1", "u2")
	ctx := context.Background()

	store.CreateIfCapacity(ctx, newBooking("b1", "u1", "Forge", "2026-03-06", "8am - 9am"), 3)
	store.CreateIfCapacity(ctx, newBooking("b2", "u2", "Forge", "2026-03-07", "8am - 9am"), 3)
	store.CreateIfCapacity(ctx, newBooking("b3", "u1", "Woodshop", "2026-03-07", "8am - 9am"), 3)

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 3},
		{"by user", ListFilter{UserID: "u1"}, 2},
		{"by date", ListFilter{Date: "2026-03-07"}, 2},
		{"by area and date", ListFilter{ShopArea: "Forge", Date: "2026-03-07"}, 1},
		{"limit", ListFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d, want %d", len(got), tt.want)
			}
		})
	}

	if err := store.Delete(ctx, "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "b1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second Delete err = %v", err)
	}
}
