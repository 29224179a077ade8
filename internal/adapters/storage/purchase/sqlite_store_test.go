package purchase

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"makerspace/internal/adapters/storage/storagetest"
	domain "makerspace/internal/domain/purchase"
)

func TestSQLiteStore_PurchaseLifecycle(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.InsertAccount(t, db, "u1", "member")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	p := domain.Purchase{
		ID:          "p1",
		UserID:      "u1",
		Description: "Forge time, March",
		Amount:      decimal.RequireFromString("54.5"),
		Type:        domain.TypeBooking,
		Status:      domain.StatusUnpaid,
		DueDate:     "2026-04-01",
		CreatedBy:   "admin1",
		CreatedAt:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Amount.Equal(p.Amount) || got.DueDate != "2026-04-01" || !got.PaidAt.IsZero() {
		t.Errorf("got %+v", got)
	}

	paidAt := time.Date(2026, 3, 25, 10, 0, 0, 0, time.UTC)
	got.MarkPaid(paidAt)
	store.Save(ctx, got)
	list, _ := store.ListByUser(ctx, "u1")
	if len(list) != 1 || list[0].Status != domain.StatusPaid || !list[0].PaidAt.Equal(paidAt) {
		t.Errorf("after paid: %+v", list)
	}

	if err := store.Delete(ctx, "u2", "p1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("cross-user delete err = %v", err)
	}
	if err := store.Delete(ctx, "u1", "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, "p1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("after delete err = %v", err)
	}
}
