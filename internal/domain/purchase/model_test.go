package purchase

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPurchase_Validate(t *testing.T) {
	base := func() Purchase {
		return Purchase{UserID: "u1", Description: "March shop time", Amount: decimal.RequireFromString("36.50"), Type: TypeInvoice}
	}
	tests := []struct {
		name    string
		mutate  func(*Purchase)
		wantErr error
	}{
		{"valid", func(*Purchase) {}, nil},
		{"valid with due date", func(p *Purchase) { p.DueDate = "2025-04-01" }, nil},
		{"no user", func(p *Purchase) { p.UserID = "" }, ErrEmptyUser},
		{"no description", func(p *Purchase) { p.Description = " " }, ErrEmptyDescription},
		{"zero amount", func(p *Purchase) { p.Amount = decimal.Zero }, ErrInvalidAmount},
		{"bad type", func(p *Purchase) { p.Type = "gift" }, ErrInvalidType},
		{"bad due date", func(p *Purchase) { p.DueDate = "next week" }, ErrInvalidDueDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPurchase_PaidLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Purchase{Status: StatusUnpaid, DueDate: "2025-03-01"}
	if !p.IsOverdue("2025-03-10") {
		t.Error("expected overdue")
	}
	p.MarkPaid(now)
	if p.Status != StatusPaid || !p.PaidAt.Equal(now) {
		t.Errorf("after MarkPaid: %+v", p)
	}
	if p.IsOverdue("2025-03-10") {
		t.Error("paid purchase cannot be overdue")
	}
	p.MarkUnpaid()
	if p.Status != StatusUnpaid || !p.PaidAt.IsZero() {
		t.Errorf("after MarkUnpaid: %+v", p)
	}
}
