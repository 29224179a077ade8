package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"makerspace/internal/domain/audit"
	"makerspace/internal/domain/purchase"
)

// PurchaseStore defines purchase persistence for billing administration.
type PurchaseStore interface {
	GetByID(ctx context.Context, id string) (purchase.Purchase, error)
	Save(ctx context.Context, p purchase.Purchase) error
	Delete(ctx context.Context, userID, id string) error
}

// PurchaseDeps holds dependencies for manual billing.
type PurchaseDeps struct {
	Purchases  PurchaseStore
	Accounts   AccountGetter
	Audit      AuditRecorder
	Now        func() time.Time
	GenerateID func() string
}

// CreatePurchaseInput records a manual charge.
type CreatePurchaseInput struct {
	Actor       Actor
	UserID      string
	Description string
	Amount      decimal.Decimal
	Type        string
	DueDate     string
}

// ExecuteCreatePurchase records a manual charge against a user.
// PRE: actor is admin
// POST: purchase stored unpaid and audited
func ExecuteCreatePurchase(ctx context.Context, input CreatePurchaseInput, deps PurchaseDeps) (purchase.Purchase, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return purchase.Purchase{}, err
	}
	if _, err := deps.Accounts.GetByID(ctx, input.UserID); err != nil {
		return purchase.Purchase{}, notFound(err, "user")
	}
	kind := input.Type
	if kind == "" {
		kind = purchase.TypeInvoice
	}
	p := purchase.Purchase{
		ID:          deps.GenerateID(),
		UserID:      input.UserID,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Type:        kind,
		Status:      purchase.StatusUnpaid,
		DueDate:     strings.TrimSpace(input.DueDate),
		CreatedBy:   input.Actor.ID,
		CreatedAt:   deps.Now(),
	}
	if err := p.Validate(); err != nil {
		return purchase.Purchase{}, invalid(err)
	}
	if err := deps.Purchases.Save(ctx, p); err != nil {
		return purchase.Purchase{}, err
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.ID, audit.CategoryBilling, audit.ActionCreate, p.CreatedAt).
		WithResource("purchase", p.ID).
		WithDescription(fmt.Sprintf("%s %s for %s", p.Type, p.Amount.StringFixed(2), p.UserID)))
	slog.Info("billing_event", "event", "purchase_created", "purchase_id", p.ID, "user_id", p.UserID, "amount", p.Amount.StringFixed(2))
	return p, nil
}

// SetPurchaseStatusInput marks a purchase paid or unpaid.
type SetPurchaseStatusInput struct {
	Actor      Actor
	UserID     string
	PurchaseID string
	Status     string
}

// ExecuteSetPurchaseStatus toggles payment state.
// PRE: actor is admin
// POST: PaidAt is set when paid and cleared when unpaid
func ExecuteSetPurchaseStatus(ctx context.Context, input SetPurchaseStatusInput, deps PurchaseDeps) (purchase.Purchase, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return purchase.Purchase{}, err
	}
	p, err := deps.Purchases.GetByID(ctx, input.PurchaseID)
	if err != nil {
		return purchase.Purchase{}, notFound(err, "purchase")
	}
	if p.UserID != input.UserID {
		return purchase.Purchase{}, fmt.Errorf("purchase %w", ErrNotFound)
	}
	switch input.Status {
	case purchase.StatusPaid:
		if p.Status != purchase.StatusPaid {
			p.MarkPaid(deps.Now())
		}
	case purchase.StatusUnpaid:
		p.MarkUnpaid()
	default:
		return purchase.Purchase{}, invalidf("status must be paid or unpaid")
	}
	if err := deps.Purchases.Save(ctx, p); err != nil {
		return purchase.Purchase{}, err
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.ID, audit.CategoryBilling, audit.ActionUpdate, deps.Now()).
		WithResource("purchase", p.ID).
		WithDescription("status "+p.Status))
	return p, nil
}

// ExecuteDeletePurchase removes a purchase.
// PRE: actor is admin
func ExecuteDeletePurchase(ctx context.Context, actor Actor, userID, purchaseID string, deps PurchaseDeps) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := deps.Purchases.Delete(ctx, userID, purchaseID); err != nil {
		return notFound(err, "purchase")
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(actor.ID, audit.CategoryBilling, audit.ActionDelete, deps.Now()).
		WithResource("purchase", purchaseID))
	return nil
}
