package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/adapters/events"
	"makerspace/internal/domain/audit"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/event"
	"makerspace/internal/domain/shoparea"
)

// CertificationGranter inserts certifications idempotently.
type CertificationGranter interface {
	Grant(ctx context.Context, c certification.Certification) (bool, error)
}

// CertificationStore is the full certification persistence used by admin operations.
type CertificationStore interface {
	CertificationGranter
	CertificationLister
	Delete(ctx context.Context, userID, id string) (certification.Certification, error)
}

// CertificationDeps holds dependencies for grant and revoke.
type CertificationDeps struct {
	Certifications CertificationStore
	Accounts       AccountGetter
	Catalog        *shoparea.Catalog
	Rules          *certrule.Table
	Audit          AuditRecorder
	Events         events.Publisher
	Now            func() time.Time
	GenerateID     func() string
}

// GrantCertificationInput names the user and area.
type GrantCertificationInput struct {
	Actor    Actor
	UserID   string
	ShopArea string
}

// knownArea accepts rule-table areas (including tool-only ones) and bookable catalog areas.
func knownArea(rules *certrule.Table, catalog *shoparea.Catalog, name string) bool {
	if _, ok := rules.Requirement(name); ok {
		return true
	}
	_, ok := catalog.Lookup(name)
	return ok
}

// grantOne issues a certification and emits its side effects when newly created.
func grantOne(ctx context.Context, c certification.Certification, granter CertificationGranter, auditStore AuditRecorder, pub events.Publisher) (bool, error) {
	created, err := granter.Grant(ctx, c)
	if err != nil || !created {
		return false, err
	}
	slog.Info("certification_event", "event", "granted", "user_id", c.UserID, "shop_area", c.ShopArea, "granted_by", c.GrantedBy, "source", c.Source)
	recordAudit(ctx, auditStore, audit.NewEvent(c.GrantedBy, audit.CategoryCertification, audit.ActionGrant, c.GrantedAt).
		WithResource("user", c.UserID).
		WithDescription(c.ShopArea+" ("+c.Source+")"))
	events.PublishQuietly(ctx, pub, event.New(event.TypeCertificationGranted, event.CertificationGranted{
		CertificationID: c.ID,
		UserID:          c.UserID,
		ShopArea:        c.ShopArea,
		GrantedBy:       c.GrantedBy,
		Source:          c.Source,
	}, c.GrantedAt))
	return true, nil
}

// ExecuteGrantCertification lets an admin grant an area certification.
// PRE: actor is admin
// POST: the user holds the certification; created is false if it was already held
func ExecuteGrantCertification(ctx context.Context, input GrantCertificationInput, deps CertificationDeps) (created bool, err error) {
	if err := requireAdmin(input.Actor); err != nil {
		return false, err
	}
	area := strings.TrimSpace(input.ShopArea)
	if area == "" {
		return false, invalid(certification.ErrEmptyArea)
	}
	if !knownArea(deps.Rules, deps.Catalog, area) {
		return false, invalidf("unknown shop area %q", area)
	}
	if _, err := deps.Accounts.GetByID(ctx, input.UserID); err != nil {
		return false, notFound(err, "user")
	}

	c := certification.Certification{
		ID:        deps.GenerateID(),
		UserID:    input.UserID,
		ShopArea:  area,
		GrantedBy: input.Actor.ID,
		Source:    certification.SourceAdmin,
		GrantedAt: deps.Now(),
	}
	return grantOne(ctx, c, deps.Certifications, deps.Audit, deps.Events)
}

// ExecuteRevokeCertification lets an admin remove a held certification.
// PRE: actor is admin
// POST: certification deleted and audited
func ExecuteRevokeCertification(ctx context.Context, actor Actor, userID, certID string, deps CertificationDeps) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	removed, err := deps.Certifications.Delete(ctx, userID, certID)
	if err != nil {
		return notFound(err, "certification")
	}
	slog.Info("certification_event", "event", "revoked", "user_id", userID, "shop_area", removed.ShopArea, "actor_id", actor.ID)
	recordAudit(ctx, deps.Audit, audit.NewEvent(actor.ID, audit.CategoryCertification, audit.ActionRevoke, deps.Now()).
		WithResource("user", userID).
		WithDescription(removed.ShopArea))
	return nil
}

// CheckCertification evaluates the gate for a user and area without booking.
// Non-admin actors may only check themselves.
func CheckCertification(ctx context.Context, actor Actor, userID, shopArea string, deps CertificationDeps) (certification.Decision, error) {
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.IsAdmin() {
		return certification.Decision{}, ErrForbidden
	}
	acct, err := deps.Accounts.GetByID(ctx, userID)
	if err != nil {
		return certification.Decision{}, notFound(err, "user")
	}
	held, err := deps.Certifications.ListByUser(ctx, userID)
	if err != nil {
		return certification.Decision{}, err
	}
	return certification.Check(deps.Rules, certification.NewPrincipal(acct.ID, acct.UserType, held), strings.TrimSpace(shopArea)), nil
}
