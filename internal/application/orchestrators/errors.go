package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/audit"
	"makerspace/internal/domain/certification"
)

// Error classes shared by every orchestrator. The HTTP layer maps them to status codes.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
)

// ValidationError carries the user-facing reason for rejected input.
// errors.Is(err, ErrValidation) holds for every ValidationError.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// CertificationDeniedError is returned when the certification gate refuses a booking.
// It carries the remediation text from the rule table.
type CertificationDeniedError struct {
	ShopArea string
	Decision certification.Decision
}

func (e *CertificationDeniedError) Error() string {
	return e.Decision.Message
}

// Is makes a gate denial match ErrForbidden.
func (e *CertificationDeniedError) Is(target error) bool { return target == ErrForbidden }

// notFound converts a store miss into ErrNotFound, passing other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID           string
	UserType     string
	IsInstructor bool
}

// IsAdmin reports whether the actor bypasses ownership and gate checks.
func (a Actor) IsAdmin() bool {
	return a.UserType == account.TypeAdmin
}

// ActorFor builds an Actor from a stored account.
func ActorFor(a account.Account) Actor {
	return Actor{ID: a.ID, UserType: a.UserType, IsInstructor: a.IsInstructor}
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, e audit.Event) error
}

// recordAudit writes e; a failure is logged and never fails the audited operation.
func recordAudit(ctx context.Context, store AuditRecorder, e audit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_write_failed", "category", e.Category, "action", e.Action, "error", err)
	}
}
