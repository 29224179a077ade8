package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/audit"
)

// AccountStore is the account persistence used by the admin user operations.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Delete(ctx context.Context, id string) error
}

// AccountDeps holds dependencies for user administration.
type AccountDeps struct {
	Accounts AccountStore
	Audit    AuditRecorder
	Now      func() time.Time
}

// UpdateUserInput changes the fields only an admin may change. Nil leaves a field alone.
type UpdateUserInput struct {
	Actor        Actor
	UserID       string
	UserType     *string
	IsInstructor *bool
}

// ExecuteUpdateUser changes a user's type and instructor flag.
// PRE: actor is admin
// POST: changes saved and one audit event recorded per changed field
func ExecuteUpdateUser(ctx context.Context, input UpdateUserInput, deps AccountDeps) (account.Account, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return account.Account{}, err
	}
	acct, err := deps.Accounts.GetByID(ctx, input.UserID)
	if err != nil {
		return account.Account{}, notFound(err, "user")
	}

	var changes []string
	if input.UserType != nil && *input.UserType != acct.UserType {
		if !account.IsValidType(*input.UserType) {
			return account.Account{}, invalid(account.ErrInvalidType)
		}
		if acct.ID == input.Actor.ID {
			return account.Account{}, invalidf("admins cannot change their own user type")
		}
		changes = append(changes, fmt.Sprintf("user type %s -> %s", acct.UserType, *input.UserType))
		acct.UserType = *input.UserType
	}
	if input.IsInstructor != nil && *input.IsInstructor != acct.IsInstructor {
		changes = append(changes, fmt.Sprintf("instructor %t -> %t", acct.IsInstructor, *input.IsInstructor))
		acct.IsInstructor = *input.IsInstructor
	}
	if len(changes) == 0 {
		return acct, nil
	}

	if err := deps.Accounts.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}
	now := deps.Now()
	for _, c := range changes {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.ID, audit.CategoryAccount, audit.ActionUpdate, now).
			WithResource("user", acct.ID).
			WithDescription(c))
	}
	slog.Info("auth_event", "event", "user_updated", "user_id", acct.ID, "changes", changes, "actor_id", input.Actor.ID)
	return acct, nil
}

// ExecuteDeleteUser removes an account with its bookings, certifications, and purchases.
// PRE: actor is admin and not deleting themselves
func ExecuteDeleteUser(ctx context.Context, actor Actor, userID string, deps AccountDeps) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if userID == actor.ID {
		return invalidf("admins cannot delete their own account")
	}
	acct, err := deps.Accounts.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "user")
	}
	if err := deps.Accounts.Delete(ctx, userID); err != nil {
		return notFound(err, "user")
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(actor.ID, audit.CategoryAccount, audit.ActionDelete, deps.Now()).
		WithResource("user", userID).
		WithDescription(acct.Email))
	slog.Info("auth_event", "event", "user_deleted", "user_id", userID, "actor_id", actor.ID)
	return nil
}

// UpdateProfileInput replaces the profile of UserID.
type UpdateProfileInput struct {
	Actor   Actor
	UserID  string
	Name    string
	Profile account.Profile
}

// ExecuteUpdateProfile updates contact details.
// PRE: actor is the user or an admin
// POST: Name (when given) and Profile replaced; user type and instructor flag untouched
func ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput, deps AccountDeps) (account.Account, error) {
	if input.Actor.ID != input.UserID && !input.Actor.IsAdmin() {
		return account.Account{}, ErrForbidden
	}
	acct, err := deps.Accounts.GetByID(ctx, input.UserID)
	if err != nil {
		return account.Account{}, notFound(err, "user")
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		acct.Name = name
	}
	p := input.Profile
	if p.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", p.BirthDate); err != nil {
			return account.Account{}, invalidf("birth date must be YYYY-MM-DD")
		}
	}
	acct.Profile = account.Profile{
		Address:               strings.TrimSpace(p.Address),
		Phone:                 strings.TrimSpace(p.Phone),
		BirthDate:             p.BirthDate,
		EmergencyContactName:  strings.TrimSpace(p.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(p.EmergencyContactPhone),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, invalid(err)
	}
	if err := deps.Accounts.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}
	slog.Info("auth_event", "event", "profile_updated", "user_id", acct.ID, "actor_id", input.Actor.ID)
	return acct, nil
}
