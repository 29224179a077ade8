package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by Register and SeedAdmin.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// CreateAccountDeps holds dependencies for account creation.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	Now          func() time.Time
	GenerateID   func() string
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

func createAccount(ctx context.Context, name, email, password, userType string, deps CreateAccountDeps) (account.Account, error) {
	email = account.NormalizeEmail(email)
	_, err := deps.AccountStore.GetByEmail(ctx, email)
	if err == nil {
		return account.Account{}, invalid(ErrEmailAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, err
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		UserType:  userType,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, invalid(err)
	}
	if err := acct.SetPassword(password); err != nil {
		return account.Account{}, invalid(err)
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}
	slog.Info("auth_event", "event", "account_created", "email", email, "user_type", userType)
	return acct, nil
}

// ExecuteRegister creates a non-member account.
// PRE: name, email, and a password of at least account.MinPassword characters
// POST: Account created with hashed password and the non-member type
// INVARIANT: Email must be unique
func ExecuteRegister(ctx context.Context, input RegisterInput, deps CreateAccountDeps) (account.Account, error) {
	return createAccount(ctx, input.Name, input.Email, input.Password, account.TypeNonMember, deps)
}

// ExecuteSeedAdmin creates the configured admin account unless that email already exists.
// PRE: Database is migrated
// POST: an account with email exists; created reports whether this call made it
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) (created bool, err error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err = deps.AccountStore.GetByEmail(ctx, account.NormalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if _, err := createAccount(ctx, "Administrator", email, password, account.TypeAdmin, deps); err != nil {
		return false, err
	}
	slog.Info("auth_event", "event", "admin_seeded", "email", account.NormalizeEmail(email))
	return true, nil
}
