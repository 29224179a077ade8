package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"makerspace/internal/domain/account"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// AccountStoreForChangePassword defines the store interface needed by ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

var (
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
)

// ExecuteChangePassword validates the current password and updates to the new one.
// PRE: AccountID is valid, both passwords are non-empty
// POST: Password is updated and any lockout is cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, store AccountStoreForChangePassword) error {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return invalidf("current and new password are required")
	}

	acct, err := store.GetByID(ctx, input.AccountID)
	if err != nil {
		return notFound(err, "user")
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		return invalid(ErrCurrentPasswordWrong)
	}
	if input.CurrentPassword == input.NewPassword {
		return invalid(ErrNewPasswordSame)
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return invalid(err)
	}
	acct.ResetFailedLogins()

	if err := store.Save(ctx, acct); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "password_changed", "account_id", input.AccountID)
	return nil
}
