package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"makerspace/internal/domain/account"
)

// testAccountDef defines a single development account to seed.
type testAccountDef struct {
	Name         string
	Email        string
	UserType     string
	IsInstructor bool
}

// testAccounts returns one account per user type plus an instructor.
func testAccounts() []testAccountDef {
	return []testAccountDef{
		{Name: "Test Member", Email: "member@makerspace.local", UserType: account.TypeMember},
		{Name: "Test Non-Member", Email: "nonmember@makerspace.local", UserType: account.TypeNonMember},
		{Name: "Test Steward", Email: "steward@makerspace.local", UserType: account.TypeSteward},
		{Name: "Test Cave Pro", Email: "cavepro@makerspace.local", UserType: account.TypeCavePro},
		{Name: "Test Instructor", Email: "instructor@makerspace.local", UserType: account.TypeMember, IsInstructor: true},
	}
}

// ExecuteSeedTestAccounts creates the development accounts that do not exist yet.
// It is idempotent: accounts are matched by email.
// PRE: Database is migrated; password meets account.MinPassword
// POST: every account from testAccounts exists; returns how many were created
func ExecuteSeedTestAccounts(ctx context.Context, deps CreateAccountDeps, password string) (int, error) {
	created := 0
	for _, def := range testAccounts() {
		if _, err := deps.AccountStore.GetByEmail(ctx, def.Email); err == nil {
			continue
		}
		acct, err := createAccount(ctx, def.Name, def.Email, password, def.UserType, deps)
		if err != nil {
			return created, fmt.Errorf("seed test account %s: %w", def.Email, err)
		}
		if def.IsInstructor {
			acct.IsInstructor = true
			if err := deps.AccountStore.Save(ctx, acct); err != nil {
				return created, fmt.Errorf("seed test account %s: save: %w", def.Email, err)
			}
		}
		created++
	}

	if created > 0 {
		slog.Info("seed_event", "event", "test_accounts_seeded", "created", created)
	}
	return created, nil
}
