package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/audit"
)

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeAccounts()
	ctx := context.Background()
	createDeps := CreateAccountDeps{AccountStore: store, Now: clock, GenerateID: sequentialIDs("acct")}

	acct, err := ExecuteRegister(ctx, RegisterInput{Name: "Robin", Email: " Robin@Example.com ", Password: "correct horse"}, createDeps)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acct.UserType != account.TypeNonMember || acct.Email != "robin@example.com" || acct.PasswordHash == "" {
		t.Errorf("account = %+v", acct)
	}
	if _, err := ExecuteRegister(ctx, RegisterInput{Name: "Robin", Email: "robin@example.com", Password: "another pass"}, createDeps); !errors.Is(err, ErrValidation) {
		t.Errorf("duplicate email err = %v", err)
	}
	if _, err := ExecuteRegister(ctx, RegisterInput{Name: "Short", Email: "s@example.com", Password: "short"}, createDeps); !errors.Is(err, ErrValidation) {
		t.Errorf("short password err = %v", err)
	}

	now := fixedNow
	loginDeps := LoginDeps{AccountStore: store, Now: func() time.Time { return now }}

	got, err := ExecuteLogin(ctx, LoginInput{Email: "ROBIN@example.com", Password: "correct horse"}, loginDeps)
	if err != nil || got.ID != acct.ID {
		t.Fatalf("login: %+v %v", got, err)
	}

	for i := 0; i < 5; i++ {
		if _, err := ExecuteLogin(ctx, LoginInput{Email: "robin@example.com", Password: "wrong"}, loginDeps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: "robin@example.com", Password: "correct horse"}, loginDeps); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("locked login err = %v", err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := ExecuteLogin(ctx, LoginInput{Email: "robin@example.com", Password: "correct horse"}, loginDeps); err != nil {
		t.Errorf("login after lock expiry: %v", err)
	}
	if store.accounts[acct.ID].FailedLogins != 0 {
		t.Error("failed logins should reset on success")
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever1"}, loginDeps); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	store := newFakeAccounts()
	deps := CreateAccountDeps{AccountStore: store, Now: clock, GenerateID: sequentialIDs("acct")}
	ctx := context.Background()

	created, err := ExecuteSeedAdmin(ctx, deps, "admin@makerspace.test", "admin-password")
	if err != nil || !created {
		t.Fatalf("seed: %v %v", created, err)
	}
	created, err = ExecuteSeedAdmin(ctx, deps, "admin@makerspace.test", "admin-password")
	if err != nil || created {
		t.Errorf("second seed: %v %v", created, err)
	}
	if len(store.accounts) != 1 {
		t.Errorf("accounts = %d", len(store.accounts))
	}
	for _, a := range store.accounts {
		if a.UserType != account.TypeAdmin {
			t.Errorf("seeded type = %q", a.UserType)
		}
	}
	if created, _ := ExecuteSeedAdmin(ctx, deps, "", ""); created {
		t.Error("empty config should not seed")
	}
}

func TestChangePassword(t *testing.T) {
	acct := user("u1", account.TypeMember)
	if err := acct.SetPassword("first-password"); err != nil {
		t.Fatal(err)
	}
	store := newFakeAccounts(acct)
	ctx := context.Background()

	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: "nope-nope", NewPassword: "second-password"}, store); !errors.Is(err, ErrValidation) {
		t.Errorf("wrong current err = %v", err)
	}
	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: "first-password", NewPassword: "first-password"}, store); !errors.Is(err, ErrNewPasswordSame) {
		t.Errorf("same password err = %v", err)
	}
	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: "first-password", NewPassword: "second-password"}, store); err != nil {
		t.Fatalf("change: %v", err)
	}
	updated := store.accounts["u1"]
	if err := updated.CheckPassword("second-password"); err != nil {
		t.Error("new password not stored")
	}
}

func TestUpdateUser(t *testing.T) {
	store := newFakeAccounts(user("u1", account.TypeNonMember), user("a1", account.TypeAdmin))
	auditLog := &fakeAudit{}
	deps := AccountDeps{Accounts: store, Audit: auditLog, Now: clock}
	ctx := context.Background()
	member, yes := account.TypeMember, true

	got, err := ExecuteUpdateUser(ctx, UpdateUserInput{Actor: adminActor, UserID: "u1", UserType: &member, IsInstructor: &yes}, deps)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.UserType != account.TypeMember || !got.IsInstructor {
		t.Errorf("account = %+v", got)
	}
	if len(auditLog.events) != 2 || auditLog.events[0].Category != audit.CategoryAccount {
		t.Errorf("audit = %+v", auditLog.events)
	}

	bogus := "wizard"
	tests := []struct {
		name  string
		input UpdateUserInput
		want  error
	}{
		{"non-admin", UpdateUserInput{Actor: Actor{ID: "u1", UserType: account.TypeMember}, UserID: "u1", UserType: &member}, ErrForbidden},
		{"bad type", UpdateUserInput{Actor: adminActor, UserID: "u1", UserType: &bogus}, ErrValidation},
		{"self demotion", UpdateUserInput{Actor: adminActor, UserID: "a1", UserType: &member}, ErrValidation},
		{"missing user", UpdateUserInput{Actor: adminActor, UserID: "ghost", IsInstructor: &yes}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExecuteUpdateUser(ctx, tt.input, deps); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteUserAndProfile(t *testing.T) {
	store := newFakeAccounts(user("u1", account.TypeMember), user("u2", account.TypeMember), user("a1", account.TypeAdmin))
	deps := AccountDeps{Accounts: store, Audit: &fakeAudit{}, Now: clock}
	ctx := context.Background()
	member := Actor{ID: "u1", UserType: account.TypeMember}

	p, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{Actor: member, UserID: "u1", Profile: account.Profile{Phone: " 555-0100 ", BirthDate: "1990-04-01"}}, deps)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Profile.Phone != "555-0100" || p.UserType != account.TypeMember {
		t.Errorf("profile = %+v", p)
	}
	if _, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{Actor: member, UserID: "u2"}, deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("other profile err = %v", err)
	}
	if _, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{Actor: member, UserID: "u1", Profile: account.Profile{BirthDate: "April"}}, deps); !errors.Is(err, ErrValidation) {
		t.Errorf("bad birth date err = %v", err)
	}

	if err := ExecuteDeleteUser(ctx, member, "u2", deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("member delete err = %v", err)
	}
	if err := ExecuteDeleteUser(ctx, adminActor, "a1", deps); !errors.Is(err, ErrValidation) {
		t.Errorf("self delete err = %v", err)
	}
	if err := ExecuteDeleteUser(ctx, adminActor, "u2", deps); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.accounts["u2"]; ok {
		t.Error("account still stored")
	}
}
