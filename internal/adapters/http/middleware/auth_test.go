package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainAccount "makerspace/internal/domain/account"
)

func loaderFor(accounts ...domainAccount.Account) AccountLoader {
	byID := make(map[string]domainAccount.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return func(_ context.Context, id string) (domainAccount.Account, error) {
		a, ok := byID[id]
		if !ok {
			return domainAccount.Account{}, sql.ErrNoRows
		}
		return a, nil
	}
}

func principalEcho(t *testing.T, want string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		got := ""
		if ok {
			got = p.Account.ID + "/" + p.Via
		}
		if got != want {
			t.Errorf("principal = %q, want %q", got, want)
		}
	})
}

func TestAuth_ResolvesCallers(t *testing.T) {
	member := domainAccount.Account{ID: "m1", UserType: domainAccount.TypeMember}
	sessions := NewSessionStore()
	tokens, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sessionToken, _ := sessions.Create("m1")
	bearer, _, _ := tokens.Issue(member)
	ghostBearer, _, _ := tokens.Issue(domainAccount.Account{ID: "ghost"})

	tests := []struct {
		name   string
		cookie string
		auth   string
		want   string
	}{
		{"anonymous", "", "", ""},
		{"session cookie", sessionToken, "", "m1/session"},
		{"bearer", "", "Bearer " + bearer, "m1/bearer"},
		{"lowercase scheme", "", "bearer " + bearer, "m1/bearer"},
		{"bad bearer", "", "Bearer nope", ""},
		{"unknown session", "stale", "", ""},
		{"deleted account", "", "Bearer " + ghostBearer, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			Auth(sessions, tokens, loaderFor(member))(principalEcho(t, tt.want)).ServeHTTP(httptest.NewRecorder(), req)
		})
	}
}

func TestTokenIssuer_RejectsExpiredAndForeign(t *testing.T) {
	issuer, _ := NewTokenIssuer([]byte("a"), time.Minute)
	other, _ := NewTokenIssuer([]byte("b"), time.Minute)
	acct := domainAccount.Account{ID: "u1", UserType: domainAccount.TypeMember}

	tok, _, _ := issuer.Issue(acct)
	if sub, err := issuer.Verify(tok); err != nil || sub != "u1" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}
	if _, err := other.Verify(tok); err == nil {
		t.Error("token signed with another secret should fail")
	}
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Verify(tok); err == nil {
		t.Error("expired token should fail")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ss := NewSessionStore()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	ss.now = func() time.Time { return now }
	tok, _ := ss.Create("u1")
	if id, ok := ss.Get(tok); !ok || id != "u1" {
		t.Fatalf("Get = %q, %v", id, ok)
	}
	now = now.Add(SessionTTL + time.Second)
	if _, ok := ss.Get(tok); ok {
		t.Error("session should have expired")
	}

	now = now.Add(time.Hour)
	a, _ := ss.Create("u2")
	b, _ := ss.Create("u2")
	ss.DeleteAccount("u2")
	if _, ok := ss.Get(a); ok {
		t.Error("DeleteAccount should drop every session")
	}
	if _, ok := ss.Get(b); ok {
		t.Error("DeleteAccount should drop every session")
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	tests := []struct {
		name     string
		userType string
		want     int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"member", domainAccount.TypeMember, http.StatusForbidden},
		{"admin", domainAccount.TypeAdmin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("DELETE", "/api/users/x", nil)
			if tt.userType != "" {
				req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{
					Account: domainAccount.Account{ID: "p", UserType: tt.userType},
				}))
			}
			rr := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
