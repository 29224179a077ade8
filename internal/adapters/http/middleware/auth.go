package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainAccount "makerspace/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const principalContextKey contextKey = "principal"

// Authentication methods recorded on a Principal.
const (
	ViaSession = "session"
	ViaBearer  = "bearer"
)

// Principal is the authenticated caller, reloaded from storage on every request
// so user type and instructor changes apply without a new login.
type Principal struct {
	Account domainAccount.Account
	Via     string
}

// SessionTTL bounds how long a cookie session stays valid.
const SessionTTL = 24 * time.Hour

type session struct {
	AccountID string
	CreatedAt time.Time
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Create stores a new session and returns its token.
// PRE: accountID is non-empty
func (ss *SessionStore) Create(accountID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = session{AccountID: accountID, CreatedAt: ss.now()}
	return token, nil
}

// Get returns the account ID for a live session token.
// POST: expired sessions are removed and reported missing
func (ss *SessionStore) Get(token string) (string, bool) {
	ss.mu.RLock()
	s, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return "", false
	}
	if ss.now().Sub(s.CreatedAt) > SessionTTL {
		ss.Delete(token)
		return "", false
	}
	return s.AccountID, true
}

// Delete removes a session by token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// DeleteAccount drops every session belonging to an account.
func (ss *SessionStore) DeleteAccount(accountID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for token, s := range ss.sessions {
		if s.AccountID == accountID {
			delete(ss.sessions, token)
		}
	}
}

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and verifies HS256 bearer access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type accessClaims struct {
	UserType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewTokenIssuer returns an issuer for the given secret. A nil secret is replaced by a random one.
// PRE: ttl > 0
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("auth_event", "event", "random_jwt_secret", "detail", "bearer tokens will not survive restart")
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs an access token for an account.
// POST: returns the token and its expiry
func (ti *TokenIssuer) Issue(a domainAccount.Account) (string, time.Time, error) {
	now := ti.now().UTC()
	exp := now.Add(ti.ttl)
	claims := accessClaims{
		UserType: a.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses a token and returns its subject.
func (ti *TokenIssuer) Verify(raw string) (string, error) {
	var claims accessClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// AccountLoader fetches the current account for an authenticated ID.
type AccountLoader func(ctx context.Context, id string) (domainAccount.Account, error)

const sessionCookieName = "makerspace_session"

// SecureCookies controls the Secure flag on session cookies. Set true in production.
var SecureCookies bool

// Auth resolves the caller from a bearer token or the session cookie and stores it in context.
// It does NOT block unauthenticated requests; use RequireAuth or RequireAdmin for that.
// A bearer header that fails verification is treated as anonymous.
func Auth(sessions *SessionStore, tokens *TokenIssuer, load AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, via := "", ""
			if raw, ok := bearerToken(r); ok && tokens != nil {
				if sub, err := tokens.Verify(raw); err == nil {
					id, via = sub, ViaBearer
				} else {
					slog.Debug("auth_event", "event", "bearer_rejected", "path", r.URL.Path)
				}
			} else if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				if sub, ok := sessions.Get(cookie.Value); ok {
					id, via = sub, ViaSession
				}
			}
			if id != "" {
				acct, err := load(r.Context(), id)
				if err == nil {
					r = r.WithContext(ContextWithPrincipal(r.Context(), Principal{Account: acct, Via: via}))
				} else {
					slog.Info("auth_event", "event", "principal_missing", "account_id", id, "error", err.Error())
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[7:])
	return raw, raw != ""
}

// RequireAuth blocks unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipal(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin blocks callers that are not admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.Account.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal extracts the caller from the request context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// ContextWithPrincipal returns a context carrying p.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// SessionToken returns the session cookie value, if any.
func SessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
