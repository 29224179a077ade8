package web

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"makerspace/internal/adapters/events"
	"makerspace/internal/adapters/http/middleware"
	"makerspace/internal/adapters/http/perf"
	accountStore "makerspace/internal/adapters/storage/account"
	attendanceStore "makerspace/internal/adapters/storage/attendance"
	auditStore "makerspace/internal/adapters/storage/audit"
	bookingStore "makerspace/internal/adapters/storage/booking"
	certificationStore "makerspace/internal/adapters/storage/certification"
	classStore "makerspace/internal/adapters/storage/class"
	purchaseStore "makerspace/internal/adapters/storage/purchase"
	domainAccount "makerspace/internal/domain/account"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/shoparea"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore       accountStore.Store
	BookingStore       bookingStore.Store
	ClassStore         classStore.Store
	AttendanceStore    attendanceStore.Store
	CertificationStore certificationStore.Store
	PurchaseStore      purchaseStore.Store
	AuditStore         auditStore.Store
}

// Options configures the HTTP surface.
type Options struct {
	Catalog        *shoparea.Catalog
	Rules          *certrule.Table
	Location       *time.Location
	Publisher      events.Publisher
	Collector      *perf.Collector
	Limiter        middleware.Limiter
	RateLimit      int
	CSRFKey        []byte // nil generates a per-process key
	JWTSecret      []byte // nil generates a per-process secret
	TokenTTL       time.Duration
	SlowRequest    time.Duration
	Secure         bool
	TrustedOrigins []string
	Ping           func(ctx context.Context) error
}

// Global stores instance (set by NewMux)
var stores *Stores

// Process-wide collaborators (set by NewMux, replaced in tests).
var (
	sessions      *middleware.SessionStore
	tokens        *middleware.TokenIssuer
	perfCollector *perf.Collector
	catalog       = shoparea.Default()
	rules         = certrule.Default()
	location      = time.UTC
	publisher     events.Publisher = events.NewNoopPublisher()
	pingDB        func(ctx context.Context) error
)

// NewMux wires HTTP handlers and the middleware chain.
// PRE: s holds every store
// POST: returns the root handler; package globals point at s and opts
func NewMux(s *Stores, opts Options) (http.Handler, error) {
	stores = s
	perfCollector = opts.Collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = opts.Secure
	if opts.Catalog != nil {
		catalog = opts.Catalog
	}
	if opts.Rules != nil {
		rules = opts.Rules
	}
	if opts.Location != nil {
		location = opts.Location
	}
	if opts.Publisher != nil {
		publisher = opts.Publisher
	}
	pingDB = opts.Ping

	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	var err error
	if tokens, err = middleware.NewTokenIssuer(opts.JWTSecret, ttl); err != nil {
		return nil, err
	}

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		slog.Warn("auth_event", "event", "random_csrf_key", "detail", "form sessions will not survive restart")
	}

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewMemoryLimiter(rate, time.Second)
	}

	mux := http.NewServeMux()
	registerRoutes(mux)

	// Outermost first at request time: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.Secure, opts.TrustedOrigins),
		middleware.Auth(sessions, tokens, loadAccount),
		middleware.RateLimit(limiter, rate),
		middleware.Timing(opts.Collector, opts.SlowRequest),
	), nil
}

func loadAccount(ctx context.Context, id string) (domainAccount.Account, error) {
	return stores.AccountStore.GetByID(ctx, id)
}

func authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func adminOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(h)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealthz)

	// Auth
	mux.HandleFunc("POST /api/auth/register", handleRegister)
	mux.HandleFunc("POST /api/auth/login", handleAPILogin)
	mux.HandleFunc("POST /login", handleFormLogin)
	mux.HandleFunc("POST /api/auth/logout", handleLogout)
	mux.Handle("GET /api/auth/me", authed(handleMe))
	mux.Handle("POST /api/auth/password", authed(handleChangePassword))

	// Catalog, availability, and the certification gate
	mux.HandleFunc("GET /api/shop-areas", handleShopAreas)
	mux.HandleFunc("GET /api/availability/hours", handleAvailableHours)
	mux.HandleFunc("GET /api/availability/slots", handleSlotAvailability)
	mux.HandleFunc("GET /api/availability/day", handleDayAvailability)
	mux.HandleFunc("GET /api/certifications/rules", handleCertificationRules)
	mux.HandleFunc("GET /api/certifications/areas", handleCertificationAreas)
	mux.Handle("GET /api/certifications/check", authed(handleCertificationCheck))

	// Bookings
	mux.Handle("GET /api/bookings", authed(handleListBookings))
	mux.Handle("POST /api/bookings", authed(handleCreateBooking))
	mux.Handle("GET /api/bookings/{id}", authed(handleGetBooking))
	mux.Handle("PUT /api/bookings/{id}", authed(handleRescheduleBooking))
	mux.Handle("DELETE /api/bookings/{id}", authed(handleCancelBooking))

	// Users
	mux.Handle("GET /api/users", adminOnly(handleListUsers))
	mux.Handle("GET /api/users/instructors", authed(handleListInstructors))
	mux.Handle("PATCH /api/users/{id}", adminOnly(handleUpdateUser))
	mux.Handle("DELETE /api/users/{id}", adminOnly(handleDeleteUser))
	mux.Handle("GET /api/users/{id}/profile", authed(handleGetProfile))
	mux.Handle("PUT /api/users/{id}/profile", authed(handleUpdateProfile))

	// Earned certifications
	mux.Handle("GET /api/users/{id}/certifications", authed(handleUserCertifications))
	mux.Handle("POST /api/users/{id}/certifications", adminOnly(handleGrantCertification))
	mux.Handle("DELETE /api/users/{id}/certifications/{certId}", adminOnly(handleRevokeCertification))

	// Purchases
	mux.Handle("GET /api/users/{id}/purchases", authed(handleListPurchases))
	mux.Handle("POST /api/users/{id}/purchases", adminOnly(handleCreatePurchase))
	mux.Handle("PATCH /api/users/{id}/purchases/{purchaseId}", adminOnly(handleSetPurchaseStatus))
	mux.Handle("DELETE /api/users/{id}/purchases/{purchaseId}", adminOnly(handleDeletePurchase))

	// Classes, enrollment, attendance
	mux.HandleFunc("GET /api/classes", handleListClasses)
	mux.Handle("POST /api/classes", adminOnly(handleCreateClass))
	mux.HandleFunc("GET /api/classes/{id}", handleGetClass)
	mux.Handle("PUT /api/classes/{id}", adminOnly(handleUpdateClass))
	mux.Handle("DELETE /api/classes/{id}", adminOnly(handleDeleteClass))
	mux.Handle("GET /api/instructor/classes", authed(handleInstructorClasses))
	mux.Handle("POST /api/classes/{id}/enroll", authed(handleSelfEnroll))
	mux.Handle("GET /api/classes/{id}/students", authed(handleListStudents))
	mux.Handle("POST /api/classes/{id}/students", authed(handleAddStudent))
	mux.Handle("DELETE /api/classes/{id}/students/{studentId}", authed(handleRemoveStudent))
	mux.Handle("GET /api/classes/{id}/attendance", authed(handleAttendanceSheet))
	mux.Handle("POST /api/classes/{id}/attendance", authed(handleMarkAttendance))

	// Admin
	mux.Handle("GET /api/admin/audit", adminOnly(handleAdminAudit))
	mux.Handle("GET /api/admin/perf", adminOnly(handleAdminPerf))
}
