package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"makerspace/internal/adapters/events"
	web "makerspace/internal/adapters/http"
	"makerspace/internal/adapters/http/middleware"
	"makerspace/internal/adapters/http/perf"
	"makerspace/internal/adapters/storage"
	accountStore "makerspace/internal/adapters/storage/account"
	attendanceStore "makerspace/internal/adapters/storage/attendance"
	auditStore "makerspace/internal/adapters/storage/audit"
	bookingStore "makerspace/internal/adapters/storage/booking"
	certificationStore "makerspace/internal/adapters/storage/certification"
	classStore "makerspace/internal/adapters/storage/class"
	purchaseStore "makerspace/internal/adapters/storage/purchase"
	"makerspace/internal/application/orchestrators"
	"makerspace/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("startup_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	// WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		return err
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, time.Duration(cfg.SlowQueryMs)*time.Millisecond)

	acctStore := accountStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:       acctStore,
		BookingStore:       bookingStore.NewSQLiteStore(timedDB),
		ClassStore:         classStore.NewSQLiteStore(timedDB),
		AttendanceStore:    attendanceStore.NewSQLiteStore(timedDB),
		CertificationStore: certificationStore.NewSQLiteStore(timedDB),
		PurchaseStore:      purchaseStore.NewSQLiteStore(timedDB),
		AuditStore:         auditStore.NewSQLiteStore(timedDB),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seedDeps := orchestrators.CreateAccountDeps{
		AccountStore: acctStore,
		Now:          time.Now,
		GenerateID:   func() string { return uuid.New().String() },
	}
	if _, err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}
	if !cfg.IsProduction() && cfg.AdminPassword != "" {
		if _, err := orchestrators.ExecuteSeedTestAccounts(ctx, seedDeps, cfg.AdminPassword); err != nil {
			return err
		}
	}

	var publisher events.Publisher = events.NewNoopPublisher()
	if cfg.AMQPURL != "" {
		amqpPub := events.NewAMQPPublisher(cfg.AMQPURL)
		defer amqpPub.Close()
		publisher = amqpPub
		slog.Info("startup", "event", "publisher", "kind", "amqp")
	}

	limiter := newLimiter(ctx, cfg)

	handler, err := web.NewMux(stores, web.Options{
		Location:    cfg.Location,
		Publisher:   publisher,
		Collector:   collector,
		Limiter:     limiter,
		RateLimit:   cfg.RateLimitPerSecond,
		CSRFKey:     cfg.CSRFKey,
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		SlowRequest: time.Duration(cfg.SlowRequestMs) * time.Millisecond,
		Secure:      cfg.IsProduction(),
		Ping:        timedDB.PingContext,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("startup", "event", "listening", "version", version, "addr", cfg.Addr,
			"env", cfg.Env, "schema", storage.LatestSchemaVersion(), "tz", cfg.Location.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown", "event", "draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// newLimiter uses redis when configured and reachable, otherwise an in-memory limiter swept in the background.
func newLimiter(ctx context.Context, cfg config.Config) middleware.Limiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			slog.Info("startup", "event", "rate_limiter", "kind", "redis", "addr", cfg.RedisAddr)
			return middleware.NewRedisLimiter(client, cfg.RateLimitPerSecond, time.Second)
		}
		slog.Warn("startup", "event", "rate_limiter_fallback", "addr", cfg.RedisAddr, "error", err.Error())
		client.Close()
	}
	ml := middleware.NewMemoryLimiter(cfg.RateLimitPerSecond, time.Second)
	go ml.RunSweeper(ctx)
	return ml
}
