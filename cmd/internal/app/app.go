// Package app wires the packs server runtime: config, logging, the Postgres
// pool, HTTP routes and the lapsed-invitation purger.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"packs/cmd/identity"
	"packs/cmd/internal/api"
	"packs/cmd/internal/invitation"
	"packs/cmd/internal/metrics"
	"packs/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the packs server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics     *metrics.Registry
	invitations *invitation.Service
	invitee     *api.Handler
}

// New constructs a fully wired App instance from config and logger.
// Without PACKS_DATABASE_URL only the health and metrics endpoints are served.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled")
		return a, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("db.enabled", "schema", cfg.DBSchema, "schema_applied", cfg.ApplySchema)

	if err := a.wire(pool); err != nil {
		pool.Close()
		return nil, err
	}
	a.dbPool = pool
	a.dbEnabled = true
	return a, nil
}

func (a *App) wire(pool *pgxpool.Pool) error {
	store, err := invitation.NewPostgresStore(pool, invitation.WithSchema(a.cfg.DBSchema))
	if err != nil {
		return err
	}
	svc, err := invitation.NewService(store, invitation.WithObserver(a.metrics))
	if err != nil {
		return err
	}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(a.cfg.DBSchema))
	if err != nil {
		return err
	}

	key, err := token.KeyFromString(a.cfg.TokenHMACKey, token.MinKeyBytes)
	if err != nil {
		return err
	}
	verifier, err := token.NewVerifier(key, a.cfg.TokenIssuer)
	if err != nil {
		return err
	}

	h, err := api.NewHandler(a.log, svc, users, verifier)
	if err != nil {
		return err
	}

	a.invitations = svc
	a.invitee = h
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, metricsHandler, a.invitee)

	var h http.Handler = mux
	h = WithSecurityHeaders(h)
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		h = WithCORS(h, a.cfg, a.log)
	}
	return WithRequestLogging(h, a.log, a.metrics)
}

// Run starts the HTTP server and the purger and blocks until context
// cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var wg sync.WaitGroup
	if a.invitations != nil && a.cfg.PurgeInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runPurger(bgCtx, a.log, a.invitations, a.cfg.PurgeInterval, a.metrics)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	stopBackground()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			runErr = err
		}
	}

	a.Close()
	a.log.Info("server.stopped")
	return runErr
}

// Close releases the database pool. It is safe to call more than once.
func (a *App) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
