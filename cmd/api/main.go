package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/config"
	"academy/internal/handler"
	"academy/internal/httpmiddleware"
	"academy/internal/identity"
	"academy/internal/logging"
	"academy/internal/memstore"
	"academy/internal/reports"
	"academy/internal/roster"
	"academy/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

// stores groups the persistence backends behind the service interfaces.
type stores struct {
	users        identity.Store
	roster       roster.Store
	ledger       attendance.Store
	reportRoster reports.Roster
	reportLedger reports.Ledger
	accounts     reports.Accounts
	db           *store.DB
}

func openStores(ctx context.Context, cfg config.App, log zerolog.Logger) (*stores, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		ms := memstore.New()
		return &stores{users: ms, roster: ms, ledger: ms, reportRoster: ms, reportLedger: ms, accounts: ms}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	users := identity.NewRepository(db.Client)
	rr := roster.NewRepository(db.Client)
	ar := attendance.NewRepository(db.Client)
	return &stores{users: users, roster: rr, ledger: ar, reportRoster: rr, reportLedger: ar, accounts: users, db: db}, nil
}

func loginLimiter(cfg config.App, redis *store.Redis, log zerolog.Logger) httpmiddleware.LoginLimiter {
	if cfg.LoginLimiter == "redis" {
		if redis != nil {
			return httpmiddleware.NewRedisAttempts(redis.Client, cfg.LoginMaxFailures, cfg.LoginFailureWindow)
		}
		log.Warn().Msg("LOGIN_LIMITER_BACKEND=redis but REDIS_ADDR is empty, counting login failures in memory")
	}
	return httpmiddleware.NewMemoryAttempts(cfg.LoginMaxFailures, cfg.LoginFailureWindow)
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, logging.Component(logger, "store"))
	if err != nil {
		return err
	}
	defer func() {
		if st.db != nil {
			_ = st.db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	loc := cfg.Location()
	users := identity.NewService(st.users)
	rosterSvc := roster.NewService(st.roster, loc)
	ledger := attendance.NewService(st.ledger, rosterSvc, logging.Component(logger, "attendance"))
	reportSvc := reports.NewService(st.reportRoster, st.reportLedger, st.accounts, loc)

	seeded, err := users.EnsureDefaultAdmin(ctx, cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	if seeded {
		logger.Warn().Str("username", "admin").Msg("created default admin account, change its password")
	}

	h := handler.New(handler.Deps{
		Users:         users,
		Roster:        rosterSvc,
		Attendance:    ledger,
		Reports:       reportSvc,
		Logins:        loginLimiter(cfg, redisClient, logger),
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		Log:           logging.Component(logger, "http"),
	})
	r := handler.NewRouter(h, handler.RouterConfig{
		Sessions:        auth.NewSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.SessionSecure),
		RateLimitPerMin: cfg.RateLimitPerMin,
		Log:             logging.Component(logger, "access"),
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := st.db == nil || st.db.Healthy(c.Request.Context())
		body := gin.H{"status": "ok", "db": dbHealthy}
		status := http.StatusOK
		if redisClient != nil {
			redisHealthy := redisClient.Healthy(c.Request.Context())
			body["redis"] = redisHealthy
			if !redisHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}
