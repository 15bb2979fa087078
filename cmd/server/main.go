// Command server wires the auth subsystem and runs the HTTP server. All
// business logic lives in internal packages; main only connects backends,
// constructs services and manages the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"folio/internal/auth"
	"folio/internal/challenge"
	"folio/internal/csrf"
	"folio/internal/kv"
	"folio/internal/mail"
	"folio/internal/platform/config"
	"folio/internal/platform/cookies"
	"folio/internal/platform/httpserver"
	"folio/internal/platform/logger"
	"folio/internal/platform/metrics"
	platformmw "folio/internal/platform/middleware"
	redisplatform "folio/internal/platform/redis"
	"folio/internal/ratelimit"
	"folio/internal/session"
	"folio/internal/token"
	httptransport "folio/internal/transport/http"
	"folio/internal/user"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisplatform.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("postgres open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("postgres ping failed", "error", err)
		os.Exit(1)
	}

	users := user.NewPostgres(db)
	if err := users.EnsureSchema(ctx); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	store := kv.NewRedis(redisClient.Client)
	m := metrics.New(prometheus.DefaultRegisterer)

	issuer := token.NewIssuer(cfg.JWTSigningKey, "folio", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessions := session.NewRegistry(store, cfg.RefreshTokenTTL)
	guard := csrf.NewGuard(store, cfg.CSRFTokenTTL, cfg.CookieSecure)
	profiles := user.NewProfileCache(store, cfg.ProfileCacheTTL)
	cookieWriter := cookies.NewWriter(cfg.CookieSecure, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	svc := auth.NewService(auth.Deps{
		Users:      users,
		Profiles:   profiles,
		Sessions:   sessions,
		Tokens:     issuer,
		CSRF:       guard,
		Challenges: challenge.NewStore(store, cfg.ChallengeTTL, cfg.ChallengeTTL),
		Limiter:    ratelimit.NewLimiter(store, cfg.RateLimitWindow),
		Mailer:     mail.NewSMTP(cfg.SMTP),
		Metrics:    m,
		Logger:     log,
		AppURL:     cfg.AppURL,
	})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Auth: httptransport.NewAuthHandler(svc, cookieWriter, guard, log),
		RequireAuth: platformmw.RequireAuth(
			issuer, sessions, user.NewResolver(users, profiles), cookieWriter, m, log,
		),
		CSRFGuard: guard,
		Logger:    log,
		Checks: map[string]httptransport.HealthChecker{
			"redis":    redisClient,
			"postgres": dbHealth{db},
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// dbHealth adapts *sql.DB to the router's HealthChecker.
type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }
