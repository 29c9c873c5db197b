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

	"meeting-platform/internal/audit"
	"meeting-platform/internal/auth"
	"meeting-platform/internal/config"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/platform"
	"meeting-platform/internal/ratelimit"
	"meeting-platform/pkg/logger"
	"meeting-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const sweepInterval = time.Minute

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *sql.DB
	if cfg.DB.Host != "" {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := utils.EnsureSchema(rootCtx, db, meetings.Schema, audit.Schema); err != nil {
			log.Error("schema init failed", "err", err)
			os.Exit(1)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	store, auditSvc, err := buildStorage(db)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	limiter, err := buildLimiter(rootCtx, cfg, rdb)
	if err != nil {
		log.Error("rate limiter init failed", "err", err)
		os.Exit(1)
	}

	// A nil provider is reported per request as a configuration error.
	provider, err := buildProvider(cfg)
	if err != nil {
		log.Error("platform init failed", "err", err)
		os.Exit(1)
	}
	if provider == nil {
		log.Warn("platform credentials missing; issuance will fail with 500")
	}

	var identity auth.IdentityVerifier
	if cfg.Identity.JWKSURL != "" {
		v, err := auth.NewJWKSVerifier(rootCtx, cfg.Identity.JWKSURL, cfg.Identity.Issuer, log)
		if err != nil {
			log.Error("identity provider init failed", "err", err)
			os.Exit(1)
		}
		defer v.Close()
		identity = v
	}

	svc := meetings.NewService(provider, store, auditSvc, meetings.Options{
		PublicBaseURL: cfg.App.PublicBaseURL,
		Logger:        logger.Component(log, "meetings"),
	})

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:      cfg,
		meetings: svc,
		limiter:  limiter,
		identity: identity,
		db:       db,
		redis:    rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "provider", cfg.Platform.Provider, "development", cfg.IsDevelopment())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func buildStorage(db *sql.DB) (meetings.Store, *audit.Service, error) {
	if db == nil {
		return meetings.NewMemoryStore(), audit.NewService(audit.NewMemoryRepo()), nil
	}
	store, err := meetings.NewPostgresStore(db)
	if err != nil {
		return nil, nil, err
	}
	repo, err := audit.NewPostgresRepo(db)
	if err != nil {
		return nil, nil, err
	}
	return store, audit.NewService(repo), nil
}

// buildLimiter shares the window through Redis when it is configured so every
// instance enforces the same budget.
func buildLimiter(ctx context.Context, cfg config.Config, rdb *redis.Client) (ratelimit.Limiter, error) {
	rl := ratelimit.Config{Max: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window}
	if rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, rl, time.Now)
	}
	mem, err := ratelimit.NewMemoryLimiter(rl, time.Now)
	if err != nil {
		return nil, err
	}
	go mem.Run(ctx, sweepInterval)
	return mem, nil
}

func buildProvider(cfg config.Config) (platform.Provider, error) {
	if !cfg.PlatformConfigured() {
		return nil, nil
	}
	switch cfg.Platform.Provider {
	case config.ProviderLiveKit:
		return platform.NewLiveKitProvider(platform.LiveKitConfig{
			URL:       cfg.Platform.LiveKitURL,
			APIKey:    cfg.Platform.APIKey,
			APISecret: cfg.Platform.APISecret,
			TokenTTL:  cfg.Token.TTL,
			ClockSkew: cfg.Token.ClockSkew,
		})
	default:
		signer, err := auth.NewSigner(cfg.Platform.APISecret, cfg.Token.TTL, cfg.Token.ClockSkew)
		if err != nil {
			return nil, err
		}
		return platform.NewStreamProvider(platform.StreamConfig{
			BaseURL: cfg.Platform.BaseURL,
			APIKey:  cfg.Platform.APIKey,
			Timeout: cfg.Platform.RequestTimeout,
		}, signer)
	}
}
