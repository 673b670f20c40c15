package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/config"
	"github.com/geocoder89/storejobs/internal/db"
	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/user"
	httpx "github.com/geocoder89/storejobs/internal/http"
	"github.com/geocoder89/storejobs/internal/http/handlers"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/geocoder89/storejobs/internal/queue/redisclient"
	"github.com/geocoder89/storejobs/internal/repo/memory"
	"github.com/geocoder89/storejobs/internal/repo/postgres"
	"github.com/geocoder89/storejobs/internal/security"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:  "storejobs-api",
			Endpoint:     cfg.OTELEndpoint,
			Environment:  cfg.Env,
			StoreBackend: cfg.StoreBackend,
			SampleRatio:  cfg.OTELSampleRatio,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		Log:         log,
		Cfg:         cfg,
		JWT:         auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Prom:        prom,
		Gatherer:    reg,
		ReadyChecks: map[string]handlers.Pinger{},
	}

	if cfg.UsesMemoryStore() {
		if err := wireMemory(ctx, &deps, cfg); err != nil {
			log.Error("memory store setup failed", "err", err)
			os.Exit(1)
		}
		log.Warn("running on the in-memory store; data is lost on exit")
	} else {
		closePool, err := wirePostgres(ctx, &deps, cfg, prom)
		if err != nil {
			log.Error("postgres setup failed", "err", err)
			os.Exit(1)
		}
		defer closePool()
	}

	// listing cache and submission guard: redis when configured, in-process otherwise
	if cfg.Redis.Addr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rc.Close()

		deps.ListCache = cache.NewRedis(rc.Raw())
		deps.Guard = cache.NewRedisGuard(rc.Raw())
		deps.ReadyChecks["redis"] = rc.Ping
	} else {
		deps.ListCache = cache.NewMemory()
		deps.Guard = cache.NewMemoryGuard()
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}

func wirePostgres(ctx context.Context, deps *httpx.Deps, cfg config.Config, prom *observability.Prom) (func(), error) {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DBURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := db.NewPool(cfg.DBURL, cfg.DB.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if cfg.SeedData {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := db.SeedCategories(seedCtx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed categories: %w", err)
		}
		if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	deps.Users = postgres.NewUsersRepo(pool, prom)
	deps.RefreshTokens = postgres.NewRefreshTokensRepo(pool, prom)
	deps.Categories = postgres.NewCategoriesRepo(pool, prom)
	deps.Jobs = postgres.NewJobsRepo(pool, prom)
	deps.Applications = postgres.NewApplicationsRepo(pool, prom)
	deps.Tasks = postgres.NewTasksRepo(pool, prom)
	deps.ReadyChecks["db"] = pool.Ping

	return pool.Close, nil
}

func wireMemory(ctx context.Context, deps *httpx.Deps, cfg config.Config) error {
	store := memory.NewStore()

	if cfg.SeedData {
		store.Categories().Seed(category.Defaults)

		if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
			hash, err := security.HashPassword(cfg.AdminPassword)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			err = store.Users().Create(ctx, user.User{
				ID:           uuid.NewString(),
				Email:        cfg.AdminEmail,
				PasswordHash: hash,
				Name:         cfg.AdminName,
				Role:         user.RoleAdmin,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil {
				return err
			}
		}
	}

	deps.Users = store.Users()
	deps.RefreshTokens = store.RefreshTokens()
	deps.Categories = store.Categories()
	deps.Jobs = store.Jobs()
	deps.Applications = store.Applications()
	deps.Tasks = store.Tasks()

	return nil
}
