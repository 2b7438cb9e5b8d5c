package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Skotchmaster/sweet_shop/internal/config"
	"github.com/Skotchmaster/sweet_shop/internal/db"
	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/httpserver"
	authmw "github.com/Skotchmaster/sweet_shop/internal/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/internal/middleware/metrics"
	"github.com/Skotchmaster/sweet_shop/internal/middleware/ratelimit"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/internal/search"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/tokens"
)

func runServe(ctx context.Context, cfg config.Config) error {
	logger := setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	gdb, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	if err := db.Migrate(ctx, gdb); err != nil {
		return err
	}
	r := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		publisher = p
		logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	}
	defer publisher.Close()

	inv := &service.InventoryService{Repo: r, Events: publisher}
	if cfg.ESURL != "" {
		attachSearchIndex(ctx, logger, cfg, inv)
	}

	var store echomw.RateLimiterStore
	if cfg.RateLimitPerWindow > 0 {
		if cfg.RedisAddr != "" {
			rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				logger.Warn("redis unavailable, rate limiting per instance", "error", err)
			} else {
				defer rdb.Close()
				store = ratelimit.NewRedisStore(rdb, cfg.RateLimitPerWindow, cfg.RateLimitWindow)
			}
		}
		if store == nil {
			store = ratelimit.NewMemoryStore(cfg.RateLimitPerWindow, cfg.RateLimitWindow)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authSvc := &service.AuthService{
		Repo:             r,
		Tokens:           tokens.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Events:           publisher,
		AllowAdminSignup: cfg.AllowAdminSignup,
	}

	e := httpserver.New(&httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: authSvc},
		SweetsHandler: &httpserver.SweetsHTTP{Svc: inv},
		AuthMW:        authmw.New(authSvc),
		Logger:        logger,
		APIPrefix:     cfg.APIPrefix,
		CORSOrigins:   cfg.CORSOrigins,
		Metrics:       metrics.New(reg, "sweetshop"),
		Gatherer:      reg,
		RateLimit:     store,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sweetshop listening", "addr", srv.Addr, "api_prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}

	logger.Info("sweetshop stopped")
	return nil
}

// attachSearchIndex leaves inv on database search when Elasticsearch is unusable.
func attachSearchIndex(ctx context.Context, logger *slog.Logger, cfg config.Config, inv *service.InventoryService) {
	client, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		logger.Warn("elasticsearch unavailable, using database search", "error", err)
		return
	}

	es := search.NewElastic(client, cfg.ESIndex)
	if err := es.EnsureIndex(ctx); err != nil {
		logger.Warn("elasticsearch index setup failed, using database search", "error", err)
		return
	}
	inv.Index = es

	if err := inv.Reindex(ctx); err != nil {
		logger.Warn("elasticsearch reindex failed", "error", err)
	}
}
