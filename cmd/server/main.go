package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/synthetics-engine/internal/api"
	"github.com/atmx/synthetics-engine/internal/config"
	"github.com/atmx/synthetics-engine/internal/history"
	"github.com/atmx/synthetics-engine/internal/metrics"
	"github.com/atmx/synthetics-engine/internal/prices"
	"github.com/atmx/synthetics-engine/internal/store"
	"github.com/atmx/synthetics-engine/internal/subgraph"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	var st store.Store
	var rdb *redis.Client
	var cleanup []func()

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		if err := store.Migrate(ctx, pool); err != nil {
			slog.Error("migration failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgresStore(pool, cfg.ChainID)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil {
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL, cfg.ChainID)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	if cfg.RefDataPath != "" {
		rd, err := store.SeedFromFile(ctx, st, cfg.RefDataPath)
		if err != nil {
			slog.Error("seeding reference data failed", "path", cfg.RefDataPath, "err", err)
			os.Exit(1)
		}
		if rd.ChainID != 0 && rd.ChainID != cfg.ChainID {
			slog.Warn("reference data chain differs from CHAIN_ID", "refdata_chain", rd.ChainID, "chain_id", cfg.ChainID)
		}
		slog.Info("reference data seeded", "tokens", len(rd.Tokens), "markets", len(rd.Markets))
	}

	// --- History page cache ---
	var pageCache history.PageCache
	if rdb != nil {
		pageCache = history.NewRedisPageCache(rdb, cfg.PageCacheTTL)
	} else {
		pageCache = history.NewMemoryPageCache(cfg.PageCacheSize, cfg.PageCacheTTL)
	}

	// --- Indexer ---
	var indexer api.Indexer
	if cfg.SubgraphURL != "" {
		client, err := subgraph.NewClient(cfg.SubgraphURL, subgraph.WithRateLimit(cfg.IndexerRPS))
		if err != nil {
			slog.Error("subgraph client failed", "err", err)
			os.Exit(1)
		}
		indexer = client
	} else {
		slog.Warn("no subgraph for chain, history endpoints disabled", "chain_id", cfg.ChainID)
	}

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run(ctx)

	// --- Price feeds ---
	if cfg.PricePollInterval > 0 {
		poller := prices.NewPoller(cfg.BackendURL, st, wsHub, cfg.PricePollInterval)
		go poller.Run(ctx)
	}
	if cfg.NATSURL != "" {
		nc, err := prices.ConnectNATS(cfg.NATSURL)
		if err != nil {
			slog.Error("NATS connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, nc.Close)
		sub := prices.NewNATSSubscriber(st, wsHub)
		if err := sub.Subscribe(ctx, nc, cfg.NATSPriceSubject); err != nil {
			slog.Error("NATS subscribe failed", "subject", cfg.NATSPriceSubject, "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, sub.Stop)
	}

	// --- API service ---
	svc := api.NewService(api.ServiceConfig{
		ChainID:     cfg.ChainID,
		Store:       st,
		Indexer:     indexer,
		PageCache:   pageCache,
		Hub:         wsHub,
		ExplorerURL: cfg.ExplorerURL,

		MinCollateralUsd: cfg.MinCollateralUsd,
	})

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"synthetics-engine","chain_id":%d}`, cfg.ChainID)
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// The WebSocket route stays outside the timeout middleware.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			svc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("synthetics-engine listening", "port", cfg.Port, "chain_id", cfg.ChainID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down synthetics-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("synthetics-engine stopped")
}
