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

	"github.com/geocoder89/catalogapi/internal/auth"
	"github.com/geocoder89/catalogapi/internal/cache"
	"github.com/geocoder89/catalogapi/internal/config"
	"github.com/geocoder89/catalogapi/internal/db"
	httpx "github.com/geocoder89/catalogapi/internal/http"
	"github.com/geocoder89/catalogapi/internal/observability"
	"github.com/geocoder89/catalogapi/internal/repo/memory"
	"github.com/geocoder89/catalogapi/internal/repo/postgres"
	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	startCtx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(startCtx, observability.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	prom := observability.NewProm()

	st, err := openStores(startCtx, cfg, log, prom)
	if err != nil {
		return err
	}
	defer st.close()

	created, err := db.EnsureAdminUser(startCtx, st.users, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "username", cfg.AdminUsername)
	}

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:    st.users,
		Registry: st.registry,
		Tokens:   auth.NewManager(cfg.Secret, cfg.TokenTTL),
		Prom:     prom,
		Ready:    st.ready,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", st.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	ctx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
	return nil
}

type userStore interface {
	httpx.UserStore
	db.AdminStore
}

type stores struct {
	kind     string
	users    userStore
	registry *resource.Registry
	ready    func(ctx context.Context) error
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks postgres when DATABASE_URL is set and the in-memory store
// otherwise, then wraps every collection in the get-one cache.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom) (*stores, error) {
	st := &stores{}
	var collections []resource.Collection

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		if err := db.Migrate(ctx, pool); err != nil {
			st.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}

		users := postgres.NewUsersRepo(pool, prom)
		st.kind = "postgres"
		st.users = users
		st.ready = users.Ping
		for _, s := range resource.Schemas() {
			collections = append(collections, postgres.NewRecordsRepo(pool, s, prom))
		}
	} else {
		users := memory.NewUsersRepo()
		st.kind = "memory"
		st.users = users
		st.ready = users.Ping
		for _, s := range resource.Schemas() {
			collections = append(collections, memory.NewRecordsRepo(s))
		}
	}

	var store cache.Store = cache.NewMemory(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			st.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = rc.Close() })
		store = rc
	}

	for i, c := range collections {
		collections[i] = cache.NewCollection(c, store, log)
	}
	st.registry = resource.NewRegistry(collections...)

	return st, nil
}
