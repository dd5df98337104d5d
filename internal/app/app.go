package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/autoapprove"
	"github.com/GlebRadaev/spinearn/internal/cache"
	"github.com/GlebRadaev/spinearn/internal/config"
	"github.com/GlebRadaev/spinearn/internal/handlers"
	"github.com/GlebRadaev/spinearn/internal/jobs"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/internal/repo"
	"github.com/GlebRadaev/spinearn/internal/service"
	"github.com/GlebRadaev/spinearn/pkg/logger"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
	"github.com/GlebRadaev/spinearn/pkg/ratelimit"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg       *config.Config
	api       *handlers.Handlers
	srv       *service.Services
	repo      *repo.Repositories
	approver  *autoapprove.Service
	scheduler *jobs.Scheduler
	limiter   *ratelimit.Store
	registry  *prometheus.Registry

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool, cfg.TxMaxAttempts)

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn)
	a.srv, err = service.New(cfg, a.repo, txManager, getWalletCache(ctx, cfg))
	if err != nil {
		return fmt.Errorf("can't build services: %w", err)
	}

	a.registry = newRegistry()
	a.limiter = ratelimit.NewStore(ratelimit.PerMinute(cfg.SpinRatePerMinute), cfg.SpinRateBurst, limiterIdleTTL)
	a.api = handlers.New(a.srv, a.srv.JWTService, a.limiter, a.registry)
	a.approver = autoapprove.New(a.srv.AutoApprove, cfg.AutoApproveWorkers, cfg.AutoApproveInterval)
	a.scheduler = jobs.NewScheduler(a.repo.LedgerRepo, cfg.ReconcileSchedule, loc)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}
	if err = a.startBackground(ctx); err != nil {
		return fmt.Errorf("can't start background jobs: %w", err)
	}

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

// getWalletCache returns nil when redis is not configured or unreachable;
// wallet reads then go straight to postgres.
func getWalletCache(ctx context.Context, cfg *config.Config) *cache.WalletCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis unavailable, wallet cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return cache.NewWalletCache(client, cfg.WalletCacheTTL)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(reg)
	return reg
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:    a.cfg.Address,
		Handler: router,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startBackground(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		a.scheduler.Stop()
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.approver.Start(ctx)
	}()

	a.limiter.StartJanitor(ctx, janitorInterval)
	return nil
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	return appErr
}
