package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/logger"
	"github.com/iliyamo/tour-booking/internal/metrics"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := config.LoadLogConfig()
	lg, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	policy, err := config.LoadBookingPolicy()
	if err != nil {
		return fmt.Errorf("booking policy: %w", err)
	}

	db, err := database.Open(database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
		LockWait:     cfg.DBLockWait,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.MetricsNamespace)

	opts := []booking.Option{booking.WithLogger(lg.Named("booking")), booking.WithMetrics(m)}
	amqpCfg := config.LoadAMQPConfig()
	if amqpCfg.URL != "" {
		opts = append(opts, booking.WithNotifier(queue.NewPublisher(amqpCfg.URL, amqpCfg.Queue, lg.Named("publisher"))))
		if amqpCfg.AuditConsumer {
			audit := logger.NewWriter(logger.RotatingFile(logCfg, logCfg.AuditFile), "info")
			consumer := queue.NewAuditConsumer(amqpCfg.URL, amqpCfg.Queue, amqpCfg.ConsumerTag, lg.Named("audit"), audit)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	} else {
		lg.Info("AMQP_URL not set, booking events are not published")
	}
	alloc, err := booking.New(repository.NewLedger(db, lg.Named("ledger")), policy, opts...)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		lg.Warn("redis unavailable, running without cache and rate limiting")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, lg.Named("cache"))
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg.Named("ratelimit"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(lg.Named("http")))
	e.Use(echomw.Recover())
	e.Use(m.Middleware())

	bookings := handler.NewBookingHandler(alloc, lg)
	tours := handler.NewTourHandler(repository.NewTourRepo(db), alloc, cache, lg)
	auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), lg)

	router.RegisterRoutes(e, db, metrics.Handler(reg))
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, tours, bookings, cache.Middleware())
	router.RegisterCustomer(e, bookings, cfg.JWTSecret, limiter.Middleware())
	router.RegisterAdmin(e, bookings, tours, cfg.JWTSecret)

	errc := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env),
			zap.String("initial_status", string(policy.InitialStatus)), zap.Bool("count_pending", policy.CountPending))
		errc <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
