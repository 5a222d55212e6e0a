package main

import (
	"fmt"
	"time"

	"rental-portal/internal/accounts"
	"rental-portal/internal/auth"
	"rental-portal/internal/booking"
	"rental-portal/internal/cleanup"
	"rental-portal/internal/config"
	"rental-portal/internal/database"
	"rental-portal/internal/integrity"
	"rental-portal/internal/listing"
	"rental-portal/internal/logger"
	"rental-portal/internal/metrics"
	"rental-portal/internal/ratelimit"
	"rental-portal/internal/scheduler"
	"rental-portal/internal/search"
	"rental-portal/internal/snapshot"
	"rental-portal/internal/stats"

	"go.uber.org/zap"
)

// app holds every service built from one config
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.GormDB

	accounts  *accounts.Service
	catalog   *listing.Service
	bookings  *booking.Service
	stats     *stats.Service
	snapshots *snapshot.Service
	cleanup   *cleanup.Service
	auditor   *integrity.Auditor
	limiter   *ratelimit.RateLimiter
	metrics   *metrics.Metrics
	search    *search.SearchClient
	tokens    *auth.TokenService
	scheduler *scheduler.Scheduler
}

// newApp loads config, opens the database and wires the services
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("configuration loaded",
		zap.String("path", getConfigPath()),
		zap.String("database", cfg.Database.Type))

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db}
	a.wire()
	return a, nil
}

func (a *app) wire() {
	gdb := a.db.DB()

	var (
		listingOpts []listing.Option
		bookingOpts []booking.Option
		gauge       integrity.Gauge
		recorder    scheduler.Recorder
	)
	if a.cfg.Metrics.Enabled {
		a.metrics = metrics.New(a.cfg.Metrics)
		listingOpts = append(listingOpts, listing.WithRecorder(a.metrics))
		bookingOpts = append(bookingOpts, booking.WithRecorder(a.metrics))
		gauge = a.metrics
		recorder = a.metrics
	}

	if ms := a.cfg.Search.Meilisearch; ms.Enabled {
		a.search = search.NewSearchClient(ms.Host, ms.APIKey, ms.Index, a.log.Named("search"))
		if err := a.search.InitIndex(); err != nil {
			a.log.Warn("failed to initialize search index", zap.Error(err))
		}
		listingOpts = append(listingOpts, listing.WithIndexer(a.search))
	}

	a.accounts = accounts.NewService(gdb, a.log.Named("accounts"))
	a.catalog = listing.NewService(gdb, a.log.Named("listing"), listingOpts...)
	bookingOpts = append(bookingOpts, booking.WithReindexer(a.catalog))
	a.bookings = booking.NewService(gdb, a.log.Named("booking"), bookingOpts...)
	a.stats = stats.NewService(gdb, a.log.Named("stats"))
	a.snapshots = snapshot.NewService(gdb, a.stats, a.log.Named("snapshot"))
	a.cleanup = cleanup.NewService(gdb, a.log.Named("cleanup"))
	a.auditor = integrity.NewAuditor(gdb, a.log.Named("integrity"), gauge)
	a.limiter = ratelimit.NewRateLimiter(a.cfg.RateLimit)
	a.scheduler = scheduler.NewScheduler(a.log.Named("scheduler"), recorder, a.location())
}

func (a *app) location() *time.Location {
	if a.cfg.Timezone == "" || a.cfg.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		a.log.Warn("unknown timezone, using local", zap.String("timezone", a.cfg.Timezone), zap.Error(err))
		return time.Local
	}
	return loc
}

// tokenService is built lazily; only serve and token need the secret
func (a *app) tokenService() (*auth.TokenService, error) {
	if a.tokens != nil {
		return a.tokens, nil
	}
	ts, err := auth.NewTokenService(auth.Config{
		SecretKey: a.cfg.Auth.JWTSecret,
		Duration:  a.cfg.Auth.GetTokenDuration(),
	})
	if err != nil {
		return nil, err
	}
	a.tokens = ts
	return ts, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}
