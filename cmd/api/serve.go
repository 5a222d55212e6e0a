package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-portal/internal/handlers"
	"rental-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	tokens, err := a.tokenService()
	if err != nil {
		return err
	}

	jobs, err := scheduler.MaintenanceJobs(a.cfg, scheduler.Deps{
		Snapshots: a.snapshots,
		Auditor:   a.auditor,
		Cleanup:   a.cleanup,
		Limiter:   a.limiter,
	})
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := a.scheduler.Add(job); err != nil {
			return err
		}
	}
	a.scheduler.Start()
	defer a.scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	deps := handlers.Deps{
		DB:       a.db.DB(),
		Accounts: a.accounts,
		Catalog:  a.catalog,
		Bookings: a.bookings,
		Tokens:   tokens,
		Limiter:  a.limiter,
		Metrics:  a.metrics,
		Admin: handlers.AdminDeps{
			Stats:     a.stats,
			Snapshots: a.snapshots,
			Cleanup:   a.cleanup,
			Auditor:   a.auditor,
			Scheduler: a.scheduler,
			Limiter:   a.limiter,
		},
		Log: a.log.Named("http"),
	}
	if a.search != nil {
		deps.Search = a.search
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           handlers.NewRouter(a.cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", srv.Addr), zap.Strings("jobs", a.scheduler.Jobs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
