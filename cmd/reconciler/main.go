package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nadiyatra/registration/internal/bootstrap"
	"github.com/nadiyatra/registration/internal/gateway/shurjopay"
	infraRedis "github.com/nadiyatra/registration/internal/infrastructure/redis"
	"github.com/nadiyatra/registration/internal/notification"
	"github.com/nadiyatra/registration/internal/repository/postgres"
	"github.com/nadiyatra/registration/internal/service"
)

// The reconciler sweeps registrations stuck in PENDING: registrants who
// closed the browser mid-checkout, or gateway callbacks that never arrived.
// Each sweep re-verifies a batch against the gateway through the same
// orchestrator path the HTTP API uses.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "nadiyatra-reconciler", "nadiyatra_reconciler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	registrationRepo := postgres.NewRegistrationRepository(app.Pool)
	locker := infraRedis.NewOrderLocker(
		app.Redis,
		app.Config.Payment.LockTTL,
		app.Config.Payment.LockRetries,
		app.Config.Payment.LockRetryDelay,
	)
	gatewayClient := shurjopay.NewClient(app.Config.Gateway, app.Logger, app.Metrics)

	smsClient := notification.NewSMSClient(app.Config.SMS, app.Logger)
	emailClient := notification.NewEmailClient(app.Config.Email, app.Logger)
	dispatcher := notification.NewDispatcher(
		smsClient, emailClient, app.Config.Email.AdminEmail, app.Logger, app.Metrics,
	)

	registrationService := service.NewRegistrationService(
		registrationRepo,
		gatewayClient,
		dispatcher,
		locker,
		service.Config{
			Currency:       app.Config.Payment.Currency,
			ReverifyFailed: app.Config.Payment.ReverifyFailed,
		},
		app.Logger,
		app.Metrics,
	)

	reconcilerCfg := app.Config.Reconciler
	app.Logger.Info().
		Dur("poll_interval", reconcilerCfg.PollInterval).
		Dur("min_pending_age", reconcilerCfg.MinPendingAge).
		Int("batch_size", reconcilerCfg.BatchSize).
		Msg("Reconciler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(reconcilerCfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
			}

			cutoff := time.Now().Add(-reconcilerCfg.MinPendingAge)
			swept, err := registrationService.ReverifyStalePending(gCtx, cutoff, reconcilerCfg.BatchSize)
			if err != nil {
				app.Logger.Error().Err(err).Msg("Sweep failed")
				continue
			}
			if swept > 0 {
				app.Logger.Info().Int("swept", swept).Msg("Sweep completed")
			}
		}
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down reconciler...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Reconciler error")
	}

	dispatcher.Wait()
	app.Logger.Info().Msg("Reconciler exited")
}
