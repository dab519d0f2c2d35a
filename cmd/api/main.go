package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadiyatra/registration/internal/bootstrap"
	"github.com/nadiyatra/registration/internal/controller"
	"github.com/nadiyatra/registration/internal/gateway/shurjopay"
	infraRedis "github.com/nadiyatra/registration/internal/infrastructure/redis"
	"github.com/nadiyatra/registration/internal/notification"
	"github.com/nadiyatra/registration/internal/repository/postgres"
	"github.com/nadiyatra/registration/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "nadiyatra-api", "nadiyatra")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories and infrastructure ---
	registrationRepo := postgres.NewRegistrationRepository(app.Pool)
	locker := infraRedis.NewOrderLocker(
		app.Redis,
		app.Config.Payment.LockTTL,
		app.Config.Payment.LockRetries,
		app.Config.Payment.LockRetryDelay,
	)
	gatewayClient := shurjopay.NewClient(app.Config.Gateway, app.Logger, app.Metrics)

	// --- Notifications ---
	smsClient := notification.NewSMSClient(app.Config.SMS, app.Logger)
	emailClient := notification.NewEmailClient(app.Config.Email, app.Logger)
	dispatcher := notification.NewDispatcher(
		smsClient, emailClient, app.Config.Email.AdminEmail, app.Logger, app.Metrics,
	)

	// --- Services ---
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

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:                app.Pool,
		RedisClient:         app.Redis,
		RegistrationRepo:    registrationRepo,
		RegistrationService: registrationService,
		Metrics:             app.Metrics,
		ServerConfig:        app.Config.Server,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight confirmation notifications settle before exiting.
	dispatcher.Wait()
	app.Logger.Info().Msg("Server exited")
}
