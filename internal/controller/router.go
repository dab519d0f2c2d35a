package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nadiyatra/registration/internal/domain/registration"
	"github.com/nadiyatra/registration/internal/infrastructure/config"
	"github.com/nadiyatra/registration/internal/infrastructure/observability"
	customMW "github.com/nadiyatra/registration/internal/middleware"
	"github.com/nadiyatra/registration/internal/service"
)

type RouterDeps struct {
	Pool                *pgxpool.Pool
	RedisClient         *redis.Client
	RegistrationRepo    registration.Repository
	RegistrationService *service.RegistrationService
	Metrics             *observability.Metrics
	ServerConfig        config.ServerConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.RegistrationService)
	exportH := NewExportController(deps.RegistrationRepo)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		rateLimitMW := customMW.RateLimit(deps.ServerConfig.RateLimitPerMin)

		// Payment lifecycle
		r.With(rateLimitMW).Post("/payment/initiate", paymentH.InitiatePayment)
		r.Post("/payment/verify", paymentH.VerifyPayment)
		r.Post("/payment/ipn", paymentH.HandleIPN)
		r.Get("/payment/ipn", paymentH.HandleIPN)

		// Admin
		r.Get("/registrations/export", exportH.ExportCSV)
	})

	return r
}
