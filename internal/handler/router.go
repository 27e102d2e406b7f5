package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/suar-net/suar-probe/internal/service"
)

type RouterDeps struct {
	Probe          service.IProbeService
	Analytics      service.IAnalyticsService
	Subscriptions  service.ISubscriptionService
	Store          Pinger
	AllowedOrigins []string
	Logger         *slog.Logger
}

// SetupRouter creates the main chi router for the application.
func SetupRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(deps.Logger))
	r.Use(middleware.Recoverer)

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))

	healthHandler := NewHealthHandler(deps.Store, deps.Logger)
	probeHandler := NewProbeHandler(deps.Probe, deps.Logger)
	analyticsHandler := NewAnalyticsHandler(deps.Analytics, deps.Logger)
	subscriptionHandler := NewSubscriptionHandler(deps.Subscriptions, deps.Logger)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method("POST", "/requests", probeHandler)

		r.Post("/subscriptions", subscriptionHandler.Create)
		r.Get("/subscriptions/{subscriptionID}/analytics", analyticsHandler.ForSubscription)
		r.Get("/subscriptions/{subscriptionID}/logs", analyticsHandler.ListLogs)

		r.Get("/apis/{apiID}/analytics", analyticsHandler.ForAPI)
		r.Get("/apis/{apiID}/subscriptions", subscriptionHandler.ListByAPI)
	})

	return r
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
