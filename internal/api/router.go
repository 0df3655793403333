package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/api/handler"
	apimw "github.com/shiinazuki/zero2prod/internal/api/middleware"
	"github.com/shiinazuki/zero2prod/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	publishSvc *service.PublishService,
	subSvc *service.SubscriptionService,
	db handler.Pinger,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNewsletterHandler(publishSvc, logger)
	sh := handler.NewSubscriptionHandler(subSvc, logger)
	hh := handler.NewHealthHandler(db)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/health/ready", hh.Ready)

	// Raw Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Public subscription flow
	r.Post("/subscriptions", sh.Subscribe)
	r.Get("/subscriptions/confirm", sh.Confirm)

	// Admin surface; the auth proxy in front of the service vouches for
	// the caller via X-User-ID.
	r.Route("/admin", func(r chi.Router) {
		r.Use(apimw.RequirePrincipal)
		r.Post("/newsletters", nh.Publish)
	})

	return r
}
