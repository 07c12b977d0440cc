package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/personaforge/review-engine/internal/service"
	"github.com/personaforge/review-engine/pkg/health"
	"github.com/personaforge/review-engine/pkg/middleware"
)

// NewRouter creates a chi router with all review engine routes registered.
func NewRouter(
	reviews *service.ReviewService,
	feedback *service.FeedbackService,
	experts *service.ExpertService,
	analytics *service.AnalyticsService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cors middleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("review-engine"))
	r.Use(middleware.Tracing("review-engine"))
	r.Use(middleware.RequestLogger(logger))

	// Debug endpoints, restricted by IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(reviews, feedback, logger)
	expertHandler := NewExpertHandler(experts, analytics, logger)
	analyticsHandler := NewAnalyticsHandler(analytics, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", reviewHandler.Submit)
			r.Get("/", reviewHandler.List)
			r.Get("/{reviewId}", reviewHandler.Get)
			r.Post("/{reviewId}/assign", reviewHandler.Assign)
			r.Post("/{reviewId}/reopen", reviewHandler.Reopen)
			r.Post("/{reviewId}/feedback", reviewHandler.SubmitFeedback)
			r.Get("/{reviewId}/feedback", reviewHandler.FeedbackHistory)
		})

		r.Route("/experts", func(r chi.Router) {
			r.Post("/", expertHandler.Register)
			r.Get("/", expertHandler.List)
			r.Get("/{expertId}", expertHandler.Get)
			r.Put("/{expertId}/availability", expertHandler.SetAvailability)
			r.Get("/{expertId}/dashboard", expertHandler.Dashboard)
		})

		r.Get("/queues", analyticsHandler.Queues)
		r.Get("/analytics", analyticsHandler.Report)
	})

	return r
}
