package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/personaforge/review-engine/internal/service"
	"github.com/personaforge/review-engine/pkg/httputil"
)

// AnalyticsHandler handles HTTP requests for queue and analytics endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewAnalyticsHandler creates a new analytics HTTP handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		logger:    logger,
	}
}

// Queues handles GET /api/v1/queues
func (h *AnalyticsHandler) Queues(w http.ResponseWriter, r *http.Request) {
	queues, err := h.analytics.Queues(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: queues})
}

// Report handles GET /api/v1/analytics
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	windowDays := parseIntParam(q.Get("window_days"), 30)
	report, err := h.analytics.Report(r.Context(), q.Get("domain"), time.Duration(windowDays)*24*time.Hour)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
