package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personaforge/review-engine/internal/service"
	"github.com/personaforge/review-engine/pkg/httputil"
	"github.com/personaforge/review-engine/pkg/validator"
)

// ExpertHandler handles HTTP requests for expert registry endpoints.
type ExpertHandler struct {
	experts   *service.ExpertService
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewExpertHandler creates a new expert HTTP handler.
func NewExpertHandler(experts *service.ExpertService, analytics *service.AnalyticsService, logger *slog.Logger) *ExpertHandler {
	return &ExpertHandler{
		experts:   experts,
		analytics: analytics,
		logger:    logger,
	}
}

// --- Request DTOs ---

// RegisterExpertRequest is the JSON request body for registering an expert.
type RegisterExpertRequest struct {
	Name                 string   `json:"name" validate:"required,max=200"`
	Email                string   `json:"email" validate:"required,email"`
	Domains              []string `json:"domains" validate:"required,min=1,dive,oneof=spiritual scientific historical philosophical cultural general"`
	CredentialTier       string   `json:"credential_tier" validate:"required,oneof=academic practitioner enthusiast"`
	Specializations      []string `json:"specializations" validate:"omitempty,max=20,dive,max=100"`
	Languages            []string `json:"languages" validate:"omitempty,max=20,dive,max=50"`
	QualityScore         float64  `json:"quality_score" validate:"gte=0,lte=100"`
	MaxConcurrentReviews int      `json:"max_concurrent_reviews" validate:"required,gte=1,lte=50"`
}

// SetAvailabilityRequest is the JSON request body for updating availability.
type SetAvailabilityRequest struct {
	Availability string `json:"availability" validate:"required,oneof=active inactive on_leave"`
}

// --- Handlers ---

// Register handles POST /api/v1/experts
func (h *ExpertHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterExpertRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	expert, err := h.experts.Register(r.Context(), service.RegisterExpertInput{
		Name:                 req.Name,
		Email:                req.Email,
		Domains:              req.Domains,
		CredentialTier:       req.CredentialTier,
		Specializations:      req.Specializations,
		Languages:            req.Languages,
		QualityScore:         req.QualityScore,
		MaxConcurrentReviews: req.MaxConcurrentReviews,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: expert})
}

// Get handles GET /api/v1/experts/{expertId}
func (h *ExpertHandler) Get(w http.ResponseWriter, r *http.Request) {
	expertID, ok := httputil.ParseUUID(w, chi.URLParam(r, "expertId"))
	if !ok {
		return
	}

	expert, err := h.experts.Get(r.Context(), expertID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: expert})
}

// List handles GET /api/v1/experts
func (h *ExpertHandler) List(w http.ResponseWriter, r *http.Request) {
	experts, err := h.experts.List(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: experts})
}

// SetAvailability handles PUT /api/v1/experts/{expertId}/availability
func (h *ExpertHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	expertID, ok := httputil.ParseUUID(w, chi.URLParam(r, "expertId"))
	if !ok {
		return
	}

	var req SetAvailabilityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	expert, err := h.experts.SetAvailability(r.Context(), expertID.String(), req.Availability)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: expert})
}

// Dashboard handles GET /api/v1/experts/{expertId}/dashboard
func (h *ExpertHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	expertID, ok := httputil.ParseUUID(w, chi.URLParam(r, "expertId"))
	if !ok {
		return
	}

	dashboard, err := h.analytics.ExpertDashboard(r.Context(), expertID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: dashboard})
}
