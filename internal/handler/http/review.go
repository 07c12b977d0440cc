package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/personaforge/review-engine/internal/repository"
	"github.com/personaforge/review-engine/internal/service"
	"github.com/personaforge/review-engine/pkg/httputil"
	"github.com/personaforge/review-engine/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews  *service.ReviewService
	feedback *service.FeedbackService
	logger   *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, feedback *service.FeedbackService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		feedback: feedback,
		logger:   logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for queueing content for review.
type SubmitReviewRequest struct {
	ContentID      string            `json:"content_id" validate:"required"`
	ContentType    string            `json:"content_type" validate:"required,oneof=quote biography teaching article"`
	ContentTitle   string            `json:"content_title" validate:"required,max=500"`
	ContentPreview string            `json:"content_preview" validate:"omitempty,max=2000"`
	Domain         string            `json:"domain" validate:"required,oneof=spiritual scientific historical philosophical cultural general"`
	PersonalityID  string            `json:"personality_id" validate:"required"`
	Priority       string            `json:"priority" validate:"omitempty,oneof=critical high medium low"`
	Metadata       map[string]string `json:"metadata" validate:"omitempty,max=20"`
}

// AssignReviewRequest is the JSON request body for a manual assignment.
type AssignReviewRequest struct {
	ExpertID string `json:"expert_id" validate:"required,uuid"`
}

// SubmitFeedbackRequest is the JSON request body for submitting feedback.
// The recommendation names the status the review should move into.
type SubmitFeedbackRequest struct {
	ExpertID             string   `json:"expert_id" validate:"required,uuid"`
	AccuracyScore        float64  `json:"accuracy_score" validate:"gte=0,lte=100"`
	AuthenticityScore    float64  `json:"authenticity_score" validate:"gte=0,lte=100"`
	AppropriatenessScore float64  `json:"appropriateness_score" validate:"gte=0,lte=100"`
	Comments             string   `json:"comments" validate:"omitempty,max=5000"`
	Suggestions          []string `json:"suggestions" validate:"omitempty,max=20,dive,max=1000"`
	Flags                []string `json:"flags" validate:"omitempty,dive,oneof=factual_error misattribution tone_mismatch culturally_insensitive needs_citation"`
	Recommendation       string   `json:"recommendation" validate:"required,oneof=approved rejected escalated requires_revision"`
	Confidence           string   `json:"confidence" validate:"required,oneof=low medium high"`
	TimeSpentMinutes     int      `json:"time_spent_minutes" validate:"gte=0"`
}

// --- Handlers ---

// Submit handles POST /api/v1/reviews
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.Submit(r.Context(), service.SubmitInput{
		ContentID:      req.ContentID,
		ContentType:    req.ContentType,
		ContentTitle:   req.ContentTitle,
		ContentPreview: req.ContentPreview,
		Domain:         req.Domain,
		PersonalityID:  req.PersonalityID,
		Priority:       req.Priority,
		Metadata:       req.Metadata,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// Get handles GET /api/v1/reviews/{reviewId}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	review, err := h.reviews.Get(r.Context(), reviewID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// List handles GET /api/v1/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ReviewFilter{
		Status:   q.Get("status"),
		Domain:   q.Get("domain"),
		Priority: q.Get("priority"),
		ExpertID: q.Get("expert_id"),
		Page:     parseIntParam(q.Get("page"), 1),
		PerPage:  parseIntParam(q.Get("per_page"), 20),
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	reviews, total, err := h.reviews.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(reviews, total, filter.Page, filter.PerPage))
}

// Assign handles POST /api/v1/reviews/{reviewId}/assign
func (h *ReviewHandler) Assign(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	var req AssignReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.Assign(r.Context(), reviewID.String(), req.ExpertID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Reopen handles POST /api/v1/reviews/{reviewId}/reopen
func (h *ReviewHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	review, err := h.reviews.Reopen(r.Context(), reviewID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// SubmitFeedback handles POST /api/v1/reviews/{reviewId}/feedback
func (h *ReviewHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	var req SubmitFeedbackRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	feedback, err := h.feedback.Submit(r.Context(), service.FeedbackInput{
		ReviewID:             reviewID.String(),
		ExpertID:             req.ExpertID,
		AccuracyScore:        req.AccuracyScore,
		AuthenticityScore:    req.AuthenticityScore,
		AppropriatenessScore: req.AppropriatenessScore,
		Comments:             req.Comments,
		Suggestions:          req.Suggestions,
		Flags:                req.Flags,
		Recommendation:       req.Recommendation,
		Confidence:           req.Confidence,
		TimeSpentMinutes:     req.TimeSpentMinutes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: feedback})
}

// FeedbackHistory handles GET /api/v1/reviews/{reviewId}/feedback
func (h *ReviewHandler) FeedbackHistory(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	history, err := h.feedback.History(r.Context(), reviewID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: history})
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
