package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/event"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// FeedbackInput carries an expert's evaluation of an in-review item. The
// recommendation names the status the review should move into.
type FeedbackInput struct {
	ReviewID             string
	ExpertID             string
	AccuracyScore        float64
	AuthenticityScore    float64
	AppropriatenessScore float64
	Comments             string
	Suggestions          []string
	Flags                []string
	Recommendation       string
	Confidence           string
	TimeSpentMinutes     int
}

// FeedbackService handles feedback submission and the resulting review
// completion.
type FeedbackService struct {
	feedbackRepo    repository.FeedbackRepository
	reviewRepo      repository.ReviewRepository
	expertRepo      repository.ExpertRepository
	assigner        *Assigner
	producer        *event.Producer
	logger          *slog.Logger
	reassignBacklog bool
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	reviewRepo repository.ReviewRepository,
	expertRepo repository.ExpertRepository,
	assigner *Assigner,
	producer *event.Producer,
	logger *slog.Logger,
	reassignBacklog bool,
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo:    feedbackRepo,
		reviewRepo:      reviewRepo,
		expertRepo:      expertRepo,
		assigner:        assigner,
		producer:        producer,
		logger:          logger,
		reassignBacklog: reassignBacklog,
	}
}

// Submit records an expert's evaluation, drives the review into the
// recommended status and releases the expert's capacity. The feedback record
// is written first and deleted again if the guarded status transition loses,
// so a failed submission leaves neither a terminal review without feedback
// nor a dangling capacity reservation.
func (s *FeedbackService) Submit(ctx context.Context, input FeedbackInput) (*domain.ExpertFeedback, error) {
	if err := validateFeedback(input); err != nil {
		return nil, err
	}

	review, err := s.reviewRepo.GetByID(ctx, input.ReviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", input.ReviewID)
		}
		return nil, err
	}

	if review.Status != domain.StatusInReview {
		return nil, apperrors.InvalidTransition(review.Status, input.Recommendation)
	}
	if review.AssignedExpertID == nil || *review.AssignedExpertID != input.ExpertID {
		return nil, apperrors.NotAssigned(input.ExpertID, input.ReviewID)
	}

	now := time.Now().UTC()

	feedback := &domain.ExpertFeedback{
		ID:                   uuid.New().String(),
		ReviewID:             input.ReviewID,
		ExpertID:             input.ExpertID,
		AccuracyScore:        input.AccuracyScore,
		AuthenticityScore:    input.AuthenticityScore,
		AppropriatenessScore: input.AppropriatenessScore,
		Comments:             input.Comments,
		Suggestions:          input.Suggestions,
		Flags:                input.Flags,
		Recommendation:       input.Recommendation,
		Confidence:           input.Confidence,
		TimeSpentMinutes:     input.TimeSpentMinutes,
		CreatedAt:            now,
	}

	// Persist the record before mutating the review: a failed insert leaves
	// the review untouched and the caller free to retry.
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	// The guarded update wins or loses atomically against concurrent
	// feedback for the same review. The loser takes its record back out.
	if err := s.reviewRepo.Complete(ctx, input.ReviewID, input.ExpertID, input.Recommendation, now); err != nil {
		if delErr := s.feedbackRepo.Delete(ctx, feedback.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove feedback after losing review transition",
				slog.String("feedback_id", feedback.ID),
				slog.String("review_id", input.ReviewID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	completed := input.Recommendation == domain.StatusApproved || input.Recommendation == domain.StatusRejected
	if err := s.expertRepo.ReleaseCapacity(ctx, input.ExpertID, completed); err != nil {
		s.logger.ErrorContext(ctx, "failed to release expert capacity after review completion",
			slog.String("expert_id", input.ExpertID),
			slog.String("review_id", input.ReviewID),
			slog.String("error", err.Error()),
		)
	}

	review.Status = input.Recommendation
	review.CompletedAt = &now

	s.logger.InfoContext(ctx, "feedback submitted",
		slog.String("review_id", input.ReviewID),
		slog.String("expert_id", input.ExpertID),
		slog.String("recommendation", input.Recommendation),
		slog.Float64("overall_score", feedback.OverallScore()),
	)

	if err := s.producer.PublishReviewCompleted(ctx, review, feedback); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.completed event",
			slog.String("review_id", input.ReviewID),
			slog.String("error", err.Error()),
		)
	}

	// The freed slot may unblock a pending review in the same domain.
	if s.reassignBacklog {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.assigner.AssignPending(ctx, review.Domain); err != nil {
				s.logger.ErrorContext(ctx, "backlog assignment after capacity release failed",
					slog.String("domain", review.Domain),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	return feedback, nil
}

// History returns all feedback submitted for a review, oldest first.
func (s *FeedbackService) History(ctx context.Context, reviewID string) ([]*domain.ExpertFeedback, error) {
	if _, err := s.reviewRepo.GetByID(ctx, reviewID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, err
	}
	return s.feedbackRepo.ListByReview(ctx, reviewID)
}

func validateFeedback(input FeedbackInput) error {
	if input.ReviewID == "" {
		return apperrors.InvalidInput("review_id is required")
	}
	if input.ExpertID == "" {
		return apperrors.InvalidInput("expert_id is required")
	}
	if !domain.IsValidRecommendation(input.Recommendation) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid recommendation: %s", input.Recommendation))
	}
	for _, score := range []float64{input.AccuracyScore, input.AuthenticityScore, input.AppropriatenessScore} {
		if score < 0 || score > 100 {
			return apperrors.InvalidInput("dimension scores must be between 0 and 100")
		}
	}
	if !domain.IsValidConfidence(input.Confidence) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid confidence level: %s", input.Confidence))
	}
	if input.TimeSpentMinutes < 0 {
		return apperrors.InvalidInput("time_spent_minutes cannot be negative")
	}
	for _, flag := range input.Flags {
		if !domain.IsValidFlag(flag) {
			return apperrors.InvalidInput(fmt.Sprintf("invalid flag: %s", flag))
		}
	}
	return nil
}
