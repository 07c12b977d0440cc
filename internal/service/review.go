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

// SubmitInput carries the fields needed to queue content for review.
type SubmitInput struct {
	ContentID      string
	ContentType    string
	ContentTitle   string
	ContentPreview string
	Domain         string
	PersonalityID  string
	Priority       string
	Metadata       map[string]string
}

// ReviewService implements the review lifecycle: submission, assignment and
// reopening.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	expertRepo repository.ExpertRepository
	assigner   *Assigner
	producer   *event.Producer
	logger     *slog.Logger
	autoAssign bool
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	expertRepo repository.ExpertRepository,
	assigner *Assigner,
	producer *event.Producer,
	logger *slog.Logger,
	autoAssign bool,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		expertRepo: expertRepo,
		assigner:   assigner,
		producer:   producer,
		logger:     logger,
		autoAssign: autoAssign,
	}
}

// Submit queues a piece of generated content for expert review. The due date
// is fixed at submission from the priority tier, and when auto-assignment is
// enabled the engine immediately tries to route the review to an expert.
func (s *ReviewService) Submit(ctx context.Context, input SubmitInput) (*domain.ReviewItem, error) {
	if input.ContentID == "" {
		return nil, apperrors.InvalidInput("content_id is required")
	}
	if input.ContentTitle == "" {
		return nil, apperrors.InvalidInput("content_title is required")
	}
	if input.PersonalityID == "" {
		return nil, apperrors.InvalidInput("personality_id is required")
	}
	if !domain.IsValidContentType(input.ContentType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid content_type: %s", input.ContentType))
	}
	if !domain.IsValidDomain(input.Domain) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid domain: %s", input.Domain))
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.IsValidPriority(priority) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid priority: %s", priority))
	}

	now := time.Now().UTC()
	review := &domain.ReviewItem{
		ID:             uuid.New().String(),
		ContentID:      input.ContentID,
		ContentType:    input.ContentType,
		ContentTitle:   input.ContentTitle,
		ContentPreview: input.ContentPreview,
		Domain:         input.Domain,
		PersonalityID:  input.PersonalityID,
		Priority:       priority,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		DueDate:        now.Add(domain.SLADuration(priority)),
		Metadata:       input.Metadata,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("content_id", review.ContentID),
		slog.String("domain", review.Domain),
		slog.String("priority", review.Priority),
	)

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.autoAssign {
		expert, err := s.assigner.TryAssign(ctx, review)
		if err != nil {
			s.logger.ErrorContext(ctx, "auto-assignment failed, review stays pending",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		} else if expert != nil {
			// Reload so the caller sees the assignment.
			return s.reviewRepo.GetByID(ctx, review.ID)
		}
	}

	return review, nil
}

// SubmitGenerated queues content arriving on the content.generated topic.
func (s *ReviewService) SubmitGenerated(ctx context.Context, data event.ContentGeneratedData) (*domain.ReviewItem, error) {
	return s.Submit(ctx, SubmitInput{
		ContentID:      data.ContentID,
		ContentType:    data.ContentType,
		ContentTitle:   data.Title,
		ContentPreview: data.Preview,
		Domain:         data.Domain,
		PersonalityID:  data.PersonalityID,
		Priority:       data.Priority,
		Metadata:       data.Metadata,
	})
}

// Get retrieves a review by ID.
func (s *ReviewService) Get(ctx context.Context, id string) (*domain.ReviewItem, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, err
	}
	return review, nil
}

// List returns reviews matching the filter.
func (s *ReviewService) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.ReviewItem, int, error) {
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status: %s", filter.Status))
	}
	if filter.Domain != "" && !domain.IsValidDomain(filter.Domain) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid domain: %s", filter.Domain))
	}
	if filter.Priority != "" && !domain.IsValidPriority(filter.Priority) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid priority: %s", filter.Priority))
	}
	return s.reviewRepo.List(ctx, filter)
}

// Assign routes a pending review to a specific expert, checking the expert's
// qualification for the review's domain before reserving capacity.
func (s *ReviewService) Assign(ctx context.Context, reviewID, expertID string) (*domain.ReviewItem, error) {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	expert, err := s.expertRepo.GetByID(ctx, expertID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("expert", expertID)
		}
		return nil, err
	}

	if !expert.IsQualified(review.Domain) {
		return nil, apperrors.NotQualified(expertID, review.Domain)
	}
	if !review.CanTransitionTo(domain.StatusInReview) {
		return nil, apperrors.InvalidTransition(review.Status, domain.StatusInReview)
	}

	if err := s.expertRepo.ReserveCapacity(ctx, expertID); err != nil {
		return nil, err
	}

	if err := s.reviewRepo.MarkAssigned(ctx, reviewID, expertID, time.Now().UTC()); err != nil {
		if relErr := s.expertRepo.ReleaseCapacity(ctx, expertID, false); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release capacity after assignment rollback",
				slog.String("expert_id", expertID),
				slog.String("review_id", reviewID),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "review assigned manually",
		slog.String("review_id", reviewID),
		slog.String("expert_id", expertID),
	)

	if err := s.producer.PublishReviewAssigned(ctx, review, expertID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.assigned event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	return s.reviewRepo.GetByID(ctx, reviewID)
}

// Reopen returns an escalated or requires_revision review to the pending
// queue with a fresh SLA window, then tries to route it again.
func (s *ReviewService) Reopen(ctx context.Context, reviewID string) (*domain.ReviewItem, error) {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if !review.CanTransitionTo(domain.StatusPending) {
		return nil, apperrors.InvalidTransition(review.Status, domain.StatusPending)
	}

	dueDate := time.Now().UTC().Add(domain.SLADuration(review.Priority))
	if err := s.reviewRepo.Reopen(ctx, reviewID, dueDate); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review reopened",
		slog.String("review_id", reviewID),
		slog.String("previous_status", review.Status),
	)

	reopened, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishReviewReopened(ctx, reopened); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.reopened event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	if s.autoAssign {
		if _, err := s.assigner.TryAssign(ctx, reopened); err != nil {
			s.logger.ErrorContext(ctx, "reassignment after reopen failed",
				slog.String("review_id", reviewID),
				slog.String("error", err.Error()),
			)
		}
		return s.reviewRepo.GetByID(ctx, reviewID)
	}

	return reopened, nil
}
