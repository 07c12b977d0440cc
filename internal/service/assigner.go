package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/event"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// Assigner routes pending reviews to qualified experts. Candidates are
// ranked by quality score descending, workload ascending, then ID, and
// capacity is reserved before the review is marked assigned so an expert
// can never exceed max_concurrent_reviews.
type Assigner struct {
	expertRepo repository.ExpertRepository
	reviewRepo repository.ReviewRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewAssigner creates a new assigner.
func NewAssigner(
	expertRepo repository.ExpertRepository,
	reviewRepo repository.ReviewRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *Assigner {
	return &Assigner{
		expertRepo: expertRepo,
		reviewRepo: reviewRepo,
		producer:   producer,
		logger:     logger,
	}
}

// TryAssign attempts to route a pending review to the best qualified expert.
// It walks the ranked candidate list; losing a capacity race to a concurrent
// assignment moves on to the next candidate. When no expert can take the
// review it stays pending and TryAssign returns (nil, nil).
func (a *Assigner) TryAssign(ctx context.Context, review *domain.ReviewItem) (*domain.Expert, error) {
	candidates, err := a.expertRepo.ListQualified(ctx, review.Domain)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if err := a.expertRepo.ReserveCapacity(ctx, candidate.ID); err != nil {
			if errors.Is(err, apperrors.ErrCapacityExceeded) {
				// Lost the race to a concurrent assignment; try the next one.
				continue
			}
			return nil, err
		}

		if err := a.reviewRepo.MarkAssigned(ctx, review.ID, candidate.ID, time.Now().UTC()); err != nil {
			// Compensate: the slot was reserved but the review is gone or no
			// longer pending.
			if relErr := a.expertRepo.ReleaseCapacity(ctx, candidate.ID, false); relErr != nil {
				a.logger.ErrorContext(ctx, "failed to release capacity after assignment rollback",
					slog.String("expert_id", candidate.ID),
					slog.String("review_id", review.ID),
					slog.String("error", relErr.Error()),
				)
			}
			if errors.Is(err, apperrors.ErrInvalidTransition) {
				// Someone else assigned or completed the review meanwhile.
				return nil, nil
			}
			return nil, err
		}

		a.logger.InfoContext(ctx, "review assigned",
			slog.String("review_id", review.ID),
			slog.String("expert_id", candidate.ID),
			slog.String("domain", review.Domain),
			slog.String("priority", review.Priority),
		)

		if err := a.producer.PublishReviewAssigned(ctx, review, candidate.ID); err != nil {
			a.logger.ErrorContext(ctx, "failed to publish review.assigned event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}

		return candidate, nil
	}

	a.logger.InfoContext(ctx, "no qualified expert available, review stays pending",
		slog.String("review_id", review.ID),
		slog.String("domain", review.Domain),
	)

	return nil, nil
}

// AssignPending drains as much of the domain's pending backlog as expert
// capacity allows. Returns the number of reviews assigned.
func (a *Assigner) AssignPending(ctx context.Context, knowledgeDomain string) (int, error) {
	pending, err := a.reviewRepo.ListPendingByDomain(ctx, knowledgeDomain, 0)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, review := range pending {
		expert, err := a.TryAssign(ctx, review)
		if err != nil {
			return assigned, err
		}
		if expert == nil {
			// Capacity in this domain is exhausted.
			break
		}
		assigned++
	}

	return assigned, nil
}

// SweepAll runs AssignPending across every knowledge domain. Used by the
// periodic background sweep that retries reviews left pending when no
// expert had capacity at submission time.
func (a *Assigner) SweepAll(ctx context.Context) {
	for _, knowledgeDomain := range domain.ValidDomains() {
		assigned, err := a.AssignPending(ctx, knowledgeDomain)
		if err != nil {
			a.logger.ErrorContext(ctx, "pending sweep failed",
				slog.String("domain", knowledgeDomain),
				slog.String("error", err.Error()),
			)
			continue
		}
		if assigned > 0 {
			a.logger.InfoContext(ctx, "pending sweep assigned reviews",
				slog.String("domain", knowledgeDomain),
				slog.Int("assigned", assigned),
			)
		}
	}
}
