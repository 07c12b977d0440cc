package repository

import (
	"context"
	"time"

	"github.com/personaforge/review-engine/internal/domain"
)

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	Status   string
	Domain   string
	Priority string
	ExpertID string
	Page     int
	PerPage  int
}

// CompletionStats aggregates completed-review throughput for analytics.
type CompletionStats struct {
	Completed      int
	Approved       int
	TotalHours     float64
	CompletedOnSLA int
}

// ExpertRepository defines the interface for expert persistence operations.
type ExpertRepository interface {
	// Create inserts a new expert profile.
	Create(ctx context.Context, expert *domain.Expert) error

	// GetByID retrieves an expert by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Expert, error)

	// List returns all registered experts, optionally filtered by domain.
	List(ctx context.Context, knowledgeDomain string) ([]*domain.Expert, error)

	// ListQualified returns active experts qualified for the given domain
	// with spare capacity, ordered by quality score descending, current
	// workload ascending, then ID ascending.
	ListQualified(ctx context.Context, knowledgeDomain string) ([]*domain.Expert, error)

	// ReserveCapacity increments the expert's workload if and only if it is
	// below capacity. Returns ErrCapacityExceeded when the expert is full.
	ReserveCapacity(ctx context.Context, expertID string) error

	// ReleaseCapacity decrements the expert's workload, clamping at zero,
	// and bumps the completed-review counter when completed is true.
	ReleaseCapacity(ctx context.Context, expertID string, completed bool) error

	// CountAvailable returns the number of active experts qualified for the
	// domain that still have spare capacity.
	CountAvailable(ctx context.Context, knowledgeDomain string) (int, error)

	// UpdateAvailability changes an expert's availability state.
	UpdateAvailability(ctx context.Context, expertID, availability string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review item.
	Create(ctx context.Context, review *domain.ReviewItem) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.ReviewItem, error)

	// List returns reviews matching the filter with a total count for
	// pagination.
	List(ctx context.Context, filter ReviewFilter) ([]*domain.ReviewItem, int, error)

	// MarkAssigned transitions a pending review to in_review for the given
	// expert. Returns ErrInvalidTransition when the review is no longer
	// pending.
	MarkAssigned(ctx context.Context, reviewID, expertID string, assignedAt time.Time) error

	// Complete transitions an in_review item to the target status, guarded
	// on the current status and assigned expert.
	Complete(ctx context.Context, reviewID, expertID, targetStatus string, completedAt time.Time) error

	// Reopen returns an escalated or requires_revision review to pending,
	// clearing the assignment and recomputing the due date.
	Reopen(ctx context.Context, reviewID string, dueDate time.Time) error

	// ListActiveByExpert returns the expert's current in_review items.
	ListActiveByExpert(ctx context.Context, expertID string) ([]*domain.ReviewItem, error)

	// ListPendingByDomain returns pending reviews for a domain, oldest
	// first within priority order.
	ListPendingByDomain(ctx context.Context, knowledgeDomain string, limit int) ([]*domain.ReviewItem, error)

	// CountByDomainStatus returns review counts per status for a domain.
	CountByDomainStatus(ctx context.Context, knowledgeDomain string) (map[string]int, error)

	// CountOverdue returns the number of non-terminal reviews past their
	// due date for a domain.
	CountOverdue(ctx context.Context, knowledgeDomain string, now time.Time) (int, error)

	// CountByStatus returns review counts per status, optionally scoped to
	// a domain (empty string means all domains).
	CountByStatus(ctx context.Context, knowledgeDomain string) (map[string]int, error)

	// CountByPriority returns review counts per priority, optionally scoped
	// to a domain.
	CountByPriority(ctx context.Context, knowledgeDomain string) (map[string]int, error)

	// CompletionStats aggregates completed reviews since the cutoff,
	// optionally scoped to a domain or an expert.
	CompletionStats(ctx context.Context, knowledgeDomain, expertID string, since time.Time) (*CompletionStats, error)
}

// FeedbackRepository defines the interface for feedback persistence operations.
type FeedbackRepository interface {
	// Create inserts a new feedback record.
	Create(ctx context.Context, feedback *domain.ExpertFeedback) error

	// Delete removes a feedback record. Used to compensate when the
	// review transition fails after the record was written.
	Delete(ctx context.Context, feedbackID string) error

	// ListByReview returns all feedback submitted for a review, oldest
	// first.
	ListByReview(ctx context.Context, reviewID string) ([]*domain.ExpertFeedback, error)
}
