// Package memory provides mutex-protected in-memory repository
// implementations, used by service tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// ExpertRepository is an in-memory repository.ExpertRepository.
type ExpertRepository struct {
	mu      sync.RWMutex
	experts map[string]*domain.Expert
}

// NewExpertRepository creates an empty in-memory expert repository.
func NewExpertRepository() *ExpertRepository {
	return &ExpertRepository{experts: make(map[string]*domain.Expert)}
}

// Create inserts a new expert profile.
func (r *ExpertRepository) Create(_ context.Context, expert *domain.Expert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.experts[expert.ID]; ok {
		return apperrors.AlreadyExists("expert", "id", expert.ID)
	}

	cp := cloneExpert(expert)
	r.experts[expert.ID] = cp
	return nil
}

// GetByID retrieves an expert by its unique identifier.
func (r *ExpertRepository) GetByID(_ context.Context, id string) (*domain.Expert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.experts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneExpert(e), nil
}

// List returns all experts, optionally filtered by domain.
func (r *ExpertRepository) List(_ context.Context, knowledgeDomain string) ([]*domain.Expert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Expert{}
	for _, e := range r.experts {
		if knowledgeDomain != "" && !e.IsQualified(knowledgeDomain) {
			continue
		}
		out = append(out, cloneExpert(e))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListQualified returns active experts qualified for the domain with spare
// capacity, in assignment ranking order.
func (r *ExpertRepository) ListQualified(_ context.Context, knowledgeDomain string) ([]*domain.Expert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Expert{}
	for _, e := range r.experts {
		if e.IsQualified(knowledgeDomain) && e.IsAvailable() && e.HasCapacity() {
			out = append(out, cloneExpert(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		if out[i].CurrentWorkload != out[j].CurrentWorkload {
			return out[i].CurrentWorkload < out[j].CurrentWorkload
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ReserveCapacity increments the workload only while below capacity.
func (r *ExpertRepository) ReserveCapacity(_ context.Context, expertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.experts[expertID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if !e.HasCapacity() {
		return apperrors.CapacityExceeded(expertID)
	}

	e.CurrentWorkload++
	now := time.Now().UTC()
	e.LastActiveAt = &now
	return nil
}

// ReleaseCapacity decrements the workload, clamping at zero.
func (r *ExpertRepository) ReleaseCapacity(_ context.Context, expertID string, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.experts[expertID]
	if !ok {
		return apperrors.NotFound("expert", expertID)
	}

	if e.CurrentWorkload > 0 {
		e.CurrentWorkload--
	}
	if completed {
		e.TotalReviews++
	}
	now := time.Now().UTC()
	e.LastActiveAt = &now
	return nil
}

// CountAvailable returns the number of active qualified experts with spare
// capacity.
func (r *ExpertRepository) CountAvailable(_ context.Context, knowledgeDomain string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.experts {
		if e.IsQualified(knowledgeDomain) && e.IsAvailable() && e.HasCapacity() {
			count++
		}
	}
	return count, nil
}

// UpdateAvailability changes an expert's availability state.
func (r *ExpertRepository) UpdateAvailability(_ context.Context, expertID, availability string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.experts[expertID]
	if !ok {
		return apperrors.NotFound("expert", expertID)
	}
	e.Availability = availability
	return nil
}

// ReviewRepository is an in-memory repository.ReviewRepository.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*domain.ReviewItem
}

// NewReviewRepository creates an empty in-memory review repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[string]*domain.ReviewItem)}
}

// Create inserts a new review item.
func (r *ReviewRepository) Create(_ context.Context, review *domain.ReviewItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviews[review.ID]; ok {
		return apperrors.AlreadyExists("review", "id", review.ID)
	}
	r.reviews[review.ID] = cloneReview(review)
	return nil
}

// GetByID retrieves a review by its unique identifier.
func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.ReviewItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneReview(rv), nil
}

// List returns reviews matching the filter with the total count.
func (r *ReviewRepository) List(_ context.Context, filter repository.ReviewFilter) ([]*domain.ReviewItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.ReviewItem{}
	for _, rv := range r.reviews {
		if filter.Status != "" && rv.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && rv.Domain != filter.Domain {
			continue
		}
		if filter.Priority != "" && rv.Priority != filter.Priority {
			continue
		}
		if filter.ExpertID != "" && (rv.AssignedExpertID == nil || *rv.AssignedExpertID != filter.ExpertID) {
			continue
		}
		matched = append(matched, cloneReview(rv))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= total {
		return []*domain.ReviewItem{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// MarkAssigned transitions a pending review to in_review.
func (r *ReviewRepository) MarkAssigned(_ context.Context, reviewID, expertID string, assignedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[reviewID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if rv.Status != domain.StatusPending {
		return apperrors.InvalidTransition(rv.Status, domain.StatusInReview)
	}

	rv.Status = domain.StatusInReview
	rv.AssignedExpertID = &expertID
	at := assignedAt
	rv.AssignedAt = &at
	return nil
}

// Complete transitions an in_review item to the target status.
func (r *ReviewRepository) Complete(_ context.Context, reviewID, expertID, targetStatus string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[reviewID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if rv.Status != domain.StatusInReview {
		return apperrors.InvalidTransition(rv.Status, targetStatus)
	}
	if rv.AssignedExpertID == nil || *rv.AssignedExpertID != expertID {
		return apperrors.NotAssigned(expertID, reviewID)
	}

	rv.Status = targetStatus
	at := completedAt
	rv.CompletedAt = &at
	return nil
}

// Reopen returns an escalated or requires_revision review to pending.
func (r *ReviewRepository) Reopen(_ context.Context, reviewID string, dueDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[reviewID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if rv.Status != domain.StatusEscalated && rv.Status != domain.StatusRequiresRevision {
		return apperrors.InvalidTransition(rv.Status, domain.StatusPending)
	}

	rv.Status = domain.StatusPending
	rv.AssignedExpertID = nil
	rv.AssignedAt = nil
	rv.CompletedAt = nil
	rv.DueDate = dueDate
	return nil
}

// ListActiveByExpert returns the expert's current in_review items.
func (r *ReviewRepository) ListActiveByExpert(_ context.Context, expertID string) ([]*domain.ReviewItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.ReviewItem{}
	for _, rv := range r.reviews {
		if rv.Status == domain.StatusInReview && rv.AssignedExpertID != nil && *rv.AssignedExpertID == expertID {
			out = append(out, cloneReview(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListPendingByDomain returns pending reviews ordered by priority then age.
func (r *ReviewRepository) ListPendingByDomain(_ context.Context, knowledgeDomain string, limit int) ([]*domain.ReviewItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	out := []*domain.ReviewItem{}
	for _, rv := range r.reviews {
		if rv.Domain == knowledgeDomain && rv.Status == domain.StatusPending {
			out = append(out, cloneReview(rv))
		}
	}

	rank := map[string]int{
		domain.PriorityCritical: 0,
		domain.PriorityHigh:     1,
		domain.PriorityMedium:   2,
		domain.PriorityLow:      3,
	}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Priority] != rank[out[j].Priority] {
			return rank[out[i].Priority] < rank[out[j].Priority]
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByDomainStatus returns review counts per status for a domain.
func (r *ReviewRepository) CountByDomainStatus(_ context.Context, knowledgeDomain string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rv := range r.reviews {
		if rv.Domain == knowledgeDomain {
			counts[rv.Status]++
		}
	}
	return counts, nil
}

// CountOverdue returns the number of non-terminal reviews past their due date.
func (r *ReviewRepository) CountOverdue(_ context.Context, knowledgeDomain string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rv := range r.reviews {
		if rv.Domain == knowledgeDomain && rv.IsOverdue(now) {
			count++
		}
	}
	return count, nil
}

// CountByStatus returns review counts per status, optionally scoped to a domain.
func (r *ReviewRepository) CountByStatus(_ context.Context, knowledgeDomain string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rv := range r.reviews {
		if knowledgeDomain != "" && rv.Domain != knowledgeDomain {
			continue
		}
		counts[rv.Status]++
	}
	return counts, nil
}

// CountByPriority returns review counts per priority, optionally scoped to a domain.
func (r *ReviewRepository) CountByPriority(_ context.Context, knowledgeDomain string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rv := range r.reviews {
		if knowledgeDomain != "" && rv.Domain != knowledgeDomain {
			continue
		}
		counts[rv.Priority]++
	}
	return counts, nil
}

// CompletionStats aggregates completed reviews since the cutoff.
func (r *ReviewRepository) CompletionStats(_ context.Context, knowledgeDomain, expertID string, since time.Time) (*repository.CompletionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &repository.CompletionStats{}
	for _, rv := range r.reviews {
		if rv.CompletedAt == nil || rv.CompletedAt.Before(since) {
			continue
		}
		if knowledgeDomain != "" && rv.Domain != knowledgeDomain {
			continue
		}
		if expertID != "" && (rv.AssignedExpertID == nil || *rv.AssignedExpertID != expertID) {
			continue
		}

		stats.Completed++
		if rv.Status == domain.StatusApproved {
			stats.Approved++
		}
		if d, ok := rv.ReviewDuration(); ok {
			stats.TotalHours += d.Hours()
		}
		if !rv.CompletedAt.After(rv.DueDate) {
			stats.CompletedOnSLA++
		}
	}
	return stats, nil
}

// FeedbackRepository is an in-memory repository.FeedbackRepository.
type FeedbackRepository struct {
	mu       sync.RWMutex
	byReview map[string][]*domain.ExpertFeedback
}

// NewFeedbackRepository creates an empty in-memory feedback repository.
func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{byReview: make(map[string][]*domain.ExpertFeedback)}
}

// Create inserts a new feedback record.
func (r *FeedbackRepository) Create(_ context.Context, feedback *domain.ExpertFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *feedback
	cp.Suggestions = append([]string(nil), feedback.Suggestions...)
	cp.Flags = append([]string(nil), feedback.Flags...)
	r.byReview[feedback.ReviewID] = append(r.byReview[feedback.ReviewID], &cp)
	return nil
}

// Delete removes a feedback record by ID.
func (r *FeedbackRepository) Delete(_ context.Context, feedbackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for reviewID, list := range r.byReview {
		for i, f := range list {
			if f.ID == feedbackID {
				r.byReview[reviewID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// ListByReview returns all feedback submitted for a review, oldest first.
func (r *FeedbackRepository) ListByReview(_ context.Context, reviewID string) ([]*domain.ExpertFeedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byReview[reviewID]
	out := make([]*domain.ExpertFeedback, len(list))
	for i, f := range list {
		cp := *f
		cp.Suggestions = append([]string(nil), f.Suggestions...)
		cp.Flags = append([]string(nil), f.Flags...)
		out[i] = &cp
	}
	return out, nil
}

func cloneExpert(e *domain.Expert) *domain.Expert {
	cp := *e
	cp.Domains = append([]string(nil), e.Domains...)
	cp.Specializations = append([]string(nil), e.Specializations...)
	cp.Languages = append([]string(nil), e.Languages...)
	if e.LastActiveAt != nil {
		at := *e.LastActiveAt
		cp.LastActiveAt = &at
	}
	return &cp
}

func cloneReview(rv *domain.ReviewItem) *domain.ReviewItem {
	cp := *rv
	if rv.AssignedExpertID != nil {
		id := *rv.AssignedExpertID
		cp.AssignedExpertID = &id
	}
	if rv.AssignedAt != nil {
		at := *rv.AssignedAt
		cp.AssignedAt = &at
	}
	if rv.CompletedAt != nil {
		at := *rv.CompletedAt
		cp.CompletedAt = &at
	}
	if rv.Metadata != nil {
		cp.Metadata = make(map[string]string, len(rv.Metadata))
		for k, v := range rv.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
