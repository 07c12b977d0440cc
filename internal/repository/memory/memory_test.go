package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

func newExpert(id string, score float64, workload, max int) *domain.Expert {
	return &domain.Expert{
		ID:                   id,
		Name:                 "Expert " + id,
		Email:                id + "@example.org",
		Domains:              []string{domain.DomainSpiritual},
		CredentialTier:       domain.TierPractitioner,
		QualityScore:         score,
		MaxConcurrentReviews: max,
		CurrentWorkload:      workload,
		Availability:         domain.AvailabilityActive,
		CreatedAt:            time.Now().UTC(),
	}
}

func newReview(id, status string, created time.Time) *domain.ReviewItem {
	return &domain.ReviewItem{
		ID:            id,
		ContentID:     "content-" + id,
		ContentType:   domain.ContentTypeQuote,
		ContentTitle:  "Title " + id,
		Domain:        domain.DomainSpiritual,
		PersonalityID: "persona-1",
		Priority:      domain.PriorityMedium,
		Status:        status,
		CreatedAt:     created,
		DueDate:       created.Add(72 * time.Hour),
	}
}

func TestExpertRepository_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()

	require.NoError(t, repo.Create(ctx, newExpert("e1", 80.0, 0, 5)))
	err := repo.Create(ctx, newExpert("e1", 80.0, 0, 5))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()

	created := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newReview("r1", domain.StatusPending, created)))
	err := repo.Create(ctx, newReview("r1", domain.StatusPending, created))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestExpertRepository_ListQualified_Ranking(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()

	// Same quality: lower workload wins; full tie: lower ID wins.
	require.NoError(t, repo.Create(ctx, newExpert("c", 80.0, 1, 5)))
	require.NoError(t, repo.Create(ctx, newExpert("a", 80.0, 3, 5)))
	require.NoError(t, repo.Create(ctx, newExpert("b", 90.0, 4, 5)))
	require.NoError(t, repo.Create(ctx, newExpert("d", 80.0, 1, 5)))

	experts, err := repo.ListQualified(ctx, domain.DomainSpiritual)
	require.NoError(t, err)
	require.Len(t, experts, 4)
	assert.Equal(t, "b", experts[0].ID)
	assert.Equal(t, "c", experts[1].ID)
	assert.Equal(t, "d", experts[2].ID)
	assert.Equal(t, "a", experts[3].ID)
}

func TestExpertRepository_ListQualified_ExcludesFullAndInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()

	full := newExpert("full", 99.0, 5, 5)
	inactive := newExpert("inactive", 99.0, 0, 5)
	inactive.Availability = domain.AvailabilityOnLeave
	open := newExpert("open", 50.0, 0, 5)

	require.NoError(t, repo.Create(ctx, full))
	require.NoError(t, repo.Create(ctx, inactive))
	require.NoError(t, repo.Create(ctx, open))

	experts, err := repo.ListQualified(ctx, domain.DomainSpiritual)
	require.NoError(t, err)
	require.Len(t, experts, 1)
	assert.Equal(t, "open", experts[0].ID)
}

func TestExpertRepository_ReserveCapacity_ConcurrentSingleSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()
	require.NoError(t, repo.Create(ctx, newExpert("solo", 80.0, 4, 5)))

	const attempts = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ReserveCapacity(ctx, "solo"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "only one reservation may win the last slot")

	e, err := repo.GetByID(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, 5, e.CurrentWorkload)
}

func TestExpertRepository_ReleaseCapacity_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()
	require.NoError(t, repo.Create(ctx, newExpert("e1", 80.0, 0, 5)))

	require.NoError(t, repo.ReleaseCapacity(ctx, "e1", false))

	e, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 0, e.CurrentWorkload)
}

func TestExpertRepository_ReleaseCapacity_CountsCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewExpertRepository()
	require.NoError(t, repo.Create(ctx, newExpert("e1", 80.0, 2, 5)))

	require.NoError(t, repo.ReleaseCapacity(ctx, "e1", true))

	e, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.CurrentWorkload)
	assert.Equal(t, 1, e.TotalReviews)
}

func TestReviewRepository_MarkAssigned_Guard(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newReview("r1", domain.StatusPending, now)))

	require.NoError(t, repo.MarkAssigned(ctx, "r1", "expert-1", now))

	// Second assignment must fail: the review is no longer pending.
	err := repo.MarkAssigned(ctx, "r1", "expert-2", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	rv, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, rv.Status)
	require.NotNil(t, rv.AssignedExpertID)
	assert.Equal(t, "expert-1", *rv.AssignedExpertID)
}

func TestReviewRepository_Complete_RequiresAssignedExpert(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newReview("r1", domain.StatusPending, now)))
	require.NoError(t, repo.MarkAssigned(ctx, "r1", "expert-1", now))

	err := repo.Complete(ctx, "r1", "expert-2", domain.StatusApproved, now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, repo.Complete(ctx, "r1", "expert-1", domain.StatusApproved, now))

	rv, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, rv.Status)
	assert.NotNil(t, rv.CompletedAt)
}

func TestReviewRepository_Reopen(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newReview("r1", domain.StatusPending, now)))
	require.NoError(t, repo.MarkAssigned(ctx, "r1", "expert-1", now))
	require.NoError(t, repo.Complete(ctx, "r1", "expert-1", domain.StatusEscalated, now))

	due := now.Add(24 * time.Hour)
	require.NoError(t, repo.Reopen(ctx, "r1", due))

	rv, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rv.Status)
	assert.Nil(t, rv.AssignedExpertID)
	assert.Nil(t, rv.AssignedAt)
	assert.True(t, rv.DueDate.Equal(due))

	// Terminal reviews cannot reopen.
	require.NoError(t, repo.MarkAssigned(ctx, "r1", "expert-1", now))
	require.NoError(t, repo.Complete(ctx, "r1", "expert-1", domain.StatusApproved, now))
	err = repo.Reopen(ctx, "r1", due)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestReviewRepository_ListPendingByDomain_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	low := newReview("low", domain.StatusPending, base)
	low.Priority = domain.PriorityLow
	critical := newReview("critical", domain.StatusPending, base.Add(time.Hour))
	critical.Priority = domain.PriorityCritical
	oldMedium := newReview("old-medium", domain.StatusPending, base.Add(-time.Hour))
	newMedium := newReview("new-medium", domain.StatusPending, base.Add(2*time.Hour))

	for _, rv := range []*domain.ReviewItem{low, critical, oldMedium, newMedium} {
		require.NoError(t, repo.Create(ctx, rv))
	}

	out, err := repo.ListPendingByDomain(ctx, domain.DomainSpiritual, 10)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, "critical", out[0].ID)
	assert.Equal(t, "old-medium", out[1].ID)
	assert.Equal(t, "new-medium", out[2].ID)
	assert.Equal(t, "low", out[3].ID)
}

func TestReviewRepository_List_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rv := newReview(string(rune('a'+i)), domain.StatusPending, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, rv))
	}

	page1, total, err := repo.List(ctx, repository.ReviewFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "e", page1[0].ID)

	page3, _, err := repo.List(ctx, repository.ReviewFilter{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "a", page3[0].ID)
}

func TestReviewRepository_CompletionStats(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	approved := newReview("r1", domain.StatusPending, base)
	require.NoError(t, repo.Create(ctx, approved))
	require.NoError(t, repo.MarkAssigned(ctx, "r1", "expert-1", base.Add(time.Hour)))
	require.NoError(t, repo.Complete(ctx, "r1", "expert-1", domain.StatusApproved, base.Add(5*time.Hour)))

	rejected := newReview("r2", domain.StatusPending, base)
	require.NoError(t, repo.Create(ctx, rejected))
	require.NoError(t, repo.MarkAssigned(ctx, "r2", "expert-2", base.Add(time.Hour)))
	require.NoError(t, repo.Complete(ctx, "r2", "expert-2", domain.StatusRejected, base.Add(3*time.Hour)))

	stats, err := repo.CompletionStats(ctx, domain.DomainSpiritual, "", base)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Approved)
	assert.InDelta(t, 6.0, stats.TotalHours, 1e-6)
	assert.Equal(t, 2, stats.CompletedOnSLA)

	byExpert, err := repo.CompletionStats(ctx, "", "expert-1", base)
	require.NoError(t, err)
	assert.Equal(t, 1, byExpert.Completed)
}

func TestFeedbackRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedbackRepository()

	f := &domain.ExpertFeedback{
		ID:                   "f1",
		ReviewID:             "r1",
		ExpertID:             "expert-1",
		AccuracyScore:        90,
		AuthenticityScore:    80,
		AppropriatenessScore: 70,
		Recommendation:       domain.StatusApproved,
		Confidence:           domain.ConfidenceHigh,
		TimeSpentMinutes:     18,
		Flags:                []string{domain.FlagNeedsCitation},
		CreatedAt:            time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, f))

	list, err := repo.ListByReview(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusApproved, list[0].Recommendation)
	assert.Equal(t, []string{domain.FlagNeedsCitation}, list[0].Flags)

	empty, err := repo.ListByReview(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.Delete(ctx, "f1"))
	list, err = repo.ListByReview(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
