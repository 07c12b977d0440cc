package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	"github.com/personaforge/review-engine/pkg/database"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupExpertRepo(t *testing.T) (*ExpertRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewExpertRepository(mock), mock
}

func setupReviewRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewReviewRepository(mock), mock
}

func setupFeedbackRepo(t *testing.T) (*FeedbackRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewFeedbackRepository(mock), mock
}

var expertColumnNames = []string{
	"id", "name", "email", "domains", "credential_tier", "specializations",
	"languages", "quality_score", "max_concurrent_reviews", "current_workload",
	"availability", "total_reviews", "created_at", "last_active_at",
}

var reviewColumnNames = []string{
	"id", "content_id", "content_type", "content_title", "content_preview",
	"domain", "personality_id", "priority", "status", "assigned_expert_id",
	"created_at", "assigned_at", "due_date", "completed_at", "metadata",
}

func sampleExpert() domain.Expert {
	return domain.Expert{
		ID:                   "expert-1",
		Name:                 "Dr. Rivera",
		Email:                "rivera@example.org",
		Domains:              []string{domain.DomainHistorical, domain.DomainCultural},
		CredentialTier:       domain.TierAcademic,
		Specializations:      []string{"late antiquity"},
		Languages:            []string{"en", "la"},
		QualityScore:         91.0,
		MaxConcurrentReviews: 5,
		CurrentWorkload:      2,
		Availability:         domain.AvailabilityActive,
		TotalReviews:         40,
		CreatedAt:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sampleReview() domain.ReviewItem {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.ReviewItem{
		ID:             "review-1",
		ContentID:      "content-1",
		ContentType:    domain.ContentTypeQuote,
		ContentTitle:   "On Stillness",
		ContentPreview: "A short meditation on stillness.",
		Domain:         domain.DomainSpiritual,
		PersonalityID:  "persona-1",
		Priority:       domain.PriorityHigh,
		Status:         domain.StatusPending,
		CreatedAt:      created,
		DueDate:        created.Add(24 * time.Hour),
	}
}

func expertRow(e domain.Expert) *pgxmock.Rows {
	return pgxmock.NewRows(expertColumnNames).AddRow(
		e.ID, e.Name, e.Email, e.Domains, e.CredentialTier, e.Specializations,
		e.Languages, e.QualityScore, e.MaxConcurrentReviews, e.CurrentWorkload,
		e.Availability, e.TotalReviews, e.CreatedAt, e.LastActiveAt,
	)
}

func reviewRow(rv domain.ReviewItem) *pgxmock.Rows {
	return pgxmock.NewRows(reviewColumnNames).AddRow(
		rv.ID, rv.ContentID, rv.ContentType, rv.ContentTitle, rv.ContentPreview,
		rv.Domain, rv.PersonalityID, rv.Priority, rv.Status, rv.AssignedExpertID,
		rv.CreatedAt, rv.AssignedAt, rv.DueDate, rv.CompletedAt, []byte("null"),
	)
}

// ---------------------------------------------------------------------------
// ExpertRepository
// ---------------------------------------------------------------------------

func TestExpertRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	e := sampleExpert()
	mock.ExpectQuery("SELECT .+ FROM experts WHERE id").
		WithArgs(e.ID).
		WillReturnRows(expertRow(e))

	result, err := repo.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, result.ID)
	assert.Equal(t, e.Domains, result.Domains)
	assert.Equal(t, e.QualityScore, result.QualityScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpertRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM experts WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(expertColumnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExpertRepository_ListQualified_OrdersByRanking(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	first := sampleExpert()
	second := sampleExpert()
	second.ID = "expert-2"
	second.QualityScore = 75.0

	mock.ExpectQuery("SELECT .+ FROM experts").
		WithArgs(domain.DomainHistorical, domain.AvailabilityActive).
		WillReturnRows(expertRow(first).AddRow(
			second.ID, second.Name, second.Email, second.Domains, second.CredentialTier,
			second.Specializations, second.Languages, second.QualityScore,
			second.MaxConcurrentReviews, second.CurrentWorkload, second.Availability,
			second.TotalReviews, second.CreatedAt, second.LastActiveAt,
		))

	experts, err := repo.ListQualified(context.Background(), domain.DomainHistorical)
	require.NoError(t, err)
	require.Len(t, experts, 2)
	assert.Equal(t, "expert-1", experts[0].ID)
	assert.Equal(t, "expert-2", experts[1].ID)
}

func TestExpertRepository_ReserveCapacity_Success(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE experts").
		WithArgs("expert-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.ReserveCapacity(context.Background(), "expert-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpertRepository_ReserveCapacity_AtCapacity(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	e := sampleExpert()
	e.CurrentWorkload = e.MaxConcurrentReviews

	mock.ExpectExec("UPDATE experts").
		WithArgs(e.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .+ FROM experts WHERE id").
		WithArgs(e.ID).
		WillReturnRows(expertRow(e))

	err := repo.ReserveCapacity(context.Background(), e.ID)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
}

func TestExpertRepository_ReserveCapacity_MissingExpert(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE experts").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .+ FROM experts WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(expertColumnNames))

	err := repo.ReserveCapacity(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExpertRepository_ReleaseCapacity_Success(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE experts").
		WithArgs("expert-1", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.ReleaseCapacity(context.Background(), "expert-1", true)
	assert.NoError(t, err)
}

func TestExpertRepository_CountAvailable(t *testing.T) {
	repo, mock := setupExpertRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(domain.DomainGeneral, domain.AvailabilityActive).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountAvailable(context.Background(), domain.DomainGeneral)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// ---------------------------------------------------------------------------
// ReviewRepository
// ---------------------------------------------------------------------------

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ContentID, rv.ContentType, rv.ContentTitle, rv.ContentPreview,
			rv.Domain, rv.PersonalityID, rv.Priority, rv.Status, rv.CreatedAt, rv.DueDate,
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &rv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(reviewColumnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewRepository_MarkAssigned_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	assignedAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusInReview, "expert-1", assignedAt, "review-1", domain.StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkAssigned(context.Background(), "review-1", "expert-1", assignedAt)
	assert.NoError(t, err)
}

func TestReviewRepository_MarkAssigned_NotPending(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	rv.Status = domain.StatusInReview
	assignedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusInReview, "expert-1", assignedAt, rv.ID, domain.StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs(rv.ID).
		WillReturnRows(reviewRow(rv))

	err := repo.MarkAssigned(context.Background(), rv.ID, "expert-1", assignedAt)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestReviewRepository_Complete_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	completedAt := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusApproved, completedAt, "review-1", domain.StatusInReview, "expert-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Complete(context.Background(), "review-1", "expert-1", domain.StatusApproved, completedAt)
	assert.NoError(t, err)
}

func TestReviewRepository_Complete_WrongExpert(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	rv.Status = domain.StatusInReview
	other := "expert-2"
	rv.AssignedExpertID = &other
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusApproved, completedAt, rv.ID, domain.StatusInReview, "expert-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs(rv.ID).
		WillReturnRows(reviewRow(rv))

	err := repo.Complete(context.Background(), rv.ID, "expert-1", domain.StatusApproved, completedAt)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestReviewRepository_Complete_AlreadyTerminal(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	rv.Status = domain.StatusApproved
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusRejected, completedAt, rv.ID, domain.StatusInReview, "expert-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs(rv.ID).
		WillReturnRows(reviewRow(rv))

	err := repo.Complete(context.Background(), rv.ID, "expert-1", domain.StatusRejected, completedAt)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestReviewRepository_Reopen_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	dueDate := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(domain.StatusPending, dueDate, "review-1", domain.StatusEscalated, domain.StatusRequiresRevision).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Reopen(context.Background(), "review-1", dueDate)
	assert.NoError(t, err)
}

func TestReviewRepository_List_FiltersByStatusAndDomain(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	rows := pgxmock.NewRows(append(reviewColumnNames, "total_count")).AddRow(
		rv.ID, rv.ContentID, rv.ContentType, rv.ContentTitle, rv.ContentPreview,
		rv.Domain, rv.PersonalityID, rv.Priority, rv.Status, rv.AssignedExpertID,
		rv.CreatedAt, rv.AssignedAt, rv.DueDate, rv.CompletedAt, []byte("null"), 1,
	)

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE status").
		WithArgs(domain.StatusPending, domain.DomainSpiritual, 20, 0).
		WillReturnRows(rows)

	reviews, total, err := repo.List(context.Background(), repository.ReviewFilter{
		Status: domain.StatusPending,
		Domain: domain.DomainSpiritual,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reviews, 1)
	assert.Equal(t, rv.ID, reviews[0].ID)
}

func TestReviewRepository_CountByDomainStatus(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs(domain.DomainSpiritual).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(domain.StatusPending, 4).
			AddRow(domain.StatusInReview, 2))

	counts, err := repo.CountByDomainStatus(context.Background(), domain.DomainSpiritual)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[domain.StatusPending])
	assert.Equal(t, 2, counts[domain.StatusInReview])
}

func TestReviewRepository_CompletionStats(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").
		WithArgs(since, domain.DomainSpiritual).
		WillReturnRows(pgxmock.NewRows([]string{"completed", "approved", "hours", "on_sla"}).
			AddRow(10, 7, 42.5, 9))

	stats, err := repo.CompletionStats(context.Background(), domain.DomainSpiritual, "", since)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Completed)
	assert.Equal(t, 7, stats.Approved)
	assert.InDelta(t, 42.5, stats.TotalHours, 1e-9)
	assert.Equal(t, 9, stats.CompletedOnSLA)
}

func TestReviewRepository_Create_DBError(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ContentID, rv.ContentType, rv.ContentTitle, rv.ContentPreview,
			rv.Domain, rv.PersonalityID, rv.Priority, rv.Status, rv.CreatedAt, rv.DueDate,
			pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &rv)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "create review")
}

// ---------------------------------------------------------------------------
// FeedbackRepository
// ---------------------------------------------------------------------------

func TestFeedbackRepository_Create_Success(t *testing.T) {
	repo, mock := setupFeedbackRepo(t)
	defer mock.Close()

	f := domain.ExpertFeedback{
		ID:                   "feedback-1",
		ReviewID:             "review-1",
		ExpertID:             "expert-1",
		AccuracyScore:        90,
		AuthenticityScore:    85,
		AppropriatenessScore: 80,
		Comments:             "Accurate and well sourced.",
		Suggestions:          []string{},
		Flags:                []string{},
		Recommendation:       domain.StatusApproved,
		Confidence:           domain.ConfidenceHigh,
		TimeSpentMinutes:     22,
		CreatedAt:            time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO feedback").
		WithArgs(f.ID, f.ReviewID, f.ExpertID, f.AccuracyScore, f.AuthenticityScore,
			f.AppropriatenessScore, f.Comments, f.Suggestions, f.Flags,
			f.Recommendation, f.Confidence, f.TimeSpentMinutes, f.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &f)
	assert.NoError(t, err)
}

func TestFeedbackRepository_Delete(t *testing.T) {
	repo, mock := setupFeedbackRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM feedback").
		WithArgs("feedback-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "feedback-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_ListByReview(t *testing.T) {
	repo, mock := setupFeedbackRepo(t)
	defer mock.Close()

	cols := []string{"id", "review_id", "expert_id", "accuracy_score",
		"authenticity_score", "appropriateness_score", "comments", "suggestions",
		"flags", "recommendation", "confidence", "time_spent_minutes", "created_at"}

	mock.ExpectQuery("SELECT .+ FROM feedback WHERE review_id").
		WithArgs("review-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"feedback-1", "review-1", "expert-1",
			40.0, 50.0, 60.0, "Misattributed quote.",
			[]string{"Verify the attribution against the primary source."},
			[]string{domain.FlagMisattribution}, domain.StatusRejected,
			domain.ConfidenceMedium, 35,
			time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
		))

	feedbacks, err := repo.ListByReview(context.Background(), "review-1")
	require.NoError(t, err)
	require.Len(t, feedbacks, 1)
	assert.Equal(t, domain.StatusRejected, feedbacks[0].Recommendation)
	assert.Equal(t, []string{domain.FlagMisattribution}, feedbacks[0].Flags)
	assert.InDelta(t, 50.0, feedbacks[0].OverallScore(), 1e-6)
}
