package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	"github.com/personaforge/review-engine/pkg/database"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, content_id, content_type, content_title, content_preview,
	domain, personality_id, priority, status, assigned_expert_id,
	created_at, assigned_at, due_date, completed_at, metadata`

// Create inserts a new review item.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.ReviewItem) error {
	metadata, err := json.Marshal(review.Metadata)
	if err != nil {
		return fmt.Errorf("marshal review metadata: %w", err)
	}

	query := `
		INSERT INTO reviews (id, content_id, content_type, content_title, content_preview,
			domain, personality_id, priority, status, created_at, due_date, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.ContentID,
		review.ContentType,
		review.ContentTitle,
		review.ContentPreview,
		review.Domain,
		review.PersonalityID,
		review.Priority,
		review.Status,
		review.CreatedAt,
		review.DueDate,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its unique identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	item, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}

	return item, nil
}

// List returns reviews matching the filter with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.ReviewItem, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	appendCond := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	appendCond("status", filter.Status)
	appendCond("domain", filter.Domain)
	appendCond("priority", filter.Priority)
	appendCond("assigned_expert_id", filter.ExpertID)

	query := `SELECT ` + reviewColumns + `, count(*) OVER() AS total_count FROM reviews`
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`, argIndex, argIndex+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    = []*domain.ReviewItem{}
		totalCount int
	)

	for rows.Next() {
		item, err := scanReviewWithTotal(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// MarkAssigned transitions a pending review to in_review. The status guard
// in the WHERE clause rejects stale assignments atomically.
func (r *ReviewRepository) MarkAssigned(ctx context.Context, reviewID, expertID string, assignedAt time.Time) error {
	query := `
		UPDATE reviews
		SET status = $1, assigned_expert_id = $2, assigned_at = $3
		WHERE id = $4 AND status = $5`

	ct, err := r.pool.Exec(ctx, query, domain.StatusInReview, expertID, assignedAt, reviewID, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("mark review assigned: %w", err)
	}

	if ct.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, reviewID)
		if err != nil {
			return err
		}
		return apperrors.InvalidTransition(current.Status, domain.StatusInReview)
	}

	return nil
}

// Complete transitions an in_review item to the target status, guarded on
// both the current status and the assigned expert.
func (r *ReviewRepository) Complete(ctx context.Context, reviewID, expertID, targetStatus string, completedAt time.Time) error {
	query := `
		UPDATE reviews
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4 AND assigned_expert_id = $5`

	ct, err := r.pool.Exec(ctx, query, targetStatus, completedAt, reviewID, domain.StatusInReview, expertID)
	if err != nil {
		return fmt.Errorf("complete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusInReview {
			return apperrors.InvalidTransition(current.Status, targetStatus)
		}
		return apperrors.NotAssigned(expertID, reviewID)
	}

	return nil
}

// Reopen returns an escalated or requires_revision review to pending,
// clearing the assignment and resetting the due date.
func (r *ReviewRepository) Reopen(ctx context.Context, reviewID string, dueDate time.Time) error {
	query := `
		UPDATE reviews
		SET status = $1, assigned_expert_id = NULL, assigned_at = NULL,
			completed_at = NULL, due_date = $2
		WHERE id = $3 AND status IN ($4, $5)`

	ct, err := r.pool.Exec(ctx, query,
		domain.StatusPending, dueDate, reviewID,
		domain.StatusEscalated, domain.StatusRequiresRevision,
	)
	if err != nil {
		return fmt.Errorf("reopen review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, reviewID)
		if err != nil {
			return err
		}
		return apperrors.InvalidTransition(current.Status, domain.StatusPending)
	}

	return nil
}

// ListActiveByExpert returns the expert's current in_review items.
func (r *ReviewRepository) ListActiveByExpert(ctx context.Context, expertID string) ([]*domain.ReviewItem, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE assigned_expert_id = $1 AND status = $2
		ORDER BY due_date ASC, id ASC`

	return r.queryReviews(ctx, query, expertID, domain.StatusInReview)
}

// ListPendingByDomain returns pending reviews for a domain ordered by
// priority urgency then age.
func (r *ReviewRepository) ListPendingByDomain(ctx context.Context, knowledgeDomain string, limit int) ([]*domain.ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE domain = $1 AND status = $2
		ORDER BY CASE priority
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, created_at ASC, id ASC
		LIMIT $3`

	return r.queryReviews(ctx, query, knowledgeDomain, domain.StatusPending, limit)
}

// CountByDomainStatus returns review counts per status for a domain.
func (r *ReviewRepository) CountByDomainStatus(ctx context.Context, knowledgeDomain string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM reviews WHERE domain = $1 GROUP BY status`
	return r.countGrouped(ctx, query, knowledgeDomain)
}

// CountOverdue returns the number of non-terminal reviews past their due date.
func (r *ReviewRepository) CountOverdue(ctx context.Context, knowledgeDomain string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reviews
		WHERE domain = $1 AND due_date < $2 AND status NOT IN ($3, $4)`

	var count int
	err := r.pool.QueryRow(ctx, query, knowledgeDomain, now, domain.StatusApproved, domain.StatusRejected).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overdue reviews: %w", err)
	}

	return count, nil
}

// CountByStatus returns review counts per status, optionally scoped to a domain.
func (r *ReviewRepository) CountByStatus(ctx context.Context, knowledgeDomain string) (map[string]int, error) {
	if knowledgeDomain == "" {
		return r.countGrouped(ctx, `SELECT status, COUNT(*) FROM reviews GROUP BY status`)
	}
	return r.countGrouped(ctx, `SELECT status, COUNT(*) FROM reviews WHERE domain = $1 GROUP BY status`, knowledgeDomain)
}

// CountByPriority returns review counts per priority, optionally scoped to a domain.
func (r *ReviewRepository) CountByPriority(ctx context.Context, knowledgeDomain string) (map[string]int, error) {
	if knowledgeDomain == "" {
		return r.countGrouped(ctx, `SELECT priority, COUNT(*) FROM reviews GROUP BY priority`)
	}
	return r.countGrouped(ctx, `SELECT priority, COUNT(*) FROM reviews WHERE domain = $1 GROUP BY priority`, knowledgeDomain)
}

// CompletionStats aggregates completed reviews since the cutoff.
func (r *ReviewRepository) CompletionStats(ctx context.Context, knowledgeDomain, expertID string, since time.Time) (*repository.CompletionStats, error) {
	var (
		conditions = []string{"completed_at IS NOT NULL", "completed_at >= $1"}
		args       = []any{since}
		argIndex   = 2
	)

	if knowledgeDomain != "" {
		conditions = append(conditions, fmt.Sprintf("domain = $%d", argIndex))
		args = append(args, knowledgeDomain)
		argIndex++
	}
	if expertID != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_expert_id = $%d", argIndex))
		args = append(args, expertID)
		argIndex++
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COALESCE(SUM(EXTRACT(EPOCH FROM (completed_at - assigned_at)) / 3600.0), 0),
			COUNT(*) FILTER (WHERE completed_at <= due_date)
		FROM reviews
		WHERE ` + joinConditions(conditions)

	var stats repository.CompletionStats
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Completed,
		&stats.Approved,
		&stats.TotalHours,
		&stats.CompletedOnSLA,
	)
	if err != nil {
		return nil, fmt.Errorf("completion stats: %w", err)
	}

	return &stats, nil
}

func (r *ReviewRepository) countGrouped(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count grouped reviews: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan grouped count row: %w", err)
		}
		counts[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grouped count rows: %w", err)
	}

	return counts, nil
}

func (r *ReviewRepository) queryReviews(ctx context.Context, query string, args ...any) ([]*domain.ReviewItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.ReviewItem{}
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

func scanReview(row pgx.Row) (*domain.ReviewItem, error) {
	item, _, err := scanReviewRow(row, false)
	return item, err
}

func scanReviewWithTotal(row pgx.Row, total *int) (*domain.ReviewItem, error) {
	item, n, err := scanReviewRow(row, true)
	if err != nil {
		return nil, err
	}
	*total = n
	return item, nil
}

func scanReviewRow(row pgx.Row, withTotal bool) (*domain.ReviewItem, int, error) {
	var (
		item         domain.ReviewItem
		metadataJSON []byte
		totalCount   int
	)

	dest := []any{
		&item.ID,
		&item.ContentID,
		&item.ContentType,
		&item.ContentTitle,
		&item.ContentPreview,
		&item.Domain,
		&item.PersonalityID,
		&item.Priority,
		&item.Status,
		&item.AssignedExpertID,
		&item.CreatedAt,
		&item.AssignedAt,
		&item.DueDate,
		&item.CompletedAt,
		&metadataJSON,
	}
	if withTotal {
		dest = append(dest, &totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}

	if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
		if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
			return nil, 0, fmt.Errorf("unmarshal review metadata: %w", err)
		}
	}

	return &item, totalCount, nil
}

func joinConditions(conditions []string) string {
	out := ""
	for i, cond := range conditions {
		if i > 0 {
			out += " AND "
		}
		out += cond
	}
	return out
}
