package postgres

import (
	"context"
	"fmt"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/pkg/database"
)

// FeedbackRepository implements repository.FeedbackRepository using PostgreSQL.
type FeedbackRepository struct {
	pool database.DBTX
}

// NewFeedbackRepository creates a new PostgreSQL-backed feedback repository.
func NewFeedbackRepository(pool database.DBTX) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

// Create inserts a new feedback record.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *domain.ExpertFeedback) error {
	query := `
		INSERT INTO feedback (id, review_id, expert_id, accuracy_score,
			authenticity_score, appropriateness_score, comments, suggestions, flags,
			recommendation, confidence, time_spent_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		feedback.ID,
		feedback.ReviewID,
		feedback.ExpertID,
		feedback.AccuracyScore,
		feedback.AuthenticityScore,
		feedback.AppropriatenessScore,
		feedback.Comments,
		feedback.Suggestions,
		feedback.Flags,
		feedback.Recommendation,
		feedback.Confidence,
		feedback.TimeSpentMinutes,
		feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}

	return nil
}

// Delete removes a feedback record by ID.
func (r *FeedbackRepository) Delete(ctx context.Context, feedbackID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, feedbackID); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}

// ListByReview returns all feedback submitted for a review, oldest first.
func (r *FeedbackRepository) ListByReview(ctx context.Context, reviewID string) ([]*domain.ExpertFeedback, error) {
	query := `
		SELECT id, review_id, expert_id, accuracy_score, authenticity_score,
			appropriateness_score, comments, suggestions, flags, recommendation,
			confidence, time_spent_minutes, created_at
		FROM feedback
		WHERE review_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list feedback by review: %w", err)
	}
	defer rows.Close()

	feedbacks := []*domain.ExpertFeedback{}
	for rows.Next() {
		var f domain.ExpertFeedback
		if err := rows.Scan(
			&f.ID,
			&f.ReviewID,
			&f.ExpertID,
			&f.AccuracyScore,
			&f.AuthenticityScore,
			&f.AppropriatenessScore,
			&f.Comments,
			&f.Suggestions,
			&f.Flags,
			&f.Recommendation,
			&f.Confidence,
			&f.TimeSpentMinutes,
			&f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		feedbacks = append(feedbacks, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}

	return feedbacks, nil
}
