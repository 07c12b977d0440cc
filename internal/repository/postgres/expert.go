package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/pkg/database"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// ExpertRepository implements repository.ExpertRepository using PostgreSQL.
type ExpertRepository struct {
	pool database.DBTX
}

// NewExpertRepository creates a new PostgreSQL-backed expert repository.
func NewExpertRepository(pool database.DBTX) *ExpertRepository {
	return &ExpertRepository{pool: pool}
}

const expertColumns = `id, name, email, domains, credential_tier, specializations,
	languages, quality_score, max_concurrent_reviews, current_workload,
	availability, total_reviews, created_at, last_active_at`

// Create inserts a new expert profile.
func (r *ExpertRepository) Create(ctx context.Context, expert *domain.Expert) error {
	query := `
		INSERT INTO experts (id, name, email, domains, credential_tier, specializations,
			languages, quality_score, max_concurrent_reviews, current_workload,
			availability, total_reviews, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		expert.ID,
		expert.Name,
		expert.Email,
		expert.Domains,
		expert.CredentialTier,
		expert.Specializations,
		expert.Languages,
		expert.QualityScore,
		expert.MaxConcurrentReviews,
		expert.CurrentWorkload,
		expert.Availability,
		expert.TotalReviews,
		expert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create expert: %w", err)
	}

	return nil
}

// GetByID retrieves an expert by its unique identifier.
func (r *ExpertRepository) GetByID(ctx context.Context, id string) (*domain.Expert, error) {
	query := `SELECT ` + expertColumns + ` FROM experts WHERE id = $1`

	e, err := scanExpert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get expert by id: %w", err)
	}

	return e, nil
}

// List returns all registered experts, optionally filtered by domain.
func (r *ExpertRepository) List(ctx context.Context, knowledgeDomain string) ([]*domain.Expert, error) {
	query := `SELECT ` + expertColumns + ` FROM experts`
	args := []any{}
	if knowledgeDomain != "" {
		query += ` WHERE $1 = ANY(domains)`
		args = append(args, knowledgeDomain)
	}
	query += ` ORDER BY name ASC, id ASC`

	return r.queryExperts(ctx, query, args...)
}

// ListQualified returns active experts qualified for the domain with spare
// capacity. The ordering is the assignment ranking: quality score descending,
// workload ascending, ID ascending as the deterministic tiebreaker.
func (r *ExpertRepository) ListQualified(ctx context.Context, knowledgeDomain string) ([]*domain.Expert, error) {
	query := `
		SELECT ` + expertColumns + `
		FROM experts
		WHERE $1 = ANY(domains)
		  AND availability = $2
		  AND current_workload < max_concurrent_reviews
		ORDER BY quality_score DESC, current_workload ASC, id ASC`

	return r.queryExperts(ctx, query, knowledgeDomain, domain.AvailabilityActive)
}

// ReserveCapacity increments the workload only while below capacity. The
// guard in the WHERE clause makes concurrent reservations safe without an
// explicit lock.
func (r *ExpertRepository) ReserveCapacity(ctx context.Context, expertID string) error {
	query := `
		UPDATE experts
		SET current_workload = current_workload + 1, last_active_at = NOW()
		WHERE id = $1 AND current_workload < max_concurrent_reviews`

	ct, err := r.pool.Exec(ctx, query, expertID)
	if err != nil {
		return fmt.Errorf("reserve expert capacity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Distinguish a missing expert from a full one.
		if _, err := r.GetByID(ctx, expertID); err != nil {
			return err
		}
		return apperrors.CapacityExceeded(expertID)
	}

	return nil
}

// ReleaseCapacity decrements the workload, clamping at zero.
func (r *ExpertRepository) ReleaseCapacity(ctx context.Context, expertID string, completed bool) error {
	query := `
		UPDATE experts
		SET current_workload = GREATEST(current_workload - 1, 0),
			total_reviews = total_reviews + CASE WHEN $2 THEN 1 ELSE 0 END,
			last_active_at = NOW()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, expertID, completed)
	if err != nil {
		return fmt.Errorf("release expert capacity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("expert", expertID)
	}

	return nil
}

// CountAvailable returns the number of active experts qualified for the
// domain with spare capacity.
func (r *ExpertRepository) CountAvailable(ctx context.Context, knowledgeDomain string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM experts
		WHERE $1 = ANY(domains)
		  AND availability = $2
		  AND current_workload < max_concurrent_reviews`

	var count int
	err := r.pool.QueryRow(ctx, query, knowledgeDomain, domain.AvailabilityActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count available experts: %w", err)
	}

	return count, nil
}

// UpdateAvailability changes an expert's availability state.
func (r *ExpertRepository) UpdateAvailability(ctx context.Context, expertID, availability string) error {
	query := `UPDATE experts SET availability = $1 WHERE id = $2`

	ct, err := r.pool.Exec(ctx, query, availability, expertID)
	if err != nil {
		return fmt.Errorf("update expert availability: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("expert", expertID)
	}

	return nil
}

func (r *ExpertRepository) queryExperts(ctx context.Context, query string, args ...any) ([]*domain.Expert, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query experts: %w", err)
	}
	defer rows.Close()

	experts := []*domain.Expert{}
	for rows.Next() {
		e, err := scanExpert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expert row: %w", err)
		}
		experts = append(experts, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expert rows: %w", err)
	}

	return experts, nil
}

func scanExpert(row pgx.Row) (*domain.Expert, error) {
	var e domain.Expert
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Domains,
		&e.CredentialTier,
		&e.Specializations,
		&e.Languages,
		&e.QualityScore,
		&e.MaxConcurrentReviews,
		&e.CurrentWorkload,
		&e.Availability,
		&e.TotalReviews,
		&e.CreatedAt,
		&e.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
