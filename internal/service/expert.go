package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// RegisterExpertInput carries the fields needed to register a reviewer.
type RegisterExpertInput struct {
	Name                 string
	Email                string
	Domains              []string
	CredentialTier       string
	Specializations      []string
	Languages            []string
	QualityScore         float64
	MaxConcurrentReviews int
}

// ExpertService manages the reviewer registry.
type ExpertService struct {
	expertRepo repository.ExpertRepository
	assigner   *Assigner
	logger     *slog.Logger
}

// NewExpertService creates a new expert service.
func NewExpertService(expertRepo repository.ExpertRepository, assigner *Assigner, logger *slog.Logger) *ExpertService {
	return &ExpertService{
		expertRepo: expertRepo,
		assigner:   assigner,
		logger:     logger,
	}
}

// Register adds a new expert to the registry. A freshly registered expert is
// active with zero workload, and the engine immediately checks whether any
// pending reviews in their domains can now be assigned.
func (s *ExpertService) Register(ctx context.Context, input RegisterExpertInput) (*domain.Expert, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Domains) == 0 {
		return nil, apperrors.InvalidInput("at least one domain is required")
	}
	for _, d := range input.Domains {
		if !domain.IsValidDomain(d) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid domain: %s", d))
		}
	}
	if !domain.IsValidCredentialTier(input.CredentialTier) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid credential_tier: %s", input.CredentialTier))
	}
	if input.QualityScore < 0 || input.QualityScore > 100 {
		return nil, apperrors.InvalidInput("quality_score must be between 0 and 100")
	}
	if input.MaxConcurrentReviews < 1 {
		return nil, apperrors.InvalidInput("max_concurrent_reviews must be at least 1")
	}

	expert := &domain.Expert{
		ID:                   uuid.New().String(),
		Name:                 input.Name,
		Email:                input.Email,
		Domains:              input.Domains,
		CredentialTier:       input.CredentialTier,
		Specializations:      input.Specializations,
		Languages:            input.Languages,
		QualityScore:         input.QualityScore,
		MaxConcurrentReviews: input.MaxConcurrentReviews,
		CurrentWorkload:      0,
		Availability:         domain.AvailabilityActive,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.expertRepo.Create(ctx, expert); err != nil {
		return nil, fmt.Errorf("register expert: %w", err)
	}

	s.logger.InfoContext(ctx, "expert registered",
		slog.String("expert_id", expert.ID),
		slog.String("credential_tier", expert.CredentialTier),
		slog.Int("domains", len(expert.Domains)),
	)

	// New capacity may unblock pending reviews in the expert's domains.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, d := range expert.Domains {
			if _, err := s.assigner.AssignPending(ctx, d); err != nil {
				s.logger.ErrorContext(ctx, "backlog assignment after registration failed",
					slog.String("expert_id", expert.ID),
					slog.String("domain", d),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	return expert, nil
}

// Get retrieves an expert by ID.
func (s *ExpertService) Get(ctx context.Context, id string) (*domain.Expert, error) {
	expert, err := s.expertRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("expert", id)
		}
		return nil, err
	}
	return expert, nil
}

// List returns registered experts, optionally filtered by domain.
func (s *ExpertService) List(ctx context.Context, knowledgeDomain string) ([]*domain.Expert, error) {
	if knowledgeDomain != "" && !domain.IsValidDomain(knowledgeDomain) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid domain: %s", knowledgeDomain))
	}
	return s.expertRepo.List(ctx, knowledgeDomain)
}

// SetAvailability changes an expert's availability state. Returning to
// active triggers a backlog check across the expert's domains.
func (s *ExpertService) SetAvailability(ctx context.Context, expertID, availability string) (*domain.Expert, error) {
	if !domain.IsValidAvailability(availability) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid availability: %s", availability))
	}

	if err := s.expertRepo.UpdateAvailability(ctx, expertID, availability); err != nil {
		return nil, err
	}

	expert, err := s.Get(ctx, expertID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "expert availability updated",
		slog.String("expert_id", expertID),
		slog.String("availability", availability),
	)

	if availability == domain.AvailabilityActive {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			for _, d := range expert.Domains {
				if _, err := s.assigner.AssignPending(ctx, d); err != nil {
					s.logger.ErrorContext(ctx, "backlog assignment after availability change failed",
						slog.String("expert_id", expertID),
						slog.String("domain", d),
						slog.String("error", err.Error()),
					)
				}
			}
		}()
	}

	return expert, nil
}
