package service

import (
	"context"
	"fmt"
	"time"

	"github.com/personaforge/review-engine/internal/domain"
	"github.com/personaforge/review-engine/internal/repository"
	apperrors "github.com/personaforge/review-engine/pkg/errors"
)

// AnalyticsService aggregates queue depth, throughput and quality metrics.
type AnalyticsService struct {
	reviewRepo repository.ReviewRepository
	expertRepo repository.ExpertRepository
	experts    *ExpertService
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	reviewRepo repository.ReviewRepository,
	expertRepo repository.ExpertRepository,
	experts *ExpertService,
) *AnalyticsService {
	return &AnalyticsService{
		reviewRepo: reviewRepo,
		expertRepo: expertRepo,
		experts:    experts,
	}
}

// Queues returns a point-in-time snapshot of every knowledge domain's queue.
func (s *AnalyticsService) Queues(ctx context.Context) ([]*domain.ReviewQueue, error) {
	now := time.Now().UTC()
	queues := make([]*domain.ReviewQueue, 0, len(domain.ValidDomains()))

	for _, knowledgeDomain := range domain.ValidDomains() {
		counts, err := s.reviewRepo.CountByDomainStatus(ctx, knowledgeDomain)
		if err != nil {
			return nil, fmt.Errorf("queue snapshot for %s: %w", knowledgeDomain, err)
		}

		overdue, err := s.reviewRepo.CountOverdue(ctx, knowledgeDomain, now)
		if err != nil {
			return nil, fmt.Errorf("overdue count for %s: %w", knowledgeDomain, err)
		}

		available, err := s.expertRepo.CountAvailable(ctx, knowledgeDomain)
		if err != nil {
			return nil, fmt.Errorf("available experts for %s: %w", knowledgeDomain, err)
		}

		stats, err := s.reviewRepo.CompletionStats(ctx, knowledgeDomain, "", time.Time{})
		if err != nil {
			return nil, fmt.Errorf("completion stats for %s: %w", knowledgeDomain, err)
		}

		queue := &domain.ReviewQueue{
			Domain:           knowledgeDomain,
			PendingCount:     counts[domain.StatusPending],
			InReviewCount:    counts[domain.StatusInReview],
			CompletedCount:   counts[domain.StatusApproved] + counts[domain.StatusRejected],
			OverdueCount:     overdue,
			AvailableExperts: available,
		}
		if stats.Completed > 0 {
			queue.AvgReviewHours = stats.TotalHours / float64(stats.Completed)
		}
		queues = append(queues, queue)
	}

	return queues, nil
}

// Report aggregates throughput and quality over the trailing window,
// optionally scoped to one knowledge domain.
func (s *AnalyticsService) Report(ctx context.Context, knowledgeDomain string, window time.Duration) (*domain.AnalyticsReport, error) {
	if knowledgeDomain != "" && !domain.IsValidDomain(knowledgeDomain) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid domain: %s", knowledgeDomain))
	}
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	byStatus, err := s.reviewRepo.CountByStatus(ctx, knowledgeDomain)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	byPriority, err := s.reviewRepo.CountByPriority(ctx, knowledgeDomain)
	if err != nil {
		return nil, fmt.Errorf("priority counts: %w", err)
	}

	since := time.Now().UTC().Add(-window)
	stats, err := s.reviewRepo.CompletionStats(ctx, knowledgeDomain, "", since)
	if err != nil {
		return nil, fmt.Errorf("completion stats: %w", err)
	}

	byDomain := map[string]int{}
	for _, d := range domain.ValidDomains() {
		if knowledgeDomain != "" && d != knowledgeDomain {
			continue
		}
		counts, err := s.reviewRepo.CountByDomainStatus(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("domain counts for %s: %w", d, err)
		}
		for _, n := range counts {
			byDomain[d] += n
		}
	}

	performance, err := s.expertPerformance(ctx, knowledgeDomain, since)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	report := &domain.AnalyticsReport{
		Domain:           knowledgeDomain,
		TotalReviews:     total,
		CompletedReviews: stats.Completed,
		ByStatus:         byStatus,
		ByPriority:       byPriority,
		ByDomain:         byDomain,
		Experts:          performance,
	}
	if stats.Completed > 0 {
		report.ApprovalRate = float64(stats.Approved) / float64(stats.Completed)
		report.AvgReviewHours = stats.TotalHours / float64(stats.Completed)
		report.SLAComplianceRate = float64(stats.CompletedOnSLA) / float64(stats.Completed)
	}

	return report, nil
}

// expertPerformance builds the per-expert rows of the analytics report,
// scoped to the experts qualified for the domain when one is given.
func (s *AnalyticsService) expertPerformance(ctx context.Context, knowledgeDomain string, since time.Time) ([]*domain.ExpertPerformance, error) {
	experts, err := s.expertRepo.List(ctx, knowledgeDomain)
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}

	performance := make([]*domain.ExpertPerformance, 0, len(experts))
	for _, e := range experts {
		stats, err := s.reviewRepo.CompletionStats(ctx, knowledgeDomain, e.ID, since)
		if err != nil {
			return nil, fmt.Errorf("completion stats for expert %s: %w", e.ID, err)
		}

		row := &domain.ExpertPerformance{
			ExpertID:        e.ID,
			Name:            e.Name,
			QualityScore:    e.QualityScore,
			CurrentWorkload: e.CurrentWorkload,
			Utilization:     e.Utilization(),
			Completed:       stats.Completed,
		}
		if stats.Completed > 0 {
			row.AvgReviewHours = stats.TotalHours / float64(stats.Completed)
		}
		performance = append(performance, row)
	}

	return performance, nil
}

// ExpertDashboard summarizes an expert's current assignments and trailing
// 30-day performance.
func (s *AnalyticsService) ExpertDashboard(ctx context.Context, expertID string) (*domain.ExpertDashboard, error) {
	expert, err := s.experts.Get(ctx, expertID)
	if err != nil {
		return nil, err
	}

	active, err := s.reviewRepo.ListActiveByExpert(ctx, expertID)
	if err != nil {
		return nil, fmt.Errorf("active reviews for expert: %w", err)
	}

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	stats, err := s.reviewRepo.CompletionStats(ctx, "", expertID, since)
	if err != nil {
		return nil, fmt.Errorf("expert completion stats: %w", err)
	}

	dashboard := &domain.ExpertDashboard{
		Expert:           expert,
		ActiveReviews:    active,
		CompletedLast30d: stats.Completed,
		Utilization:      expert.Utilization(),
	}
	if stats.Completed > 0 {
		dashboard.AvgTurnaroundHrs = stats.TotalHours / float64(stats.Completed)
		dashboard.ApprovalRate = float64(stats.Approved) / float64(stats.Completed)
	}

	return dashboard, nil
}
