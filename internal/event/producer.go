package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/personaforge/review-engine/internal/domain"
	pkgkafka "github.com/personaforge/review-engine/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated   = "personaforge.review.created"
	TopicReviewAssigned  = "personaforge.review.assigned"
	TopicReviewCompleted = "personaforge.review.completed"
	TopicReviewReopened  = "personaforge.review.reopened"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review engine.
const SourceReviewEngine = "review-engine"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID      string `json:"review_id"`
	ContentID     string `json:"content_id"`
	ContentType   string `json:"content_type"`
	Domain        string `json:"domain"`
	PersonalityID string `json:"personality_id"`
	Priority      string `json:"priority"`
	DueDate       string `json:"due_date"`
}

// ReviewAssignedData is the payload for a review.assigned event.
type ReviewAssignedData struct {
	ReviewID string `json:"review_id"`
	ExpertID string `json:"expert_id"`
	Domain   string `json:"domain"`
	Priority string `json:"priority"`
}

// ReviewCompletedData is the payload for a review.completed event.
type ReviewCompletedData struct {
	ReviewID     string   `json:"review_id"`
	ContentID    string   `json:"content_id"`
	ExpertID     string   `json:"expert_id"`
	Status       string   `json:"status"`
	OverallScore float64  `json:"overall_score"`
	Flags        []string `json:"flags,omitempty"`
}

// ReviewReopenedData is the payload for a review.reopened event.
type ReviewReopenedData struct {
	ReviewID string `json:"review_id"`
	Domain   string `json:"domain"`
	DueDate  string `json:"due_date"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review engine.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.ReviewItem) error {
	data := ReviewCreatedData{
		ReviewID:      review.ID,
		ContentID:     review.ContentID,
		ContentType:   review.ContentType,
		Domain:        review.Domain,
		PersonalityID: review.PersonalityID,
		Priority:      review.Priority,
		DueDate:       review.DueDate.Format("2006-01-02T15:04:05Z07:00"),
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, review.ID, AggregateTypeReview, SourceReviewEngine, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("domain", review.Domain),
	)

	return nil
}

// PublishReviewAssigned publishes a review.assigned event.
func (p *Producer) PublishReviewAssigned(ctx context.Context, review *domain.ReviewItem, expertID string) error {
	data := ReviewAssignedData{
		ReviewID: review.ID,
		ExpertID: expertID,
		Domain:   review.Domain,
		Priority: review.Priority,
	}

	event, err := pkgkafka.NewEvent(TopicReviewAssigned, review.ID, AggregateTypeReview, SourceReviewEngine, data)
	if err != nil {
		return fmt.Errorf("create review.assigned event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewAssigned, event); err != nil {
		return fmt.Errorf("publish review.assigned event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.assigned event",
		slog.String("review_id", review.ID),
		slog.String("expert_id", expertID),
	)

	return nil
}

// PublishReviewCompleted publishes a review.completed event.
func (p *Producer) PublishReviewCompleted(ctx context.Context, review *domain.ReviewItem, feedback *domain.ExpertFeedback) error {
	data := ReviewCompletedData{
		ReviewID:     review.ID,
		ContentID:    review.ContentID,
		ExpertID:     feedback.ExpertID,
		Status:       review.Status,
		OverallScore: feedback.OverallScore(),
		Flags:        feedback.Flags,
	}

	event, err := pkgkafka.NewEvent(TopicReviewCompleted, review.ID, AggregateTypeReview, SourceReviewEngine, data)
	if err != nil {
		return fmt.Errorf("create review.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCompleted, event); err != nil {
		return fmt.Errorf("publish review.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.completed event",
		slog.String("review_id", review.ID),
		slog.String("status", review.Status),
	)

	return nil
}

// PublishReviewReopened publishes a review.reopened event.
func (p *Producer) PublishReviewReopened(ctx context.Context, review *domain.ReviewItem) error {
	data := ReviewReopenedData{
		ReviewID: review.ID,
		Domain:   review.Domain,
		DueDate:  review.DueDate.Format("2006-01-02T15:04:05Z07:00"),
	}

	event, err := pkgkafka.NewEvent(TopicReviewReopened, review.ID, AggregateTypeReview, SourceReviewEngine, data)
	if err != nil {
		return fmt.Errorf("create review.reopened event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewReopened, event); err != nil {
		return fmt.Errorf("publish review.reopened event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.reopened event",
		slog.String("review_id", review.ID),
	)

	return nil
}
