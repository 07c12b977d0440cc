package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/personaforge/review-engine/internal/domain"
	pkgkafka "github.com/personaforge/review-engine/pkg/kafka"
)

// Kafka topic consumed by the review engine.
const TopicContentGenerated = "personaforge.content.generated"

// ReviewSubmitter defines the interface required by the event consumer.
type ReviewSubmitter interface {
	SubmitGenerated(ctx context.Context, data ContentGeneratedData) (*domain.ReviewItem, error)
}

// ContentGeneratedData is the expected payload of a content.generated event.
type ContentGeneratedData struct {
	ContentID     string            `json:"content_id"`
	ContentType   string            `json:"content_type"`
	Title         string            `json:"title"`
	Preview       string            `json:"preview,omitempty"`
	Domain        string            `json:"domain"`
	PersonalityID string            `json:"personality_id"`
	Priority      string            `json:"priority,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Consumer processes incoming Kafka events for the review engine.
type Consumer struct {
	logger  *slog.Logger
	reviews ReviewSubmitter
}

// NewConsumer creates a new event consumer for the review engine.
func NewConsumer(reviews ReviewSubmitter, logger *slog.Logger) *Consumer {
	return &Consumer{
		reviews: reviews,
		logger:  logger,
	}
}

// HandleContentGenerated queues freshly generated content for expert review.
func (c *Consumer) HandleContentGenerated(ctx context.Context, event *pkgkafka.Event) error {
	var data ContentGeneratedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal content.generated data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing content.generated event",
		slog.String("content_id", data.ContentID),
		slog.String("domain", data.Domain),
	)

	review, err := c.reviews.SubmitGenerated(ctx, data)
	if err != nil {
		return fmt.Errorf("queue content %s for review: %w", data.ContentID, err)
	}

	c.logger.InfoContext(ctx, "content queued for review",
		slog.String("content_id", data.ContentID),
		slog.String("review_id", review.ID),
	)

	return nil
}
