package domain

import "time"

// Review status constants.
const (
	StatusPending          = "pending"
	StatusInReview         = "in_review"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusEscalated        = "escalated"
	StatusRequiresRevision = "requires_revision"
)

// Review priority constants.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Knowledge domain constants. Experts and review queues are scoped to one of
// these independent knowledge categories.
const (
	DomainSpiritual     = "spiritual"
	DomainScientific    = "scientific"
	DomainHistorical    = "historical"
	DomainPhilosophical = "philosophical"
	DomainCultural      = "cultural"
	DomainGeneral       = "general"
)

// Content type constants for the material under review.
const (
	ContentTypeQuote     = "quote"
	ContentTypeBiography = "biography"
	ContentTypeTeaching  = "teaching"
	ContentTypeArticle   = "article"
)

// ReviewItem represents a piece of generated content awaiting expert validation.
type ReviewItem struct {
	ID               string            `json:"id"`
	ContentID        string            `json:"content_id"`
	ContentType      string            `json:"content_type"`
	ContentTitle     string            `json:"content_title"`
	ContentPreview   string            `json:"content_preview,omitempty"`
	Domain           string            `json:"domain"`
	PersonalityID    string            `json:"personality_id"`
	Priority         string            `json:"priority"`
	Status           string            `json:"status"`
	AssignedExpertID *string           `json:"assigned_expert_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	AssignedAt       *time.Time        `json:"assigned_at,omitempty"`
	DueDate          time.Time         `json:"due_date"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ValidStatuses returns all valid review statuses.
func ValidStatuses() []string {
	return []string{
		StatusPending,
		StatusInReview,
		StatusApproved,
		StatusRejected,
		StatusEscalated,
		StatusRequiresRevision,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidPriorities returns all valid review priorities.
func ValidPriorities() []string {
	return []string{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValidPriority checks if a priority string is valid.
func IsValidPriority(priority string) bool {
	for _, p := range ValidPriorities() {
		if p == priority {
			return true
		}
	}
	return false
}

// ValidDomains returns all valid knowledge domains.
func ValidDomains() []string {
	return []string{
		DomainSpiritual,
		DomainScientific,
		DomainHistorical,
		DomainPhilosophical,
		DomainCultural,
		DomainGeneral,
	}
}

// IsValidDomain checks if a knowledge domain string is valid.
func IsValidDomain(domain string) bool {
	for _, d := range ValidDomains() {
		if d == domain {
			return true
		}
	}
	return false
}

// ValidContentTypes returns all valid content types.
func ValidContentTypes() []string {
	return []string{ContentTypeQuote, ContentTypeBiography, ContentTypeTeaching, ContentTypeArticle}
}

// IsValidContentType checks if a content type string is valid.
func IsValidContentType(contentType string) bool {
	for _, ct := range ValidContentTypes() {
		if ct == contentType {
			return true
		}
	}
	return false
}

// SLADuration returns the review time budget for a priority tier. The due
// date is fixed at submission: created_at + SLADuration(priority).
func SLADuration(priority string) time.Duration {
	switch priority {
	case PriorityCritical:
		return 4 * time.Hour
	case PriorityHigh:
		return 24 * time.Hour
	case PriorityLow:
		return 168 * time.Hour
	default:
		// Medium is the default tier.
		return 72 * time.Hour
	}
}

// AllowedTransitions defines which review status transitions are valid.
// Approved and rejected are terminal. Escalated and requires_revision may
// re-enter the assignment cycle through pending.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		StatusPending:          {StatusInReview},
		StatusInReview:         {StatusApproved, StatusRejected, StatusEscalated, StatusRequiresRevision},
		StatusEscalated:        {StatusPending},
		StatusRequiresRevision: {StatusPending},
		StatusApproved:         {},
		StatusRejected:         {},
	}
}

// CanTransitionTo checks if the review can transition to the target status.
func (r *ReviewItem) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[r.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the review has reached a terminal status.
func (r *ReviewItem) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// IsOverdue reports whether a non-terminal review has passed its due date.
func (r *ReviewItem) IsOverdue(now time.Time) bool {
	return !r.IsTerminal() && now.After(r.DueDate)
}

// ReviewDuration returns the elapsed time between assignment and completion,
// or false when the review has not completed an assignment cycle.
func (r *ReviewItem) ReviewDuration() (time.Duration, bool) {
	if r.AssignedAt == nil || r.CompletedAt == nil {
		return 0, false
	}
	return r.CompletedAt.Sub(*r.AssignedAt), true
}
