package domain

import "time"

// Confidence levels an expert can attach to their recommendation.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ExpertFeedback is the structured evaluation an expert submits when
// completing a review. Dimension scores use a 0-100 scale. Recommendation is
// the review status the feedback drives the item into (approved, rejected,
// escalated, or requires_revision).
type ExpertFeedback struct {
	ID                   string    `json:"id"`
	ReviewID             string    `json:"review_id"`
	ExpertID             string    `json:"expert_id"`
	AccuracyScore        float64   `json:"accuracy_score"`
	AuthenticityScore    float64   `json:"authenticity_score"`
	AppropriatenessScore float64   `json:"appropriateness_score"`
	Comments             string    `json:"comments,omitempty"`
	Suggestions          []string  `json:"suggestions,omitempty"`
	Flags                []string  `json:"flags,omitempty"`
	Recommendation       string    `json:"recommendation"`
	Confidence           string    `json:"confidence"`
	TimeSpentMinutes     int       `json:"time_spent_minutes"`
	CreatedAt            time.Time `json:"created_at"`
}

// Content flag constants for feedback.
const (
	FlagFactualError        = "factual_error"
	FlagMisattribution      = "misattribution"
	FlagToneMismatch        = "tone_mismatch"
	FlagCulturalInsensitive = "culturally_insensitive"
	FlagNeedsCitation       = "needs_citation"
)

// ValidRecommendations returns the review statuses a feedback may recommend.
func ValidRecommendations() []string {
	return []string{StatusApproved, StatusRejected, StatusEscalated, StatusRequiresRevision}
}

// IsValidRecommendation checks if a recommendation names an allowed outcome status.
func IsValidRecommendation(recommendation string) bool {
	for _, r := range ValidRecommendations() {
		if r == recommendation {
			return true
		}
	}
	return false
}

// ValidConfidenceLevels returns all valid confidence levels.
func ValidConfidenceLevels() []string {
	return []string{ConfidenceLow, ConfidenceMedium, ConfidenceHigh}
}

// IsValidConfidence checks if a confidence level string is valid.
func IsValidConfidence(confidence string) bool {
	for _, c := range ValidConfidenceLevels() {
		if c == confidence {
			return true
		}
	}
	return false
}

// ValidFlags returns all valid content flags.
func ValidFlags() []string {
	return []string{
		FlagFactualError,
		FlagMisattribution,
		FlagToneMismatch,
		FlagCulturalInsensitive,
		FlagNeedsCitation,
	}
}

// IsValidFlag checks if a content flag string is valid.
func IsValidFlag(flag string) bool {
	for _, f := range ValidFlags() {
		if f == flag {
			return true
		}
	}
	return false
}

// OverallScore returns the unweighted mean of the three dimension scores.
func (f *ExpertFeedback) OverallScore() float64 {
	return (f.AccuracyScore + f.AuthenticityScore + f.AppropriatenessScore) / 3
}
