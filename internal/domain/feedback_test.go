package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverallScore(t *testing.T) {
	tests := []struct {
		name     string
		feedback ExpertFeedback
		expected float64
	}{
		{"equal scores", ExpertFeedback{AccuracyScore: 80, AuthenticityScore: 80, AppropriatenessScore: 80}, 80},
		{"mixed scores", ExpertFeedback{AccuracyScore: 90, AuthenticityScore: 70, AppropriatenessScore: 50}, 70},
		{"fractional mean", ExpertFeedback{AccuracyScore: 100, AuthenticityScore: 90, AppropriatenessScore: 90}, 93.333333333},
		{"minimum scores", ExpertFeedback{AccuracyScore: 0, AuthenticityScore: 0, AppropriatenessScore: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.feedback.OverallScore(), 1e-6)
		})
	}
}

func TestIsValidRecommendation(t *testing.T) {
	for _, r := range ValidRecommendations() {
		assert.True(t, IsValidRecommendation(r))
	}
	assert.False(t, IsValidRecommendation(StatusPending))
	assert.False(t, IsValidRecommendation(StatusInReview))
	assert.False(t, IsValidRecommendation("approve"))
}

func TestIsValidConfidence(t *testing.T) {
	for _, c := range ValidConfidenceLevels() {
		assert.True(t, IsValidConfidence(c))
	}
	assert.False(t, IsValidConfidence("certain"))
}

func TestIsValidFlag(t *testing.T) {
	for _, f := range ValidFlags() {
		assert.True(t, IsValidFlag(f))
	}
	assert.False(t, IsValidFlag("spam"))
}
