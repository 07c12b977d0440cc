package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		expected bool
	}{
		{"pending to in_review", StatusPending, StatusInReview, true},
		{"pending to approved", StatusPending, StatusApproved, false},
		{"pending to rejected", StatusPending, StatusRejected, false},
		{"in_review to approved", StatusInReview, StatusApproved, true},
		{"in_review to rejected", StatusInReview, StatusRejected, true},
		{"in_review to escalated", StatusInReview, StatusEscalated, true},
		{"in_review to requires_revision", StatusInReview, StatusRequiresRevision, true},
		{"in_review to pending", StatusInReview, StatusPending, false},
		{"escalated to pending", StatusEscalated, StatusPending, true},
		{"escalated to approved", StatusEscalated, StatusApproved, false},
		{"requires_revision to pending", StatusRequiresRevision, StatusPending, true},
		{"requires_revision to in_review", StatusRequiresRevision, StatusInReview, false},
		{"approved is terminal", StatusApproved, StatusPending, false},
		{"approved to in_review", StatusApproved, StatusInReview, false},
		{"rejected is terminal", StatusRejected, StatusPending, false},
		{"unknown status", "bogus", StatusInReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ReviewItem{Status: tt.from}
			assert.Equal(t, tt.expected, r.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{StatusPending, false},
		{StatusInReview, false},
		{StatusEscalated, false},
		{StatusRequiresRevision, false},
		{StatusApproved, true},
		{StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r := &ReviewItem{Status: tt.status}
			assert.Equal(t, tt.expected, r.IsTerminal())
		})
	}
}

func TestSLADuration(t *testing.T) {
	tests := []struct {
		priority string
		expected time.Duration
	}{
		{PriorityCritical, 4 * time.Hour},
		{PriorityHigh, 24 * time.Hour},
		{PriorityMedium, 72 * time.Hour},
		{PriorityLow, 168 * time.Hour},
		{"unknown", 72 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			assert.Equal(t, tt.expected, SLADuration(tt.priority))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		status   string
		dueDate  time.Time
		expected bool
	}{
		{"pending past due", StatusPending, now.Add(-time.Hour), true},
		{"pending before due", StatusPending, now.Add(time.Hour), false},
		{"in_review past due", StatusInReview, now.Add(-time.Minute), true},
		{"escalated past due", StatusEscalated, now.Add(-time.Hour), true},
		{"approved past due is not overdue", StatusApproved, now.Add(-time.Hour), false},
		{"rejected past due is not overdue", StatusRejected, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ReviewItem{Status: tt.status, DueDate: tt.dueDate}
			assert.Equal(t, tt.expected, r.IsOverdue(now))
		})
	}
}

func TestReviewDuration(t *testing.T) {
	assigned := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := assigned.Add(6 * time.Hour)

	r := &ReviewItem{AssignedAt: &assigned, CompletedAt: &completed}
	d, ok := r.ReviewDuration()
	assert.True(t, ok)
	assert.Equal(t, 6*time.Hour, d)

	_, ok = (&ReviewItem{AssignedAt: &assigned}).ReviewDuration()
	assert.False(t, ok)

	_, ok = (&ReviewItem{}).ReviewDuration()
	assert.False(t, ok)
}

func TestIsValidDomain(t *testing.T) {
	for _, d := range ValidDomains() {
		assert.True(t, IsValidDomain(d))
	}
	assert.False(t, IsValidDomain("astrology"))
	assert.False(t, IsValidDomain(""))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses() {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus("archived"))
}

func TestIsValidPriority(t *testing.T) {
	for _, p := range ValidPriorities() {
		assert.True(t, IsValidPriority(p))
	}
	assert.False(t, IsValidPriority("urgent"))
}
