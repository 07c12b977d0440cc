package domain

import "time"

// Credential tier constants for expert profiles.
const (
	TierAcademic     = "academic"
	TierPractitioner = "practitioner"
	TierEnthusiast   = "enthusiast"
)

// Availability constants.
const (
	AvailabilityActive   = "active"
	AvailabilityInactive = "inactive"
	AvailabilityOnLeave  = "on_leave"
)

// Expert represents a registered human reviewer with domain qualifications
// and a bounded concurrent workload. QualityScore is on a 0-100 scale and
// drives assignment ranking.
type Expert struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Domains              []string   `json:"domains"`
	CredentialTier       string     `json:"credential_tier"`
	Specializations      []string   `json:"specializations,omitempty"`
	Languages            []string   `json:"languages,omitempty"`
	QualityScore         float64    `json:"quality_score"`
	MaxConcurrentReviews int        `json:"max_concurrent_reviews"`
	CurrentWorkload      int        `json:"current_workload"`
	Availability         string     `json:"availability"`
	TotalReviews         int        `json:"total_reviews"`
	CreatedAt            time.Time  `json:"created_at"`
	LastActiveAt         *time.Time `json:"last_active_at,omitempty"`
}

// ValidCredentialTiers returns all valid credential tiers.
func ValidCredentialTiers() []string {
	return []string{TierAcademic, TierPractitioner, TierEnthusiast}
}

// IsValidCredentialTier checks if a credential tier string is valid.
func IsValidCredentialTier(tier string) bool {
	for _, t := range ValidCredentialTiers() {
		if t == tier {
			return true
		}
	}
	return false
}

// ValidAvailabilities returns all valid availability states.
func ValidAvailabilities() []string {
	return []string{AvailabilityActive, AvailabilityInactive, AvailabilityOnLeave}
}

// IsValidAvailability checks if an availability string is valid.
func IsValidAvailability(availability string) bool {
	for _, a := range ValidAvailabilities() {
		if a == availability {
			return true
		}
	}
	return false
}

// IsQualified reports whether the expert holds the given knowledge domain.
func (e *Expert) IsQualified(domain string) bool {
	for _, d := range e.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// HasCapacity reports whether the expert can take on another review.
func (e *Expert) HasCapacity() bool {
	return e.CurrentWorkload < e.MaxConcurrentReviews
}

// IsAvailable reports whether the expert is accepting assignments.
func (e *Expert) IsAvailable() bool {
	return e.Availability == AvailabilityActive
}

// Utilization returns the workload as a fraction of capacity in [0, 1].
func (e *Expert) Utilization() float64 {
	if e.MaxConcurrentReviews == 0 {
		return 0
	}
	return float64(e.CurrentWorkload) / float64(e.MaxConcurrentReviews)
}
