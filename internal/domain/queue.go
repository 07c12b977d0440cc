package domain

// ReviewQueue is a point-in-time view of the workload for one knowledge
// domain.
type ReviewQueue struct {
	Domain           string  `json:"domain"`
	PendingCount     int     `json:"pending_count"`
	InReviewCount    int     `json:"in_review_count"`
	CompletedCount   int     `json:"completed_count"`
	OverdueCount     int     `json:"overdue_count"`
	AvailableExperts int     `json:"available_experts"`
	AvgReviewHours   float64 `json:"avg_review_hours"`
}

// ExpertPerformance is one expert's row in the analytics report.
type ExpertPerformance struct {
	ExpertID        string  `json:"expert_id"`
	Name            string  `json:"name"`
	QualityScore    float64 `json:"quality_score"`
	CurrentWorkload int     `json:"current_workload"`
	Utilization     float64 `json:"utilization"`
	Completed       int     `json:"completed"`
	AvgReviewHours  float64 `json:"avg_review_hours"`
}

// AnalyticsReport aggregates review throughput and quality across the
// whole engine or a single domain.
type AnalyticsReport struct {
	Domain            string               `json:"domain,omitempty"`
	TotalReviews      int                  `json:"total_reviews"`
	CompletedReviews  int                  `json:"completed_reviews"`
	ApprovalRate      float64              `json:"approval_rate"`
	AvgReviewHours    float64              `json:"avg_review_hours"`
	SLAComplianceRate float64              `json:"sla_compliance_rate"`
	ByStatus          map[string]int       `json:"by_status"`
	ByPriority        map[string]int       `json:"by_priority"`
	ByDomain          map[string]int       `json:"by_domain"`
	Experts           []*ExpertPerformance `json:"experts"`
}

// ExpertDashboard summarizes one expert's recent activity and current
// workload.
type ExpertDashboard struct {
	Expert           *Expert       `json:"expert"`
	ActiveReviews    []*ReviewItem `json:"active_reviews"`
	CompletedLast30d int           `json:"completed_last_30d"`
	AvgTurnaroundHrs float64       `json:"avg_turnaround_hours"`
	ApprovalRate     float64       `json:"approval_rate"`
	Utilization      float64       `json:"utilization"`
}
