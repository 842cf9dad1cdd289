package domain

import "time"

var AgeBuckets = []string{"0-17", "18-24", "25-34", "35-44", "45-54", "55+"}

func AgeBucket(age int) string {
	switch {
	case age < 18:
		return "0-17"
	case age <= 24:
		return "18-24"
	case age <= 34:
		return "25-34"
	case age <= 44:
		return "35-44"
	case age <= 54:
		return "45-54"
	default:
		return "55+"
	}
}

type CandidateVotes struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

type FeedbackBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (b *FeedbackBreakdown) Add(rating int) {
	switch {
	case rating >= 4:
		b.Positive++
	case rating == 3:
		b.Neutral++
	default:
		b.Negative++
	}
}

// AnalyticsSnapshot is derived data: always reproducible from the
// ledger plus the off-chain voter and feedback records, never
// authoritative on its own.
type AnalyticsSnapshot struct {
	ElectionID     string            `json:"election_id"`
	TotalVotes     int               `json:"total_votes"`
	CandidateVotes []CandidateVotes  `json:"candidate_votes"`
	AgeGroups      map[string]int    `json:"age_groups"`
	Governorates   map[string]int    `json:"governorates"`
	Feedback       FeedbackBreakdown `json:"feedback"`
	ComputedAt     time.Time         `json:"computed_at"`
}
