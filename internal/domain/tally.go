package domain

import "time"

// Tally is a per-candidate vote count for one election. The ledger
// computes the authoritative instance; the off-chain store keeps an
// incrementally maintained copy that must agree with it.
type Tally struct {
	TallyID    string         `json:"tally_id,omitempty"`
	ElectionID string         `json:"election_id"`
	Tallies    map[string]int `json:"tallies"`
	TotalVotes int            `json:"total_votes"`
	IsFinal    bool           `json:"is_final"`
	ComputedAt time.Time      `json:"computed_at"`
}

func (t Tally) Total() int {
	sum := 0
	for _, n := range t.Tallies {
		sum += n
	}
	return sum
}

// CandidateDiff records a single candidate whose ledger-computed count
// disagrees with the stored count.
type CandidateDiff struct {
	CandidateID string `json:"candidate_id"`
	Calculated  int    `json:"calculated"`
	Stored      int    `json:"stored"`
}

// TallyDiscrepancy is a valid, reportable audit outcome, not an error.
type TallyDiscrepancy struct {
	ElectionID  string          `json:"election_id"`
	Candidates  []CandidateDiff `json:"candidates"`
	TotalCalc   int             `json:"total_calculated"`
	TotalStored int             `json:"total_stored"`
	DetectedAt  time.Time       `json:"detected_at"`
}
