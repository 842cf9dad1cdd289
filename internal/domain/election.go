package domain

import "time"

type ElectionStatus string

const (
	ElectionScheduled ElectionStatus = "scheduled"
	ElectionLive      ElectionStatus = "live"
	ElectionEnded     ElectionStatus = "ended"
	ElectionPublished ElectionStatus = "published"
	ElectionCancelled ElectionStatus = "cancelled"
)

func (s ElectionStatus) Valid() bool {
	switch s {
	case ElectionScheduled, ElectionLive, ElectionEnded, ElectionPublished, ElectionCancelled:
		return true
	}
	return false
}

type Candidate struct {
	CandidateID  string `json:"candidate_id"`
	Name         string `json:"name"`
	Party        string `json:"party"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Election is the ledger's authoritative record. The off-chain store
// only ever holds a projection of it plus UI metadata the ledger does
// not carry.
type Election struct {
	ElectionID           string         `json:"election_id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	Candidates           []Candidate    `json:"candidates"`
	StartTime            time.Time      `json:"start_time"`
	EndTime              time.Time      `json:"end_time"`
	Status               ElectionStatus `json:"status"`
	EligibleGovernorates []string       `json:"eligible_governorates"`
	LastTallyTime        *time.Time     `json:"last_tally_time,omitempty"`

	// Filled from the off-chain metadata store on reads. Never
	// submitted to the ledger.
	FeaturedImage string `json:"featured_image,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
}

// ElectionMeta is the off-chain, UI-only side of an election.
type ElectionMeta struct {
	ElectionID    string `json:"election_id"`
	Description   string `json:"description"`
	FeaturedImage string `json:"featured_image,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
}
