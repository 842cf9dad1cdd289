package domain

import "time"

// Vote is written once to the ledger and mirrored off-chain after
// commit confirmation. Immutable after creation.
type Vote struct {
	VoteID      string    `json:"vote_id"`
	VoterID     string    `json:"voter_id"`
	ElectionID  string    `json:"election_id"`
	CandidateID string    `json:"candidate_id"`
	Receipt     string    `json:"receipt"`
	CreatedAt   time.Time `json:"created_at"`
}

// Voter holds the off-chain demographic fields analytics joins on.
type Voter struct {
	VoterID     string    `json:"voter_id"`
	Governorate string    `json:"governorate"`
	Age         int       `json:"age"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feedback is a post-vote rating keyed by the vote receipt.
type Feedback struct {
	VoterID    string    `json:"voter_id"`
	ElectionID string    `json:"election_id"`
	Receipt    string    `json:"receipt"`
	Rating     int       `json:"rating"` // 1-5
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
