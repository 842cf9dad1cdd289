package domain

// EligibilityInput is what the policy engine sees when deciding
// whether a voter may cast a ballot in an election.
type EligibilityInput struct {
	Voter    Voter    `json:"voter"`
	Election Election `json:"election"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
