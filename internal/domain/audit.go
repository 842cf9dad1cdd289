package domain

import "time"

// AuditEventType names the chaincode events the mirror recognizes.
// The contract emits them; unknown names are recorded as-is so a
// contract upgrade never silently drops history.
type AuditEventType string

const (
	EventVoteCast              AuditEventType = "vote_cast"
	EventElectionCreated       AuditEventType = "election_created"
	EventElectionUpdated       AuditEventType = "election_updated"
	EventElectionStatusChanged AuditEventType = "election_status_changed"
	EventTallyComputed         AuditEventType = "tally_computed"
)

// LedgerEvent is one chaincode event as delivered by the peer's event
// service, before any interpretation.
type LedgerEvent struct {
	Name        string
	Payload     []byte
	BlockNumber uint64
	TxID        string
}

// AuditEvent is the durable record of a chaincode event. Details holds
// the decoded payload; its shape depends on the event type.
type AuditEvent struct {
	EventID     string         `json:"event_id"`
	EventType   AuditEventType `json:"event_type"`
	Details     map[string]any `json:"details"`
	BlockNumber uint64         `json:"block_number"`
	TxID        string         `json:"tx_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditFilter narrows an audit-event listing. Zero values mean no
// constraint on that dimension.
type AuditFilter struct {
	EventType  AuditEventType
	ElectionID string
	VoterID    string
	Limit      int
}
