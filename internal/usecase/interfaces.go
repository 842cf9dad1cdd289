package usecase

import (
	"context"
	"time"

	"ballotd/internal/domain"
)

// LedgerRepository is the client-side façade over the voting contract.
// Evaluate-style calls are read-only with short deadlines; the rest
// submit state-changing transactions and block until commit.
type LedgerRepository interface {
	GetElection(ctx context.Context, electionID string) (*domain.Election, error)
	ListElections(ctx context.Context) ([]domain.Election, error)
	CreateElection(ctx context.Context, election domain.Election) error
	UpdateElectionStatus(ctx context.Context, electionID string, status domain.ElectionStatus) error
	ComputeTally(ctx context.Context, tallyID, electionID string) (*domain.Tally, error)
	CastVote(ctx context.Context, voteID, electionID, candidateID string) (receipt string, err error)
	GetVote(ctx context.Context, voteID string) (*domain.Vote, error)
	ClearElections(ctx context.Context) error
}

type VoteStore interface {
	Insert(ctx context.Context, vote domain.Vote) error
	GetByID(ctx context.Context, voteID string) (*domain.Vote, error)
	ListByElection(ctx context.Context, electionID string) ([]domain.Vote, error)
	ListByVoter(ctx context.Context, voterID string) ([]domain.Vote, error)
}

type TallyStore interface {
	Get(ctx context.Context, electionID string) (*domain.Tally, error)
	Upsert(ctx context.Context, tally domain.Tally) error
	Increment(ctx context.Context, electionID, candidateID string) error
}

type VoterStore interface {
	GetByID(ctx context.Context, voterID string) (*domain.Voter, error)
	Upsert(ctx context.Context, voter domain.Voter) error
}

type FeedbackStore interface {
	Insert(ctx context.Context, fb domain.Feedback) error
	GetByReceipt(ctx context.Context, receipt string) (*domain.Feedback, error)
}

type AuditStore interface {
	Insert(ctx context.Context, event domain.AuditEvent) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
}

// LedgerEventStream delivers chaincode events from the peer. The
// channel closes when the underlying stream ends; callers reopen it to
// resume from the last checkpoint.
type LedgerEventStream interface {
	Events(ctx context.Context) (<-chan domain.LedgerEvent, error)
}

type AnalyticsStore interface {
	Upsert(ctx context.Context, snap domain.AnalyticsSnapshot) error
}

type ElectionMetaStore interface {
	Upsert(ctx context.Context, meta domain.ElectionMeta) error
	GetByID(ctx context.Context, electionID string) (*domain.ElectionMeta, error)
	DeleteAll(ctx context.Context) error
}

// SnapshotCache is the TTL-bound memoization layer in front of
// analytics recomputation.
type SnapshotCache interface {
	Get(ctx context.Context, electionID string) (*domain.AnalyticsSnapshot, bool, error)
	Put(ctx context.Context, electionID string, snap domain.AnalyticsSnapshot, ttl time.Duration) error
	Evict(ctx context.Context, electionID string)
}

// DeviceChannel is the real-time channel to remote signing devices.
type DeviceChannel interface {
	IsConnected(userID string) bool
	SendToUser(ctx context.Context, userID string, req domain.SigningRequest) error
}

// EligibilityPolicy decides whether a voter may cast a ballot in an
// election.
type EligibilityPolicy interface {
	Evaluate(ctx context.Context, input domain.EligibilityInput) (domain.PolicyResult, error)
}
