package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"

	"ballotd/internal/domain"
)

// Contract is the slice of the gateway contract the repository needs.
// The production adapter wraps *client.Contract; per-call deadlines
// come from the connect options.
type Contract interface {
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
	Submit(ctx context.Context, name string, args ...string) ([]byte, error)
}

// GatewayContract adapts a fabric-gateway contract to Contract.
type GatewayContract struct {
	Contract *client.Contract
}

func (g *GatewayContract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	return g.Contract.EvaluateTransaction(name, args...)
}

func (g *GatewayContract) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	return g.Contract.SubmitTransaction(name, args...)
}

// Repository implements the ledger façade over the voting contract.
// Evaluate calls are read-only queries against a single peer; Submit
// calls endorse, submit and wait for commit.
type Repository struct {
	contract Contract
}

func NewRepository(contract Contract) *Repository {
	return &Repository{contract: contract}
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (*domain.Election, error) {
	payload, err := r.contract.Evaluate(ctx, "GetElection", electionID)
	if err != nil {
		return nil, mapContractError(err)
	}
	if len(payload) == 0 {
		return nil, domain.ErrNotFound
	}
	var election domain.Election
	if err := json.Unmarshal(payload, &election); err != nil {
		return nil, fmt.Errorf("decode election: %w", err)
	}
	return &election, nil
}

func (r *Repository) ListElections(ctx context.Context) ([]domain.Election, error) {
	payload, err := r.contract.Evaluate(ctx, "GetAllElections")
	if err != nil {
		return nil, mapContractError(err)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var elections []domain.Election
	if err := json.Unmarshal(payload, &elections); err != nil {
		return nil, fmt.Errorf("decode elections: %w", err)
	}
	return elections, nil
}

func (r *Repository) CreateElection(ctx context.Context, election domain.Election) error {
	input, err := json.Marshal(election)
	if err != nil {
		return fmt.Errorf("encode election: %w", err)
	}
	if _, err := r.contract.Submit(ctx, "CreateElection", string(input)); err != nil {
		return mapContractError(err)
	}
	return nil
}

func (r *Repository) UpdateElectionStatus(ctx context.Context, electionID string, status domain.ElectionStatus) error {
	if _, err := r.contract.Submit(ctx, "UpdateElectionStatus", electionID, string(status)); err != nil {
		return mapContractError(err)
	}
	return nil
}

// tallyRecord is the contract's tally wire shape.
type tallyRecord struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	ElectionID string         `json:"election_id"`
	Tallies    map[string]int `json:"tallies"`
	CreatedAt  string         `json:"created_at"`
	IsFinal    bool           `json:"is_final"`
}

func (r *Repository) ComputeTally(ctx context.Context, tallyID, electionID string) (*domain.Tally, error) {
	payload, err := r.contract.Submit(ctx, "ComputeVoteTally", tallyID, electionID)
	if err != nil {
		return nil, mapContractError(err)
	}
	var record tallyRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode tally: %w", err)
	}
	tally := &domain.Tally{
		TallyID:    record.ID,
		ElectionID: record.ElectionID,
		Tallies:    record.Tallies,
		IsFinal:    record.IsFinal,
	}
	if tally.Tallies == nil {
		tally.Tallies = map[string]int{}
	}
	tally.TotalVotes = tally.Total()
	if ts, err := time.Parse(time.RFC3339, record.CreatedAt); err == nil {
		tally.ComputedAt = ts
	}
	return tally, nil
}

func (r *Repository) CastVote(ctx context.Context, voteID, electionID, candidateID string) (string, error) {
	// The contract returns the receipt as a plain string, not JSON.
	payload, err := r.contract.Submit(ctx, "CastVote", voteID, electionID, candidateID)
	if err != nil {
		return "", mapContractError(err)
	}
	return string(payload), nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (*domain.Vote, error) {
	payload, err := r.contract.Evaluate(ctx, "GetVote", voteID)
	if err != nil {
		return nil, mapContractError(err)
	}
	if len(payload) == 0 {
		return nil, domain.ErrNotFound
	}
	var vote domain.Vote
	if err := json.Unmarshal(payload, &vote); err != nil {
		return nil, fmt.Errorf("decode vote: %w", err)
	}
	return &vote, nil
}

func (r *Repository) ClearElections(ctx context.Context) error {
	if _, err := r.contract.Submit(ctx, "ClearElections"); err != nil {
		return mapContractError(err)
	}
	return nil
}

// mapContractError folds contract "does not exist" failures into
// ErrNotFound; everything else surfaces as a ledger failure.
func mapContractError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found") {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
}
