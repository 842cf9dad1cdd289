package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ballotd/internal/domain"

	"github.com/google/uuid"
)

// CastVote submits a ballot to the ledger and, only after the ledger
// confirms commit, mirrors the vote off-chain and bumps the stored
// incremental tally. The mirror is a rebuildable projection; if this
// process dies between commit and mirror, the audit path reports the
// drift and the ledger remains correct.
type CastVote struct {
	Ledger  LedgerRepository
	Votes   VoteStore
	Tallies TallyStore
	Voters  VoterStore
	Policy  EligibilityPolicy
	Logger  *slog.Logger

	// UserLedger, when set, yields a ledger connection authenticated as
	// the voter so the submission carries the voter's own signature.
	// The release func closes the per-voter gateway. Reads still go
	// through Ledger.
	UserLedger func(voterID string) (LedgerRepository, func(), error)

	Now func() time.Time
}

type CastVoteRequest struct {
	VoterID     string
	ElectionID  string
	CandidateID string
}

type CastVoteResponse struct {
	VoteID  string
	Receipt string
}

func (uc *CastVote) Execute(ctx context.Context, req CastVoteRequest) (*CastVoteResponse, error) {
	election, err := uc.Ledger.GetElection(ctx, req.ElectionID)
	if err != nil {
		return nil, err
	}
	if election.Status != domain.ElectionLive {
		return nil, fmt.Errorf("%w: election %s is %q", domain.ErrElectionNotLive, req.ElectionID, election.Status)
	}

	voter, err := uc.Voters.GetByID(ctx, req.VoterID)
	if err != nil {
		return nil, err
	}

	if uc.Policy != nil {
		result, err := uc.Policy.Evaluate(ctx, domain.EligibilityInput{
			Voter:    *voter,
			Election: *election,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate eligibility: %w", err)
		}
		if !result.Allow {
			reason := "policy denied"
			if len(result.Deny) > 0 {
				reason = result.Deny[0].Message
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrNotEligible, reason)
		}
	}

	submitLedger := uc.Ledger
	if uc.UserLedger != nil {
		userLedger, release, err := uc.UserLedger(req.VoterID)
		if err != nil {
			return nil, fmt.Errorf("connect as voter %s: %w", req.VoterID, err)
		}
		defer release()
		submitLedger = userLedger
	}

	voteID := uuid.NewString()
	receipt, err := submitLedger.CastVote(ctx, voteID, req.ElectionID, req.CandidateID)
	if err != nil {
		return nil, err
	}

	// Commit is confirmed at this point; mirror failures degrade the
	// projection, never the ledger, and reconciliation surfaces them.
	vote := domain.Vote{
		VoteID:      voteID,
		VoterID:     req.VoterID,
		ElectionID:  req.ElectionID,
		CandidateID: req.CandidateID,
		Receipt:     receipt,
		CreatedAt:   uc.now(),
	}
	if err := uc.Votes.Insert(ctx, vote); err != nil {
		uc.logger().Error("mirroring vote off-chain failed",
			"vote_id", voteID,
			"election_id", req.ElectionID,
			"error", err.Error(),
		)
	} else if err := uc.Tallies.Increment(ctx, req.ElectionID, req.CandidateID); err != nil {
		uc.logger().Error("incrementing stored tally failed",
			"election_id", req.ElectionID,
			"candidate_id", req.CandidateID,
			"error", err.Error(),
		)
	}

	return &CastVoteResponse{VoteID: voteID, Receipt: receipt}, nil
}

func (uc *CastVote) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

func (uc *CastVote) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
