package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ballotd/internal/domain"
)

const DefaultAnalyticsTTL = 5 * time.Minute

// AnalyticsService computes per-election analytics by joining ledger
// election data with off-chain votes, voter demographics and feedback.
// Results are memoized with a TTL and persisted for later inspection.
// Two concurrent misses may both recompute; the recomputation is
// idempotent and the last durable upsert wins.
type AnalyticsService struct {
	Ledger    LedgerRepository
	Votes     VoteStore
	Voters    VoterStore
	Feedback  FeedbackStore
	Snapshots AnalyticsStore
	Cache     SnapshotCache
	TTL       time.Duration
	Logger    *slog.Logger

	Now func() time.Time
}

func (s *AnalyticsService) GetAnalytics(ctx context.Context, electionID string, forceRefresh bool) (*domain.AnalyticsSnapshot, error) {
	if s.Cache != nil {
		if forceRefresh {
			s.Cache.Evict(ctx, electionID)
		} else if snap, ok, err := s.Cache.Get(ctx, electionID); err == nil && ok {
			s.logger().Debug("analytics cache hit", "election_id", electionID)
			return snap, nil
		}
	}

	snap, err := s.compute(ctx, electionID)
	if err != nil {
		// Never cache a partial or erroneous result.
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheRecomputation, err)
	}

	if s.Snapshots != nil {
		if err := s.Snapshots.Upsert(ctx, *snap); err != nil {
			s.logger().Error("persisting analytics snapshot failed",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
	}
	if s.Cache != nil {
		ttl := s.TTL
		if ttl <= 0 {
			ttl = DefaultAnalyticsTTL
		}
		if err := s.Cache.Put(ctx, electionID, *snap, ttl); err != nil {
			s.logger().Error("caching analytics snapshot failed", "election_id", electionID, "error", err.Error())
		}
	}
	return snap, nil
}

func (s *AnalyticsService) compute(ctx context.Context, electionID string) (*domain.AnalyticsSnapshot, error) {
	election, err := s.Ledger.GetElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("get election: %w", err)
	}

	votes, err := s.Votes.ListByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	candidateCounts := make(map[string]int, len(election.Candidates))
	for _, c := range election.Candidates {
		candidateCounts[c.CandidateID] = 0
	}
	ageGroups := make(map[string]int, len(domain.AgeBuckets))
	for _, bucket := range domain.AgeBuckets {
		ageGroups[bucket] = 0
	}
	governorates := map[string]int{}
	var feedback domain.FeedbackBreakdown

	for _, vote := range votes {
		if _, known := candidateCounts[vote.CandidateID]; known {
			candidateCounts[vote.CandidateID]++
		}

		voter, err := s.Voters.GetByID(ctx, vote.VoterID)
		switch {
		case err == nil:
			ageGroups[domain.AgeBucket(voter.Age)]++
			if voter.Governorate != "" {
				governorates[voter.Governorate]++
			}
		case errors.Is(err, domain.ErrNotFound):
			// Vote without a voter record still counts; demographics
			// just omit it.
		default:
			return nil, fmt.Errorf("get voter %s: %w", vote.VoterID, err)
		}

		fb, err := s.Feedback.GetByReceipt(ctx, vote.Receipt)
		switch {
		case err == nil:
			feedback.Add(fb.Rating)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, fmt.Errorf("get feedback for receipt: %w", err)
		}
	}

	total := len(votes)
	candidateVotes := make([]domain.CandidateVotes, 0, len(election.Candidates))
	for _, c := range election.Candidates {
		n := candidateCounts[c.CandidateID]
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(n)/float64(total)*1000) / 10
		}
		candidateVotes = append(candidateVotes, domain.CandidateVotes{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			Votes:       n,
			Percentage:  pct,
		})
	}

	return &domain.AnalyticsSnapshot{
		ElectionID:     electionID,
		TotalVotes:     total,
		CandidateVotes: candidateVotes,
		AgeGroups:      ageGroups,
		Governorates:   governorates,
		Feedback:       feedback,
		ComputedAt:     s.now(),
	}, nil
}

func (s *AnalyticsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AnalyticsService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
