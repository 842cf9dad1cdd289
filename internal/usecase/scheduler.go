package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ballotd/internal/domain"

	"github.com/google/uuid"
)

const DefaultSchedulerInterval = time.Minute

// LifecycleScheduler advances elections through their time-driven
// lifecycle: scheduled -> live at start_time, live -> ended at
// end_time. Ended -> published never happens automatically; Publish is
// the operator-triggered path. Runs are serialized: a single goroutine
// ticks, so a slow run delays the next one instead of overlapping it.
type LifecycleScheduler struct {
	Ledger   LedgerRepository
	Tallies  TallyStore
	Interval time.Duration
	Logger   *slog.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// Start runs one sweep immediately, then on every tick until Stop.
func (s *LifecycleScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return // already running
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSchedulerInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.logger().Info("election scheduler starting", "interval", interval.String())

	go func(stop, done chan struct{}) {
		defer close(done)
		if err := s.RunOnce(ctx); err != nil {
			s.logger().Error("initial election sweep failed", "error", err.Error())
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.logger().Error("election sweep failed", "error", err.Error())
				}
			}
		}
	}(s.stop, s.done)
}

// Stop halts the ticker and waits for an in-flight run to finish.
func (s *LifecycleScheduler) Stop() {
	s.mu.Lock()
	stop, done, cancel := s.stop, s.done, s.cancel
	s.stop, s.done, s.cancel = nil, nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	cancel()
	<-done
	s.logger().Info("election scheduler stopped")
}

// RunOnce performs a single sweep over all elections. A failure on one
// election never aborts the rest, and the sweep only returns an error
// when the election list itself could not be read.
func (s *LifecycleScheduler) RunOnce(ctx context.Context) error {
	elections, err := s.Ledger.ListElections(ctx)
	if err != nil {
		return fmt.Errorf("list elections: %w", err)
	}
	now := s.now()
	for _, election := range elections {
		if err := s.processElection(ctx, election, now); err != nil {
			s.logger().Error("election processing failed",
				"election_id", election.ElectionID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (s *LifecycleScheduler) processElection(ctx context.Context, election domain.Election, now time.Time) error {
	switch {
	case election.Status == domain.ElectionScheduled && !now.Before(election.StartTime):
		s.logger().Info("activating election",
			"election_id", election.ElectionID,
			"name", election.Name,
		)
		return s.Ledger.UpdateElectionStatus(ctx, election.ElectionID, domain.ElectionLive)

	case election.Status == domain.ElectionLive && !now.Before(election.EndTime):
		s.logger().Info("ending election",
			"election_id", election.ElectionID,
			"name", election.Name,
		)
		if err := s.Ledger.UpdateElectionStatus(ctx, election.ElectionID, domain.ElectionEnded); err != nil {
			return err
		}
		// The status transition stands even if the tally fails; the
		// audit path recomputes on demand.
		if err := s.finalizeTally(ctx, election.ElectionID); err != nil {
			s.logger().Error("final tally computation failed",
				"election_id", election.ElectionID,
				"error", err.Error(),
			)
		}
		return nil
	}
	// Re-checking an already-transitioned election is a no-op.
	return nil
}

func (s *LifecycleScheduler) finalizeTally(ctx context.Context, electionID string) error {
	tally, err := s.Ledger.ComputeTally(ctx, uuid.NewString(), electionID)
	if err != nil {
		return fmt.Errorf("compute tally: %w", err)
	}
	final := domain.Tally{
		TallyID:    tally.TallyID,
		ElectionID: electionID,
		Tallies:    tally.Tallies,
		TotalVotes: tally.Total(),
		IsFinal:    true,
		ComputedAt: s.now(),
	}
	if err := s.Tallies.Upsert(ctx, final); err != nil {
		return fmt.Errorf("store final tally: %w", err)
	}
	s.logger().Info("final tally stored",
		"election_id", electionID,
		"total_votes", final.TotalVotes,
	)
	return nil
}

// Publish moves an ended election to published. Only operators call
// this; no automatic path produces the published status.
func (s *LifecycleScheduler) Publish(ctx context.Context, electionID string) error {
	election, err := s.Ledger.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	if election.Status != domain.ElectionEnded {
		return fmt.Errorf("%w: cannot publish election in status %q", domain.ErrInvalidStateTransition, election.Status)
	}
	if err := s.Ledger.UpdateElectionStatus(ctx, electionID, domain.ElectionPublished); err != nil {
		return err
	}
	s.logger().Info("election results published", "election_id", electionID)
	return nil
}

func (s *LifecycleScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *LifecycleScheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
