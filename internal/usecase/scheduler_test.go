package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotd/internal/domain"
)

var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func election(id string, status domain.ElectionStatus, start, end time.Time) *domain.Election {
	return &domain.Election{
		ElectionID: id,
		Name:       "Election " + id,
		Status:     status,
		StartTime:  start,
		EndTime:    end,
		Candidates: []domain.Candidate{{CandidateID: "cand-a"}, {CandidateID: "cand-b"}},
	}
}

func TestScheduledElectionGoesLiveAfterStart(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionScheduled, noon.Add(-time.Hour), noon.Add(time.Hour)))
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ledger.elections["e1"].Status; got != domain.ElectionLive {
		t.Fatalf("expected live, got %q", got)
	}
}

func TestScheduledElectionBeforeStartUntouched(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionScheduled, noon.Add(time.Hour), noon.Add(2*time.Hour)))
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ledger.elections["e1"].Status; got != domain.ElectionScheduled {
		t.Fatalf("expected scheduled, got %q", got)
	}
	if len(ledger.statusUpdates) != 0 {
		t.Fatalf("no transition should be submitted, got %v", ledger.statusUpdates)
	}
}

func TestLiveElectionEndsWithFinalTally(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionLive, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.counts["e1"] = map[string]int{"cand-a": 5, "cand-b": 3}
	tallies := newMemTallyStore()
	s := &LifecycleScheduler{Ledger: ledger, Tallies: tallies, Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ledger.elections["e1"].Status; got != domain.ElectionEnded {
		t.Fatalf("expected ended, got %q", got)
	}
	stored, err := tallies.Get(context.Background(), "e1")
	if err != nil {
		t.Fatalf("expected stored tally: %v", err)
	}
	if !stored.IsFinal {
		t.Fatal("final tally must be marked is_final")
	}
	if stored.TotalVotes != 8 || stored.Tallies["cand-a"] != 5 || stored.Tallies["cand-b"] != 3 {
		t.Fatalf("unexpected final tally %+v", stored)
	}
}

func TestRunOnceIsIdempotent(t *testing.T) {
	ledger := newFakeLedger(
		election("e1", domain.ElectionScheduled, noon.Add(-time.Hour), noon.Add(time.Hour)),
		election("e2", domain.ElectionLive, noon.Add(-3*time.Hour), noon.Add(-time.Hour)),
	)
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(ledger.statusUpdates)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(ledger.statusUpdates) != first {
		t.Fatalf("second run submitted duplicate transitions: %v", ledger.statusUpdates)
	}
	if ledger.elections["e1"].Status != domain.ElectionLive || ledger.elections["e2"].Status != domain.ElectionEnded {
		t.Fatalf("statuses drifted: e1=%q e2=%q", ledger.elections["e1"].Status, ledger.elections["e2"].Status)
	}
}

func TestOneFailingElectionDoesNotAbortRun(t *testing.T) {
	ledger := newFakeLedger(
		election("bad", domain.ElectionScheduled, noon.Add(-time.Hour), noon.Add(time.Hour)),
		election("good", domain.ElectionScheduled, noon.Add(-time.Hour), noon.Add(time.Hour)),
	)
	ledger.updateErr["bad"] = errors.New("endorsement failed")
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run should isolate per-election failures: %v", err)
	}
	if got := ledger.elections["good"].Status; got != domain.ElectionLive {
		t.Fatalf("healthy election should still transition, got %q", got)
	}
}

func TestTallyFailureLeavesElectionEnded(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionLive, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.tallyErr = errors.New("peer unreachable")
	tallies := newMemTallyStore()
	s := &LifecycleScheduler{Ledger: ledger, Tallies: tallies, Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// The transition is not rolled back; the tally is simply absent.
	if got := ledger.elections["e1"].Status; got != domain.ElectionEnded {
		t.Fatalf("expected ended, got %q", got)
	}
	if _, err := tallies.Get(context.Background(), "e1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("no tally should be stored, got err=%v", err)
	}
}

func TestPublishRequiresEndedStatus(t *testing.T) {
	ledger := newFakeLedger(
		election("ended", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)),
		election("live", domain.ElectionLive, noon.Add(-time.Hour), noon.Add(time.Hour)),
		election("published", domain.ElectionPublished, noon.Add(-3*time.Hour), noon.Add(-2*time.Hour)),
	)
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.Publish(context.Background(), "ended"); err != nil {
		t.Fatalf("publish ended: %v", err)
	}
	if got := ledger.elections["ended"].Status; got != domain.ElectionPublished {
		t.Fatalf("expected published, got %q", got)
	}

	for _, id := range []string{"live", "published"} {
		if err := s.Publish(context.Background(), id); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("publish %s: expected ErrInvalidStateTransition, got %v", id, err)
		}
	}
}

func TestSchedulerNeverPublishesAutomatically(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-3*time.Hour), noon.Add(-2*time.Hour)))
	s := &LifecycleScheduler{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ledger.elections["e1"].Status; got != domain.ElectionEnded {
		t.Fatalf("ended election must stay ended, got %q", got)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionScheduled, noon.Add(-time.Hour), noon.Add(time.Hour)))
	s := &LifecycleScheduler{
		Ledger:   ledger,
		Tallies:  newMemTallyStore(),
		Interval: 10 * time.Millisecond,
		Now:      fixedClock(noon),
	}

	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for {
		ledger.mu.Lock()
		status := ledger.elections["e1"].Status
		ledger.mu.Unlock()
		if status == domain.ElectionLive {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial run never processed the election")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	// Stop twice is a no-op, and Stop after Start leaves no goroutine
	// mutating the ledger.
	s.Stop()
}
