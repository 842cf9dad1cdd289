package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotd/internal/domain"
)

func TestReconcileReportsPerCandidateAndTotalDiffs(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.counts["e1"] = map[string]int{"A": 5, "B": 3}
	tallies := newMemTallyStore()
	tallies.Upsert(context.Background(), domain.Tally{
		ElectionID: "e1",
		Tallies:    map[string]int{"A": 5, "B": 2},
	})

	audit := &TallyAudit{Ledger: ledger, Tallies: tallies, Now: fixedClock(noon)}
	result, err := audit.Reconcile(context.Background(), "e1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Tally != nil {
		t.Fatal("expected a discrepancy, not a matched tally")
	}
	d := result.Discrepancy
	if d == nil {
		t.Fatal("expected discrepancy payload")
	}
	if len(d.Candidates) != 1 {
		t.Fatalf("expected exactly one candidate diff, got %+v", d.Candidates)
	}
	diff := d.Candidates[0]
	if diff.CandidateID != "B" || diff.Calculated != 3 || diff.Stored != 2 {
		t.Fatalf("unexpected diff %+v", diff)
	}
	if d.TotalCalc != 8 || d.TotalStored != 7 {
		t.Fatalf("unexpected totals calc=%d stored=%d", d.TotalCalc, d.TotalStored)
	}
	// A total mismatch always implies at least one candidate mismatch.
	if d.TotalCalc != d.TotalStored && len(d.Candidates) == 0 {
		t.Fatal("total-only discrepancy indicates a computation bug")
	}
}

func TestReconcileMatchReturnsAuthoritativeTally(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.counts["e1"] = map[string]int{"A": 4, "B": 6}
	tallies := newMemTallyStore()
	tallies.Upsert(context.Background(), domain.Tally{
		ElectionID: "e1",
		Tallies:    map[string]int{"A": 4, "B": 6},
	})

	audit := &TallyAudit{Ledger: ledger, Tallies: tallies, Now: fixedClock(noon)}
	result, err := audit.Reconcile(context.Background(), "e1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Discrepancy != nil {
		t.Fatalf("unexpected discrepancy %+v", result.Discrepancy)
	}
	if result.Tally == nil || result.Tally.TotalVotes != 10 {
		t.Fatalf("unexpected matched tally %+v", result.Tally)
	}
}

func TestReconcileTreatsMissingStoredTallyAsZero(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.counts["e1"] = map[string]int{"A": 2}

	audit := &TallyAudit{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}
	result, err := audit.Reconcile(context.Background(), "e1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	d := result.Discrepancy
	if d == nil || len(d.Candidates) != 1 {
		t.Fatalf("expected one diff against zero, got %+v", result)
	}
	if d.Candidates[0].Calculated != 2 || d.Candidates[0].Stored != 0 {
		t.Fatalf("unexpected diff %+v", d.Candidates[0])
	}
}

func TestReconcileCandidateOnlyInStoredSide(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.counts["e1"] = map[string]int{"A": 3}
	tallies := newMemTallyStore()
	tallies.Upsert(context.Background(), domain.Tally{
		ElectionID: "e1",
		Tallies:    map[string]int{"A": 3, "GHOST": 1},
	})

	audit := &TallyAudit{Ledger: ledger, Tallies: tallies, Now: fixedClock(noon)}
	result, err := audit.Reconcile(context.Background(), "e1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	d := result.Discrepancy
	if d == nil || len(d.Candidates) != 1 {
		t.Fatalf("expected ghost candidate diff, got %+v", result)
	}
	if d.Candidates[0].CandidateID != "GHOST" || d.Candidates[0].Calculated != 0 || d.Candidates[0].Stored != 1 {
		t.Fatalf("unexpected diff %+v", d.Candidates[0])
	}
}

func TestReconcileComputeFailureIsHardError(t *testing.T) {
	ledger := newFakeLedger(election("e1", domain.ElectionEnded, noon.Add(-2*time.Hour), noon.Add(-time.Hour)))
	ledger.tallyErr = errors.New("peer unreachable")

	audit := &TallyAudit{Ledger: ledger, Tallies: newMemTallyStore(), Now: fixedClock(noon)}
	_, err := audit.Reconcile(context.Background(), "e1")
	if !errors.Is(err, domain.ErrTallyComputation) {
		t.Fatalf("expected ErrTallyComputation, got %v", err)
	}
}
