package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ballotd/internal/domain"

	"github.com/google/uuid"
)

// TallyAudit recomputes the authoritative tally from the ledger and
// compares it to the incrementally maintained off-chain copy. A
// mismatch is a reportable outcome, not an error; only failure to
// compute either side is an error. The stored tally is never modified
// here.
type TallyAudit struct {
	Ledger  LedgerRepository
	Tallies TallyStore

	Now func() time.Time
}

// ReconcileResult carries exactly one of Tally (both sides agree) or
// Discrepancy.
type ReconcileResult struct {
	Tally       *domain.Tally
	Discrepancy *domain.TallyDiscrepancy
}

func (a *TallyAudit) Reconcile(ctx context.Context, electionID string) (*ReconcileResult, error) {
	calculated, err := a.Ledger.ComputeTally(ctx, uuid.NewString(), electionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTallyComputation, err)
	}

	stored, err := a.Tallies.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// No stored tally means every stored count is zero.
			stored = &domain.Tally{ElectionID: electionID, Tallies: map[string]int{}}
		} else {
			return nil, fmt.Errorf("%w: read stored tally: %v", domain.ErrTallyComputation, err)
		}
	}

	var diffs []domain.CandidateDiff
	for _, candidateID := range unionCandidates(calculated.Tallies, stored.Tallies) {
		calc := calculated.Tallies[candidateID]
		have := stored.Tallies[candidateID]
		if calc != have {
			diffs = append(diffs, domain.CandidateDiff{
				CandidateID: candidateID,
				Calculated:  calc,
				Stored:      have,
			})
		}
	}

	// Totals are compared independently of per-candidate diffs: a
	// total-only mismatch cannot happen when both are derived from the
	// same maps, so seeing one indicates a computation bug.
	totalCalc := calculated.Total()
	totalStored := stored.Total()

	if len(diffs) == 0 && totalCalc == totalStored {
		return &ReconcileResult{Tally: &domain.Tally{
			TallyID:    calculated.TallyID,
			ElectionID: electionID,
			Tallies:    calculated.Tallies,
			TotalVotes: totalCalc,
			IsFinal:    calculated.IsFinal,
			ComputedAt: a.now(),
		}}, nil
	}

	return &ReconcileResult{Discrepancy: &domain.TallyDiscrepancy{
		ElectionID:  electionID,
		Candidates:  diffs,
		TotalCalc:   totalCalc,
		TotalStored: totalStored,
		DetectedAt:  a.now(),
	}}, nil
}

func unionCandidates(a, b map[string]int) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		seen[id] = struct{}{}
	}
	for id := range b {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *TallyAudit) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
