package policy

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ballotd/internal/domain"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join("..", "..", "..", "policy", "eligibility_v0")
	engine, err := NewEngineFromPath(context.Background(), path)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func baseInput() domain.EligibilityInput {
	return domain.EligibilityInput{
		Voter: domain.Voter{
			VoterID:     "voter-1",
			Governorate: "Cairo",
			Age:         30,
		},
		Election: domain.Election{
			ElectionID:           "e1",
			Name:                 "Council",
			Status:               domain.ElectionLive,
			StartTime:            time.Unix(0, 0).UTC(),
			EndTime:              time.Unix(0, 0).UTC().Add(time.Hour),
			EligibleGovernorates: []string{"Cairo", "Giza"},
		},
	}
}

func TestEligibleVoterAllowed(t *testing.T) {
	engine := newEngine(t)

	first, err := engine.Evaluate(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !first.Allow || len(first.Deny) != 0 {
		t.Fatalf("expected allow, got %+v", first)
	}

	second, err := engine.Evaluate(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("evaluate again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected deterministic evaluation")
	}
}

func TestPolicyDenies(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		mutate func(input *domain.EligibilityInput)
		want   string
	}{
		{
			name: "election not live",
			mutate: func(input *domain.EligibilityInput) {
				input.Election.Status = domain.ElectionEnded
			},
			want: "ELECTION_NOT_LIVE",
		},
		{
			name: "governorate not eligible",
			mutate: func(input *domain.EligibilityInput) {
				input.Voter.Governorate = "Aswan"
			},
			want: "GOVERNORATE_NOT_ELIGIBLE",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(&input)
			out, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Allow {
				t.Fatal("expected deny")
			}
			found := false
			for _, deny := range out.Deny {
				if deny.Code == tt.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected deny code %s, got %+v", tt.want, out.Deny)
			}
		})
	}
}

func TestUnrestrictedElectionAdmitsAnyGovernorate(t *testing.T) {
	engine := newEngine(t)

	input := baseInput()
	input.Election.EligibleGovernorates = nil
	input.Voter.Governorate = "Aswan"

	out, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Allow {
		t.Fatalf("expected allow for unrestricted election, got %+v", out)
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package ballotd.eligibility
result := {"allow": true, "deny": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	_, err := NewEngineFromPath(context.Background(), dir)
	if err == nil {
		t.Fatal("expected builtin to be rejected")
	}
}
