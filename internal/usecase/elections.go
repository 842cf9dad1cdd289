package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ballotd/internal/domain"

	"github.com/google/uuid"
)

// Elections covers creation and queries. The ledger holds the
// authoritative record; the off-chain store carries UI-only metadata
// merged into reads when present.
type Elections struct {
	Ledger LedgerRepository
	Meta   ElectionMetaStore
	Logger *slog.Logger
}

type CreateElectionRequest struct {
	Name                 string
	Description          string
	Candidates           []domain.Candidate
	StartTime            time.Time
	EndTime              time.Time
	EligibleGovernorates []string
	FeaturedImage        string
	CreatedBy            string
}

func (uc *Elections) Create(ctx context.Context, req CreateElectionRequest) (string, error) {
	if req.Name == "" || len(req.Candidates) == 0 {
		return "", errors.New("name and at least one candidate are required")
	}
	if !req.EndTime.After(req.StartTime) {
		return "", errors.New("end_time must be after start_time")
	}

	electionID := uuid.NewString()
	candidates := make([]domain.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		c.CandidateID = uuid.NewString()
		candidates[i] = c
	}

	election := domain.Election{
		ElectionID:           electionID,
		Name:                 req.Name,
		Description:          req.Description,
		Candidates:           candidates,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		Status:               domain.ElectionScheduled,
		EligibleGovernorates: req.EligibleGovernorates,
	}
	if err := uc.Ledger.CreateElection(ctx, election); err != nil {
		return "", err
	}

	if uc.Meta != nil {
		meta := domain.ElectionMeta{
			ElectionID:    electionID,
			Description:   req.Description,
			FeaturedImage: req.FeaturedImage,
			CreatedBy:     req.CreatedBy,
		}
		if err := uc.Meta.Upsert(ctx, meta); err != nil {
			uc.logger().Error("storing election metadata failed",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
	}
	return electionID, nil
}

func (uc *Elections) Get(ctx context.Context, electionID string) (*domain.Election, error) {
	election, err := uc.Ledger.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	uc.mergeMeta(ctx, election)
	return election, nil
}

func (uc *Elections) List(ctx context.Context) ([]domain.Election, error) {
	elections, err := uc.Ledger.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range elections {
		uc.mergeMeta(ctx, &elections[i])
	}
	return elections, nil
}

// Clear removes all elections from the ledger and drops the off-chain
// metadata. Administrative use only.
func (uc *Elections) Clear(ctx context.Context) error {
	if err := uc.Ledger.ClearElections(ctx); err != nil {
		return err
	}
	if uc.Meta != nil {
		if err := uc.Meta.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear election metadata: %w", err)
		}
	}
	return nil
}

func (uc *Elections) mergeMeta(ctx context.Context, election *domain.Election) {
	if uc.Meta == nil {
		return
	}
	meta, err := uc.Meta.GetByID(ctx, election.ElectionID)
	if err != nil {
		return // metadata is optional
	}
	if meta.Description != "" {
		election.Description = meta.Description
	}
	election.FeaturedImage = meta.FeaturedImage
	election.CreatedBy = meta.CreatedBy
}

func (uc *Elections) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
