package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ballotd/internal/domain"
)

type TallyRepository struct {
	db *gorm.DB
}

func NewTallyRepository(db *gorm.DB) *TallyRepository {
	return &TallyRepository{db: db}
}

func (r *TallyRepository) Get(ctx context.Context, electionID string) (*domain.Tally, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model StoredTallyModel
	err := r.db.WithContext(ctx).Where("election_id = ?", electionID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tallyFromModel(model)
}

// Upsert replaces the whole stored tally for an election. Used by the
// scheduler's final tally and by reconciliation recovery.
func (r *TallyRepository) Upsert(ctx context.Context, tally domain.Tally) error {
	if r.db == nil {
		return errDBUnavailable
	}
	talliesJSON, err := json.Marshal(tally.Tallies)
	if err != nil {
		return fmt.Errorf("encode tallies: %w", err)
	}
	model := StoredTallyModel{
		ElectionID:  tally.ElectionID,
		TallyID:     tally.TallyID,
		TalliesJSON: talliesJSON,
		TotalVotes:  tally.Total(),
		IsFinal:     tally.IsFinal,
		UpdatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tally_id", "tallies", "total_votes", "is_final", "updated_at"}),
	}).Create(&model).Error
}

// Increment bumps one candidate's stored count under a row lock.
// Called once per mirrored vote.
func (r *TallyRepository) Increment(ctx context.Context, electionID, candidateID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"INSERT INTO stored_tallies (election_id, tallies, total_votes, is_final, updated_at) VALUES (?, '{}'::jsonb, 0, FALSE, NOW()) ON CONFLICT (election_id) DO NOTHING",
			electionID,
		).Error; err != nil {
			return err
		}

		var model StoredTallyModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("election_id = ?", electionID).
			Take(&model).Error; err != nil {
			return err
		}

		tallies := map[string]int{}
		if len(model.TalliesJSON) > 0 {
			if err := json.Unmarshal(model.TalliesJSON, &tallies); err != nil {
				return fmt.Errorf("decode stored tallies: %w", err)
			}
		}
		tallies[candidateID]++

		talliesJSON, err := json.Marshal(tallies)
		if err != nil {
			return fmt.Errorf("encode stored tallies: %w", err)
		}
		return tx.Model(&StoredTallyModel{}).
			Where("election_id = ?", electionID).
			Updates(map[string]any{
				"tallies":     talliesJSON,
				"total_votes": model.TotalVotes + 1,
				"updated_at":  time.Now().UTC(),
			}).Error
	})
}

func tallyFromModel(model StoredTallyModel) (*domain.Tally, error) {
	tallies := map[string]int{}
	if len(model.TalliesJSON) > 0 {
		if err := json.Unmarshal(model.TalliesJSON, &tallies); err != nil {
			return nil, fmt.Errorf("decode stored tallies: %w", err)
		}
	}
	return &domain.Tally{
		TallyID:    model.TallyID,
		ElectionID: model.ElectionID,
		Tallies:    tallies,
		TotalVotes: model.TotalVotes,
		IsFinal:    model.IsFinal,
		ComputedAt: model.UpdatedAt.UTC(),
	}, nil
}
