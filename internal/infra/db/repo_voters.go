package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ballotd/internal/domain"
)

type VoterRepository struct {
	db *gorm.DB
}

func NewVoterRepository(db *gorm.DB) *VoterRepository {
	return &VoterRepository{db: db}
}

func (r *VoterRepository) GetByID(ctx context.Context, voterID string) (*domain.Voter, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VoterModel
	err := r.db.WithContext(ctx).Where("voter_id = ?", voterID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Voter{
		VoterID:     model.VoterID,
		Governorate: model.Governorate,
		Age:         model.Age,
		CreatedAt:   model.CreatedAt.UTC(),
	}, nil
}

func (r *VoterRepository) Upsert(ctx context.Context, voter domain.Voter) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if voter.CreatedAt.IsZero() {
		voter.CreatedAt = time.Now().UTC()
	}
	model := VoterModel{
		VoterID:     voter.VoterID,
		Governorate: voter.Governorate,
		Age:         voter.Age,
		CreatedAt:   voter.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"governorate", "age"}),
	}).Create(&model).Error
}
