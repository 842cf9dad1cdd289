package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ballotd/internal/domain"
)

type ElectionMetaRepository struct {
	db *gorm.DB
}

func NewElectionMetaRepository(db *gorm.DB) *ElectionMetaRepository {
	return &ElectionMetaRepository{db: db}
}

func (r *ElectionMetaRepository) Upsert(ctx context.Context, meta domain.ElectionMeta) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ElectionMetaModel{
		ElectionID:    meta.ElectionID,
		Description:   meta.Description,
		FeaturedImage: meta.FeaturedImage,
		CreatedBy:     meta.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "featured_image", "created_by"}),
	}).Create(&model).Error
}

func (r *ElectionMetaRepository) GetByID(ctx context.Context, electionID string) (*domain.ElectionMeta, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ElectionMetaModel
	err := r.db.WithContext(ctx).Where("election_id = ?", electionID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.ElectionMeta{
		ElectionID:    model.ElectionID,
		Description:   model.Description,
		FeaturedImage: model.FeaturedImage,
		CreatedBy:     model.CreatedBy,
	}, nil
}

func (r *ElectionMetaRepository) DeleteAll(ctx context.Context) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Exec("DELETE FROM election_meta").Error
}
