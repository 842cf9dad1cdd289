package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ballotd/internal/domain"
)

// AnalyticsRepository persists the latest computed snapshot per
// election. The TTL cache in front of it carries the hot path; this
// table survives restarts and feeds dashboards that tolerate staleness.
type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Upsert(ctx context.Context, snap domain.AnalyticsSnapshot) error {
	if r.db == nil {
		return errDBUnavailable
	}
	snapshotJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	model := AnalyticsSnapshotModel{
		ElectionID:   snap.ElectionID,
		SnapshotJSON: snapshotJSON,
		ComputedAt:   snap.ComputedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot", "computed_at"}),
	}).Create(&model).Error
}

func (r *AnalyticsRepository) GetByElection(ctx context.Context, electionID string) (*domain.AnalyticsSnapshot, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AnalyticsSnapshotModel
	err := r.db.WithContext(ctx).Where("election_id = ?", electionID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var snap domain.AnalyticsSnapshot
	if err := json.Unmarshal(model.SnapshotJSON, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
