package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ballotd/internal/domain"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Insert(ctx context.Context, event domain.AuditEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	model := AuditEventModel{
		EventID:     event.EventID,
		EventType:   string(event.EventType),
		ElectionID:  detailString(event.Details, "election_id"),
		VoterID:     detailString(event.Details, "voter_id"),
		DetailsJSON: detailsJSON,
		BlockNumber: event.BlockNumber,
		TxID:        event.TxID,
		CreatedAt:   event.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// List returns events newest first.
func (r *AuditEventRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&AuditEventModel{})
	if filter.EventType != "" {
		q = q.Where("event_type = ?", string(filter.EventType))
	}
	if filter.ElectionID != "" {
		q = q.Where("election_id = ?", filter.ElectionID)
	}
	if filter.VoterID != "" {
		q = q.Where("voter_id = ?", filter.VoterID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var models []AuditEventModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		event, err := auditEventFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func auditEventFromModel(model AuditEventModel) (domain.AuditEvent, error) {
	details := map[string]any{}
	if len(model.DetailsJSON) > 0 {
		if err := json.Unmarshal(model.DetailsJSON, &details); err != nil {
			return domain.AuditEvent{}, fmt.Errorf("decode event details: %w", err)
		}
	}
	return domain.AuditEvent{
		EventID:     model.EventID,
		EventType:   domain.AuditEventType(model.EventType),
		Details:     details,
		BlockNumber: model.BlockNumber,
		TxID:        model.TxID,
		CreatedAt:   model.CreatedAt.UTC(),
	}, nil
}

func detailString(details map[string]any, key string) string {
	if s, ok := details[key].(string); ok {
		return s
	}
	return ""
}
