package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ballotd/internal/domain"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Insert stores one rating per receipt; the unique index rejects a
// second submission for the same vote.
func (r *FeedbackRepository) Insert(ctx context.Context, fb domain.Feedback) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", fb.Rating)
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	model := FeedbackModel{
		VoterID:    fb.VoterID,
		ElectionID: fb.ElectionID,
		Receipt:    fb.Receipt,
		Rating:     fb.Rating,
		Comments:   fb.Comments,
		CreatedAt:  fb.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("feedback already submitted for receipt %s: %w", fb.Receipt, gorm.ErrDuplicatedKey)
		}
		return err
	}
	return nil
}

func (r *FeedbackRepository) GetByReceipt(ctx context.Context, receipt string) (*domain.Feedback, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model FeedbackModel
	err := r.db.WithContext(ctx).Where("receipt = ?", receipt).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Feedback{
		VoterID:    model.VoterID,
		ElectionID: model.ElectionID,
		Receipt:    model.Receipt,
		Rating:     model.Rating,
		Comments:   model.Comments,
		CreatedAt:  model.CreatedAt.UTC(),
	}, nil
}
