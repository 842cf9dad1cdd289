package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ballotd/internal/domain"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) Insert(ctx context.Context, vote domain.Vote) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	model := VoteModel{
		VoteID:      vote.VoteID,
		VoterID:     vote.VoterID,
		ElectionID:  vote.ElectionID,
		CandidateID: vote.CandidateID,
		Receipt:     vote.Receipt,
		CreatedAt:   vote.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *VoteRepository) GetByID(ctx context.Context, voteID string) (*domain.Vote, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VoteModel
	err := r.db.WithContext(ctx).Where("vote_id = ?", voteID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	vote := voteFromModel(model)
	return &vote, nil
}

func (r *VoteRepository) ListByElection(ctx context.Context, electionID string) ([]domain.Vote, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VoteModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return votesFromModels(models), nil
}

func (r *VoteRepository) ListByVoter(ctx context.Context, voterID string) ([]domain.Vote, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VoteModel
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", voterID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return votesFromModels(models), nil
}

func voteFromModel(model VoteModel) domain.Vote {
	return domain.Vote{
		VoteID:      model.VoteID,
		VoterID:     model.VoterID,
		ElectionID:  model.ElectionID,
		CandidateID: model.CandidateID,
		Receipt:     model.Receipt,
		CreatedAt:   model.CreatedAt.UTC(),
	}
}

func votesFromModels(models []VoteModel) []domain.Vote {
	out := make([]domain.Vote, 0, len(models))
	for _, model := range models {
		out = append(out, voteFromModel(model))
	}
	return out
}
