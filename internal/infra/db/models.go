package db

import "time"

type VoteModel struct {
	VoteID      string    `gorm:"type:uuid;primaryKey"`
	VoterID     string    `gorm:"index;not null"`
	ElectionID  string    `gorm:"index;not null"`
	CandidateID string    `gorm:"not null"`
	Receipt     string    `gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (VoteModel) TableName() string { return "votes" }

// StoredTallyModel holds one row per election: the incrementally
// maintained candidate->count map the reconciliation path compares
// against the ledger.
type StoredTallyModel struct {
	ElectionID  string    `gorm:"primaryKey"`
	TallyID     string    `gorm:"type:uuid"`
	TalliesJSON []byte    `gorm:"column:tallies;type:jsonb;not null"`
	TotalVotes  int       `gorm:"not null"`
	IsFinal     bool      `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (StoredTallyModel) TableName() string { return "stored_tallies" }

type VoterModel struct {
	VoterID     string    `gorm:"primaryKey"`
	Governorate string    `gorm:"index;not null"`
	Age         int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (VoterModel) TableName() string { return "voters" }

type FeedbackModel struct {
	ID         int64  `gorm:"primaryKey"`
	VoterID    string `gorm:"index;not null"`
	ElectionID string `gorm:"index;not null"`
	Receipt    string `gorm:"uniqueIndex;not null"`
	Rating     int    `gorm:"not null"`
	Comments   string
	CreatedAt  time.Time `gorm:"not null"`
}

func (FeedbackModel) TableName() string { return "feedback" }

type ElectionMetaModel struct {
	ElectionID    string `gorm:"primaryKey"`
	Description   string
	FeaturedImage string
	CreatedBy     string
	CreatedAt     time.Time `gorm:"not null"`
}

func (ElectionMetaModel) TableName() string { return "election_meta" }

// AuditEventModel denormalizes election_id and voter_id out of the
// details payload so the activity and event listings can filter on
// indexed columns.
type AuditEventModel struct {
	EventID     string `gorm:"type:uuid;primaryKey"`
	EventType   string `gorm:"index;not null"`
	ElectionID  string `gorm:"index"`
	VoterID     string `gorm:"index"`
	DetailsJSON []byte `gorm:"column:details;type:jsonb;not null"`
	BlockNumber uint64 `gorm:"not null"`
	TxID        string
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }

type AnalyticsSnapshotModel struct {
	ElectionID   string    `gorm:"primaryKey"`
	SnapshotJSON []byte    `gorm:"column:snapshot;type:jsonb;not null"`
	ComputedAt   time.Time `gorm:"not null"`
}

func (AnalyticsSnapshotModel) TableName() string { return "analytics_snapshots" }
