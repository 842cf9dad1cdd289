package db

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type Store struct {
	DB *gorm.DB

	Votes     *VoteRepository
	Tallies   *TallyRepository
	Voters    *VoterRepository
	Feedback  *FeedbackRepository
	Meta      *ElectionMetaRepository
	Analytics *AnalyticsRepository
	Audit     *AuditEventRepository
}

// NewStore opens the off-chain store. An empty DSN yields a store in
// no-db mode: every repository call fails fast with errDBUnavailable,
// and the rest of the service (ledger reads, signing) keeps working.
func NewStore(dsn string, logger *slog.Logger) (*Store, error) {
	var gdb *gorm.DB
	if dsn == "" {
		if logger != nil {
			logger.Warn("POSTGRES_DSN not set; running without off-chain store")
		}
	} else {
		// TranslateError maps driver errors (pg 23505 and friends) to
		// gorm sentinels so handlers can branch on ErrDuplicatedKey.
		opened, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		gdb = opened
	}

	return &Store{
		DB:        gdb,
		Votes:     NewVoteRepository(gdb),
		Tallies:   NewTallyRepository(gdb),
		Voters:    NewVoterRepository(gdb),
		Feedback:  NewFeedbackRepository(gdb),
		Meta:      NewElectionMetaRepository(gdb),
		Analytics: NewAnalyticsRepository(gdb),
		Audit:     NewAuditEventRepository(gdb),
	}, nil
}
