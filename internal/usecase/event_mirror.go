package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ballotd/internal/domain"

	"github.com/google/uuid"
)

const DefaultEventRetryDelay = 5 * time.Second

// EventMirror consumes the contract's chaincode events and keeps the
// off-chain projection current even when a vote or status change came
// from another client of the same channel. Every event, known or not,
// lands in the audit log; vote_cast additionally mirrors the vote and
// bumps the stored tally unless the in-process cast path already did.
type EventMirror struct {
	Stream  LedgerEventStream
	Votes   VoteStore
	Tallies TallyStore
	Audit   AuditStore
	Logger  *slog.Logger

	// RetryDelay is the wait before reopening a failed or closed
	// event stream. Defaults to DefaultEventRetryDelay.
	RetryDelay time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// Start opens the event stream and consumes it until Stop, reopening
// after errors so a peer restart never permanently detaches the
// mirror.
func (m *EventMirror) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return // already running
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	m.logger().Info("chaincode event mirror starting")

	go func(stop, done chan struct{}) {
		defer close(done)
		for {
			if err := m.consume(ctx); err != nil {
				m.logger().Error("event stream failed", "error", err.Error())
			}
			select {
			case <-stop:
				return
			case <-time.After(m.retryDelay()):
			}
		}
	}(m.stop, m.done)
}

// Stop detaches from the stream and waits for the consumer goroutine.
func (m *EventMirror) Stop() {
	m.mu.Lock()
	stop, done, cancel := m.stop, m.done, m.cancel
	m.stop, m.done, m.cancel = nil, nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	cancel()
	<-done
	m.logger().Info("chaincode event mirror stopped")
}

// consume drains one stream session. Returns nil when the channel
// closes cleanly; the caller decides whether to reconnect.
func (m *EventMirror) consume(ctx context.Context) error {
	events, err := m.Stream.Events(ctx)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			// One bad event never stalls the stream.
			if err := m.HandleEvent(ctx, event); err != nil {
				m.logger().Error("chaincode event processing failed",
					"event_name", event.Name,
					"tx_id", event.TxID,
					"error", err.Error(),
				)
			}
		}
	}
}

// HandleEvent applies a single chaincode event to the off-chain store.
func (m *EventMirror) HandleEvent(ctx context.Context, event domain.LedgerEvent) error {
	var details map[string]any
	if err := json.Unmarshal(event.Payload, &details); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Name, err)
	}

	if domain.AuditEventType(event.Name) == domain.EventVoteCast {
		if err := m.mirrorVote(ctx, event.Payload); err != nil {
			return err
		}
	}

	audit := domain.AuditEvent{
		EventID:     uuid.NewString(),
		EventType:   domain.AuditEventType(event.Name),
		Details:     details,
		BlockNumber: event.BlockNumber,
		TxID:        event.TxID,
		CreatedAt:   m.now(),
	}
	if err := m.Audit.Insert(ctx, audit); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// mirrorVote inserts the vote and bumps the stored tally. Votes cast
// through this process are already mirrored by the cast path; those
// are detected by vote_id and skipped so the tally is not counted
// twice.
func (m *EventMirror) mirrorVote(ctx context.Context, payload []byte) error {
	var vote domain.Vote
	if err := json.Unmarshal(payload, &vote); err != nil {
		return fmt.Errorf("decode vote payload: %w", err)
	}
	if vote.VoteID == "" {
		return errors.New("vote_cast payload missing vote_id")
	}

	_, err := m.Votes.GetByID(ctx, vote.VoteID)
	if err == nil {
		return nil // already mirrored
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check mirrored vote %s: %w", vote.VoteID, err)
	}

	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = m.now()
	}
	if err := m.Votes.Insert(ctx, vote); err != nil {
		return fmt.Errorf("mirror vote %s: %w", vote.VoteID, err)
	}
	if err := m.Tallies.Increment(ctx, vote.ElectionID, vote.CandidateID); err != nil {
		return fmt.Errorf("increment tally for %s: %w", vote.ElectionID, err)
	}
	m.logger().Info("mirrored externally cast vote",
		"vote_id", vote.VoteID,
		"election_id", vote.ElectionID,
	)
	return nil
}

func (m *EventMirror) retryDelay() time.Duration {
	if m.RetryDelay > 0 {
		return m.RetryDelay
	}
	return DefaultEventRetryDelay
}

func (m *EventMirror) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *EventMirror) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
