package ledger

import (
	"context"
	"fmt"

	"github.com/hyperledger/fabric-gateway/pkg/client"

	"ballotd/internal/domain"
)

// EventStream delivers the voting contract's chaincode events. The
// checkpointer is shared across sessions, so a reopened stream resumes
// after the last delivered event instead of replaying the block.
type EventStream struct {
	network       *client.Network
	chaincodeName string
	checkpointer  *client.InMemoryCheckpointer
}

func NewEventStream(network *client.Network, chaincodeName string) *EventStream {
	return &EventStream{
		network:       network,
		chaincodeName: chaincodeName,
		checkpointer:  new(client.InMemoryCheckpointer),
	}
}

// Events opens one event session; the returned channel closes when the
// peer ends the stream or ctx is cancelled. An event is checkpointed
// only after the consumer has received it.
func (s *EventStream) Events(ctx context.Context) (<-chan domain.LedgerEvent, error) {
	events, err := s.network.ChaincodeEvents(ctx, s.chaincodeName, client.WithCheckpoint(s.checkpointer))
	if err != nil {
		return nil, fmt.Errorf("open chaincode event stream: %w", err)
	}

	out := make(chan domain.LedgerEvent)
	go func() {
		defer close(out)
		for event := range events {
			forwarded := domain.LedgerEvent{
				Name:        event.EventName,
				Payload:     event.Payload,
				BlockNumber: event.BlockNumber,
				TxID:        event.TransactionID,
			}
			select {
			case out <- forwarded:
				s.checkpointer.CheckpointChaincodeEvent(event)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
