package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ballotd/internal/correlate"
	"ballotd/internal/domain"

	"github.com/google/uuid"
)

const DefaultSigningTimeout = 30 * time.Second

// RemoteSigner produces a signature over a digest using a private key
// that lives only on the user's remote device. The calling request
// handler suspends until the device answers or the timeout fires;
// nothing else in the process blocks. No retries: retry policy belongs
// to the caller.
type RemoteSigner struct {
	Devices  DeviceChannel
	Registry *correlate.Registry
	Timeout  time.Duration
	Logger   *slog.Logger
}

func (s *RemoteSigner) Sign(ctx context.Context, userID string, digest []byte) ([]byte, error) {
	if !s.Devices.IsConnected(userID) {
		// Fail immediately rather than queue behind a connection that
		// may never arrive.
		return nil, domain.ErrNoDeviceConnected
	}

	requestID := uuid.NewString()
	req := domain.SigningRequest{
		RequestID:       requestID,
		UserID:          userID,
		Digest:          digest,
		ResponseChannel: domain.ResponseChannel(requestID),
		CreatedAt:       time.Now().UTC(),
	}

	// Handler first, broadcast second: a device answering instantly
	// must still find a registered handler.
	pending, err := s.Registry.Register(requestID)
	if err != nil {
		return nil, err
	}

	if err := s.Devices.SendToUser(ctx, userID, req); err != nil {
		s.Registry.Resolve(requestID, domain.SigningResponse{RequestID: requestID})
		pending.Await(ctx, time.Millisecond)
		return nil, fmt.Errorf("send signing request: %w", err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSigningTimeout
	}
	resp, err := pending.Await(ctx, timeout)
	if err != nil {
		if errors.Is(err, domain.ErrSigningTimeout) {
			s.logger().Warn("signing request timed out",
				"request_id", requestID,
				"user_id", userID,
			)
		}
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("device refused to sign: %s", resp.Error)
	}
	if len(resp.Signature) == 0 {
		return nil, errors.New("empty signature in response")
	}
	return resp.Signature, nil
}

// HandleResponse routes a device's answer to the awaiting caller.
// Late or duplicate responses are logged and dropped.
func (s *RemoteSigner) HandleResponse(resp domain.SigningResponse) {
	if !s.Registry.Resolve(resp.RequestID, resp) {
		s.logger().Debug("discarding response with no registered handler",
			"request_id", resp.RequestID,
			"user_id", resp.UserID,
		)
	}
}

// SignerFor adapts the gateway to a per-user signing function, the
// shape the ledger client expects for transaction signing.
func (s *RemoteSigner) SignerFor(userID string) func(digest []byte) ([]byte, error) {
	return func(digest []byte) ([]byte, error) {
		return s.Sign(context.Background(), userID, digest)
	}
}

func (s *RemoteSigner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
