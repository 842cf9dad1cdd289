package domain

import "time"

// SigningRequest asks a remote device holding the user's private key
// to sign a digest. Ephemeral: destroyed on matching response or
// timeout.
type SigningRequest struct {
	RequestID       string    `json:"request_id"`
	UserID          string    `json:"user_id"`
	Digest          []byte    `json:"digest"`
	ResponseChannel string    `json:"response_channel"`
	CreatedAt       time.Time `json:"created_at"`
}

// SigningResponse carries the signature produced by a device. Error is
// set when the device declined or failed to sign.
type SigningResponse struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Signature []byte `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResponseChannel derives the channel name a device must answer on.
// Deterministic from the request id so a device needs no extra state.
func ResponseChannel(requestID string) string {
	return "signing-response:" + requestID
}
