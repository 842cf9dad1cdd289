package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotd/internal/correlate"
	"ballotd/internal/domain"
)

func newSigner(devices *fakeDevices, timeout time.Duration) *RemoteSigner {
	return &RemoteSigner{
		Devices:  devices,
		Registry: correlate.NewRegistry(),
		Timeout:  timeout,
	}
}

func TestSignFailsFastWithoutDevice(t *testing.T) {
	signer := newSigner(&fakeDevices{connected: map[string]bool{}}, time.Second)

	start := time.Now()
	_, err := signer.Sign(context.Background(), "user-1", []byte("digest"))
	if !errors.Is(err, domain.ErrNoDeviceConnected) {
		t.Fatalf("expected ErrNoDeviceConnected, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("no-device failure should not wait, took %v", elapsed)
	}
}

func TestSignDeliversDeviceSignature(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true}}
	signer := newSigner(devices, time.Second)
	devices.onSend = func(req domain.SigningRequest) {
		signer.HandleResponse(domain.SigningResponse{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			Signature: []byte("der-signature"),
		})
	}

	sig, err := signer.Sign(context.Background(), "user-1", []byte("digest"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if string(sig) != "der-signature" {
		t.Fatalf("unexpected signature %q", sig)
	}
	if len(devices.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(devices.sent))
	}
	if devices.sent[0].ResponseChannel != domain.ResponseChannel(devices.sent[0].RequestID) {
		t.Fatal("response channel must derive from the request id")
	}
}

func TestSignTimesOutWhenDeviceSilent(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true}}
	signer := newSigner(devices, 20*time.Millisecond)

	_, err := signer.Sign(context.Background(), "user-1", []byte("digest"))
	if !errors.Is(err, domain.ErrSigningTimeout) {
		t.Fatalf("expected ErrSigningTimeout, got %v", err)
	}
	if signer.Registry.PendingCount() != 0 {
		t.Fatal("handler leaked after timeout")
	}
}

func TestLateResponseIsInertForLaterRequests(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true}}
	signer := newSigner(devices, 20*time.Millisecond)

	_, err := signer.Sign(context.Background(), "user-1", []byte("digest-1"))
	if !errors.Is(err, domain.ErrSigningTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	staleID := devices.sent[0].RequestID

	// The stale response arrives now; it must be dropped.
	signer.HandleResponse(domain.SigningResponse{RequestID: staleID, Signature: []byte("stale")})

	// A fresh request gets its own id and its own signature.
	devices.onSend = func(req domain.SigningRequest) {
		signer.HandleResponse(domain.SigningResponse{RequestID: req.RequestID, Signature: []byte("fresh")})
	}
	sig, err := signer.Sign(context.Background(), "user-1", []byte("digest-2"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if string(sig) != "fresh" {
		t.Fatalf("later request must not see the stale signature, got %q", sig)
	}
	if devices.sent[1].RequestID == staleID {
		t.Fatal("request ids must be unique per request")
	}
}

func TestOnlyFirstDeviceResponseHonored(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true}}
	signer := newSigner(devices, time.Second)
	devices.onSend = func(req domain.SigningRequest) {
		// Two devices answer for the same request.
		signer.HandleResponse(domain.SigningResponse{RequestID: req.RequestID, Signature: []byte("first")})
		signer.HandleResponse(domain.SigningResponse{RequestID: req.RequestID, Signature: []byte("second")})
	}

	sig, err := signer.Sign(context.Background(), "user-1", []byte("digest"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if string(sig) != "first" {
		t.Fatalf("expected first response to win, got %q", sig)
	}
}

func TestDeviceErrorResponseFailsSign(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true}}
	signer := newSigner(devices, time.Second)
	devices.onSend = func(req domain.SigningRequest) {
		signer.HandleResponse(domain.SigningResponse{RequestID: req.RequestID, Error: "key locked"})
	}

	_, err := signer.Sign(context.Background(), "user-1", []byte("digest"))
	if err == nil || errors.Is(err, domain.ErrSigningTimeout) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestConcurrentSigningRequestsAreIndependent(t *testing.T) {
	devices := &fakeDevices{connected: map[string]bool{"user-1": true, "user-2": true}}
	signer := newSigner(devices, time.Second)
	devices.onSend = func(req domain.SigningRequest) {
		signer.HandleResponse(domain.SigningResponse{
			RequestID: req.RequestID,
			Signature: []byte("sig-" + req.UserID),
		})
	}

	type result struct {
		sig []byte
		err error
	}
	results := make(chan result, 2)
	for _, user := range []string{"user-1", "user-2"} {
		go func(u string) {
			sig, err := signer.Sign(context.Background(), u, []byte("digest-"+u))
			results <- result{sig: sig, err: err}
		}(user)
	}
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			t.Fatalf("sign: %v", res.err)
		}
		seen[string(res.sig)] = true
	}
	if !seen["sig-user-1"] || !seen["sig-user-2"] {
		t.Fatalf("each request must get its own signature, saw %v", seen)
	}
}
