package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNoDeviceConnected      = errors.New("no signing device connected")
	ErrSigningTimeout         = errors.New("signing timed out")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrLedgerUnavailable      = errors.New("ledger unavailable")
	ErrTallyComputation       = errors.New("tally computation failed")
	ErrCacheRecomputation     = errors.New("analytics recomputation failed")
	ErrNotEligible            = errors.New("voter not eligible")
	ErrElectionNotLive        = errors.New("election is not live")
	ErrDuplicateHandler       = errors.New("handler already registered")
	ErrUnauthorized           = errors.New("unauthorized")
)
