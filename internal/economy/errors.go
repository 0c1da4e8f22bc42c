package economy

import (
	"errors"
	"fmt"
)

// Kind classifies a local validation failure. Kinds are stable strings so
// handlers can map them to user-facing messages and HTTP statuses.
type Kind string

const (
	KindInvalidAmount          Kind = "invalid_amount"
	KindInsufficientBalance    Kind = "insufficient_balance"
	KindSelfTransferNotAllowed Kind = "self_transfer_not_allowed"
	KindBelowMinimum           Kind = "below_minimum"
	KindPoolInactive           Kind = "pool_inactive"
	KindPositionLocked         Kind = "position_locked"
	KindPositionClosed         Kind = "position_closed"
	KindAuctionNotLive         Kind = "auction_not_live"
	KindSelfBidNotAllowed      Kind = "self_bid_not_allowed"
	KindBidTooLow              Kind = "bid_too_low"
	KindAlreadyHighestBidder   Kind = "already_highest_bidder"
	KindQuorumNotReached       Kind = "quorum_not_reached"
	KindConflict               Kind = "conflict"
	KindInvalidTransition      Kind = "invalid_transition"
	KindVotingClosed           Kind = "voting_closed"
	KindNotFound               Kind = "not_found"
)

// Error is a validation failure returned by the engines. Two errors match
// under errors.Is when their kinds are equal, so callers compare against the
// sentinel values below regardless of the message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Msg
}

// Is reports kind equality.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrInsufficientBalance    = &Error{Kind: KindInsufficientBalance}
	ErrSelfTransferNotAllowed = &Error{Kind: KindSelfTransferNotAllowed}
	ErrBelowMinimum           = &Error{Kind: KindBelowMinimum}
	ErrPoolInactive           = &Error{Kind: KindPoolInactive}
	ErrPositionLocked         = &Error{Kind: KindPositionLocked}
	ErrPositionClosed         = &Error{Kind: KindPositionClosed}
	ErrAuctionNotLive         = &Error{Kind: KindAuctionNotLive}
	ErrSelfBidNotAllowed      = &Error{Kind: KindSelfBidNotAllowed}
	ErrBidTooLow              = &Error{Kind: KindBidTooLow}
	ErrAlreadyHighestBidder   = &Error{Kind: KindAlreadyHighestBidder}
	ErrQuorumNotReached       = &Error{Kind: KindQuorumNotReached}
	ErrConflict               = &Error{Kind: KindConflict}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrVotingClosed           = &Error{Kind: KindVotingClosed}
	ErrNotFound               = &Error{Kind: KindNotFound}
)

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// TransportError wraps a network or persistence failure. The engines never
// return it; adapters do, and retry it with backoff.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError. A nil err stays nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// IsRetryable reports whether an adapter should retry err: transport failures
// and optimistic concurrency conflicts are, validation failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te)
}
