package chatsession

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired         = errors.New("auth required")
	ErrNotFound             = errors.New("session not found")
	ErrValidationFailed     = errors.New("validation failed")
	ErrStorePersistFailed   = errors.New("store persist failed")
	ErrStoreLoadFailed      = errors.New("store load failed")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrResponseFailed       = errors.New("response generation failed")
)

// OpError carries the failed operation, its kind (one of the sentinels above) and the cause.
type OpError struct {
	Op        string
	SessionID string
	Kind      error
	Err       error
}

func (e *OpError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.SessionID != "" {
		msg = fmt.Sprintf("%s: %s (session %s)", e.Op, e.Kind, e.SessionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opErr(op, sessionID string, kind, cause error) error {
	return &OpError{Op: op, SessionID: sessionID, Kind: kind, Err: cause}
}
