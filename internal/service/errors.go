package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecordingDisabled is returned by SnapshotWriter.Write when snapshotting
// is turned off in configuration. It is an expected no-op, not a failure.
var ErrRecordingDisabled = errors.New("sent email recording is disabled")

// Validation reasons for rejected resend requests.
const (
	ReasonEmptyRecipients   = "empty_recipients"
	ReasonInvalidAddresses  = "invalid_addresses"
	ReasonNoValidRecipients = "no_valid_recipients"
)

// ValidationError reports malformed user input. It is always recoverable and
// carries the offending addresses so they can be surfaced verbatim.
type ValidationError struct {
	Reason  string
	Invalid []string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmptyRecipients:
		return "a recipient email address is required"
	case ReasonInvalidAddresses:
		return fmt.Sprintf("invalid email address(es) provided: %s", strings.Join(e.Invalid, ", "))
	case ReasonNoValidRecipients:
		return "no valid recipients"
	}
	return "invalid recipients"
}

// PersistError wraps a snapshot insert failure. The original send already
// happened or failed on its own, so callers log this and move on instead of
// failing the triggering operation.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save sent email: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// ResendFailure aggregates per-recipient transport failures across a resend
// batch. Partial success never masks failure: every failed address is named
// even when others succeeded.
type ResendFailure struct {
	Sent   []string
	Failed []string
}

func (e *ResendFailure) Error() string {
	return fmt.Sprintf("failed to resend emails: %s", strings.Join(e.Failed, ", "))
}
