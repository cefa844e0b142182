package chat

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Validation constants
const (
	MaxAliasLength    = 50
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// Validation errors. These are business-rule rejections and never leave the
// core as errors: operations report them as a false result.
var (
	ErrAliasEmpty      = errors.New("alias cannot be empty")
	ErrAliasTooLong    = errors.New("alias exceeds maximum length")
	ErrAliasInvalid    = errors.New("alias contains invalid characters")
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrMessageEmpty    = errors.New("message body cannot be empty")
	ErrMessageTooLong  = errors.New("message body exceeds maximum length")
	ErrMessageInvalid  = errors.New("message body contains invalid characters")
)

// Infrastructure errors.
var (
	// ErrStoreTimeout is matched by any StoreError caused by a deadline.
	ErrStoreTimeout = errors.New("backing store timed out")
	// ErrSequenceUnavailable means the allocator answered without a usable number.
	ErrSequenceUnavailable = errors.New("sequence number unavailable")
	// ErrSequenceRegressed means the allocator returned a number not above the log head.
	ErrSequenceRegressed = errors.New("sequence number did not increase")
)

// storeFaultMarker prefixes every StoreError message so the fault class
// survives transports that only carry error text.
const storeFaultMarker = "store fault in"

// StoreError is returned when the backing store (database, Redis) fails.
// Callers can treat it as retryable, unlike a false business result.
type StoreError struct {
	Op   string
	Room string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Room != "" {
		return fmt.Sprintf("%s %s (room %s): %v", storeFaultMarker, e.Op, e.Room, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", storeFaultMarker, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Timeout reports whether the fault was caused by a deadline.
func (e *StoreError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, ErrStoreTimeout)
}

// Is lets errors.Is(err, ErrStoreTimeout) match deadline faults.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreTimeout && e.Timeout()
}

// IsStoreFault reports whether err carries a StoreError.
func IsStoreFault(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeFault(op, room string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrStoreTimeout) {
		err = fmt.Errorf("%w: %w", ErrStoreTimeout, err)
	}
	return &StoreError{Op: op, Room: room, Err: err}
}

// ValidateAlias validates a user alias.
func ValidateAlias(alias string) error {
	if alias == "" {
		return ErrAliasEmpty
	}
	if len(alias) > MaxAliasLength {
		return ErrAliasTooLong
	}
	if !utf8.ValidString(alias) {
		return ErrAliasInvalid
	}
	return nil
}

// ValidateRoomName validates a room name.
func ValidateRoomName(name string) error {
	if name == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateMessage validates a message body.
func ValidateMessage(body string) error {
	if body == "" {
		return ErrMessageEmpty
	}
	if len(body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(body) {
		return ErrMessageInvalid
	}
	return nil
}
