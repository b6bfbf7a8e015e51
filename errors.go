package fetchguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen matches any *CircuitOpenError via errors.Is.
	ErrCircuitOpen = errors.New("fetchguard: circuit open")
)

// Error type tags used in ClientError.Type.
const (
	ErrorTypeValidation = "Validation"
)

// CircuitOpenError is returned when the breaker for a provider key is open
// and its cooldown has not elapsed. The transport is never invoked and no
// retry loop runs: the caller is expected to schedule its own retry at
// RetryAt.
type CircuitOpenError struct {
	CircuitKey string
	RetryAt    time.Time
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("fetchguard: circuit open for %q, retry at %s",
		e.CircuitKey, e.RetryAt.Format(time.RFC3339Nano))
}

// Is reports a match against the ErrCircuitOpen sentinel.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// ClientError is a typed error produced by the client itself, as opposed to
// errors returned by the injected transport, which always pass through
// unchanged.
type ClientError struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetchguard: %s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetchguard: %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient reports whether an error represents a failure that might
// succeed if the caller tries again later. A circuit-open rejection is
// transient (retry at CircuitOpenError.RetryAt); cancellation and
// configuration errors are not. Network-level errors from the transport are
// transient unless they carry a cancelled context.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
