package session

import "fmt"

// ErrorType represents the category of a session failure
type ErrorType int

const (
	// ErrTypeTransport indicates a connect/send/receive failure. The
	// affected operation is aborted; there is no automatic retry.
	ErrTypeTransport ErrorType = iota
	// ErrTypeHandshake indicates a missing or undecodable required reply
	// during the handshake sequence. Fatal for the run, but the
	// transport is still closed.
	ErrTypeHandshake
	// ErrTypeConfig indicates missing credentials, detected before any
	// network activity.
	ErrTypeConfig
	// ErrTypeState indicates an operation attempted out of the strict
	// handshake order.
	ErrTypeState
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeHandshake:
		return "Handshake Error"
	case ErrTypeConfig:
		return "Configuration Error"
	case ErrTypeState:
		return "State Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SessionError is an error raised by the session state machine.
// Protocol decode failures never surface here; the codec degrades those
// to diagnostic payloads instead.
type SessionError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport-level error
func NewTransportError(message string, err error) *SessionError {
	return &SessionError{Type: ErrTypeTransport, Message: message, Err: err}
}

// NewHandshakeError creates a handshake error
func NewHandshakeError(message string) *SessionError {
	return &SessionError{Type: ErrTypeHandshake, Message: message}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *SessionError {
	return &SessionError{Type: ErrTypeConfig, Message: message}
}

// NewStateError creates an out-of-order operation error
func NewStateError(message string) *SessionError {
	return &SessionError{Type: ErrTypeState, Message: message}
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	if sessErr, ok := err.(*SessionError); ok {
		return sessErr.Type == ErrTypeTransport
	}
	return false
}

// IsHandshakeError checks if an error is a handshake error
func IsHandshakeError(err error) bool {
	if sessErr, ok := err.(*SessionError); ok {
		return sessErr.Type == ErrTypeHandshake
	}
	return false
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	if sessErr, ok := err.(*SessionError); ok {
		return sessErr.Type == ErrTypeConfig
	}
	return false
}
