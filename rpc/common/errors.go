package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrorKind classifies transport failures
type ErrorKind uint8

const (
	ErrKindUnknown   ErrorKind = iota
	ErrKindSetup               // create, bind, listen, accept or dial failed
	ErrKindProtocol            // received bytes are not a valid frame or message
	ErrKindTransport           // read or write on an established connection failed
)

// String returns the string representation of an ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindSetup:
		return "setup"
	case ErrKindProtocol:
		return "protocol"
	case ErrKindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind
var (
	ErrSetup     = errors.New("setup error")
	ErrProtocol  = errors.New("protocol error")
	ErrTransport = errors.New("transport error")
)

// Lifecycle errors
var (
	ErrNotConnected     = errors.New("transport is not connected")
	ErrAlreadyConnected = errors.New("transport is already connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrPendingTimeout   = errors.New("no response received in time")
)

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error is a transport failure with its kind and the operation that failed
type Error struct {
	Kind     ErrorKind
	Op       string // e.g. "bind", "accept", "read", "decode", "write"
	Endpoint string // socket path
	Err      error
}

// NewSetupError creates a setup error
func NewSetupError(op, endpoint string, err error) *Error {
	return &Error{Kind: ErrKindSetup, Op: op, Endpoint: endpoint, Err: err}
}

// NewProtocolError creates a protocol error
func NewProtocolError(op, endpoint string, err error) *Error {
	return &Error{Kind: ErrKindProtocol, Op: op, Endpoint: endpoint, Err: err}
}

// NewTransportError creates a transport error
func NewTransportError(op, endpoint string, err error) *Error {
	return &Error{Kind: ErrKindTransport, Op: op, Endpoint: endpoint, Err: err}
}

func (e *Error) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("uds %s error (%s): %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("uds %s error (%s %s): %v", e.Kind, e.Op, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSetup:
		return e.Kind == ErrKindSetup
	case ErrProtocol:
		return e.Kind == ErrKindProtocol
	case ErrTransport:
		return e.Kind == ErrKindTransport
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
