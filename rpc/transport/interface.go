package transport

import (
	"context"
	"encoding/json"
	"github.com/ValentinKolb/udsrpc/rpc/common"
)

// ResponseFunc is called once for a registered correlation id.
// On dispatch content holds the compact JSON text of the response content and
// err is nil. If the entry is evicted or the connection is torn down before a
// response arrives, content is nil and err wraps common.ErrPendingTimeout or
// common.ErrConnectionClosed
type ResponseFunc func(content json.RawMessage, err error)

// ErrorHandleFunc receives errors that occur outside a synchronous call,
// e.g. on the reader goroutine
type ErrorHandleFunc func(err error)

// PeerHandleFunc handles a request received by the peer. A non-nil return
// value is written back to the host as the response
type PeerHandleFunc func(msg common.Message) *common.Message

// --------------------------------------------------------------------------
// Server Transport (host)
// --------------------------------------------------------------------------

// IRPCServerTransport is the listening side of the transport. It accepts
// exactly one peer and correlates inbound messages with registered callbacks
type IRPCServerTransport interface {
	// RegisterErrorHandler registers a hook for errors raised on the reader
	// goroutine (protocol and transport errors). Must be called before Connect
	RegisterErrorHandler(handler ErrorHandleFunc)

	// Connect removes a stale socket file, listens, blocks until one peer is
	// accepted or ctx is done and starts the reader goroutine
	Connect(ctx context.Context) error

	// On registers fn under id. Registering the same id again replaces the
	// previous callback
	On(id string, fn ResponseFunc)

	// Off removes the callback registered under id without calling it.
	// It reports whether an entry was removed
	Off(id string) bool

	// Write marshals content with the serializer and sends it as one frame
	Write(content any) error

	// WriteRaw sends an already encoded JSON payload as one frame
	WriteRaw(payload []byte) error

	// Request sends content under a fresh correlation id and waits for the
	// matching response or until ctx is done
	Request(ctx context.Context, content any) (json.RawMessage, error)

	// CreateID returns a new correlation id
	CreateID() string

	// Stop closes listener and peer, rejects pending callbacks and waits for
	// the reader goroutine. It is safe to call Stop multiple times, without
	// Connect or from a callback. Called from a callback it does not wait for
	// the reader that runs the callback
	Stop() error

	// Wait blocks until the current connection is torn down
	Wait()

	// Done returns a channel that is closed when the current connection is torn down
	Done() <-chan struct{}

	// Pending returns the number of registered callbacks
	Pending() int

	// Stats returns a snapshot of the transport counters
	Stats() common.TransportStats
}

// --------------------------------------------------------------------------
// Client Transport (peer)
// --------------------------------------------------------------------------

// IRPCClientTransport is the dialing side of the transport
type IRPCClientTransport interface {
	// RegisterHandler registers the handler for inbound requests.
	// Must be called before Connect
	RegisterHandler(handler PeerHandleFunc)

	// RegisterErrorHandler registers a hook for errors raised on the reader goroutine
	RegisterErrorHandler(handler ErrorHandleFunc)

	// Connect waits until the socket exists, dials it and starts the reader goroutine
	Connect(ctx context.Context) error

	// Write sends a message to the host
	Write(msg common.Message) error

	// Close closes the connection and waits for the reader goroutine unless
	// it is called from the handler or the error hook
	Close() error

	// Wait blocks until the connection is torn down
	Wait()

	// Done returns a channel that is closed when the connection is torn down
	Done() <-chan struct{}
}
