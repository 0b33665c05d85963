// Package base provides the transport implementation independent of the
// specific socket type. It is extended with protocol-specific connectors
// (see the unix package).
//
// The package focuses on:
//   - Length prefixed framing: <decimal length>:<payload>
//   - Incremental reassembly of frames from reads of any size
//   - Correlation of responses with registered callbacks
//   - A single peer per host with a joined reader goroutine
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific
//     operations (listen, dial).
//
//   - serverTransport: The host. Connect accepts exactly one peer and starts
//     one reader goroutine that reassembles frames, decodes the message and
//     calls the callback registered under its uuid. Messages with an unknown
//     uuid are dropped and logged. When the connection is torn down all
//     pending callbacks receive an error wrapping common.ErrConnectionClosed.
//
//   - clientTransport: The peer. Every request is passed to the registered
//     PeerHandleFunc, a non-nil result is written back.
//
//   - reassembler: Cursor based parser over an append-only buffer. Every byte
//     is scanned once and the consumed prefix is dropped amortized.
//
//   - pendingTable: Lock free map of correlation id to callback with optional
//     deadline eviction.
//
// Failure Handling:
//
//	An invalid frame (bad header or payload that is not a JSON message) is a
//	protocol error, a failed read or write is a transport error. Both close the
//	connection, no bytes are processed afterwards and nothing is retried.
//	Errors are returned from synchronous calls and passed to the registered
//	ErrorHandleFunc when they occur on the reader goroutine.
//
// Metrics:
//
//	Frames and bytes are counted in the process wide VictoriaMetrics set
//	(udsrpc_* metrics, labelled by role) and per transport (see Stats).
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes are serialized so frames never
//	interleave.
package base
