// Package transport defines the interfaces of the point-to-point message
// correlation transport. A host (IRPCServerTransport) listens on a unix domain
// socket, accepts exactly one peer (IRPCClientTransport) and exchanges JSON
// messages with it.
//
// Every message is one frame on the wire:
//
//	<decimal payload length>:<payload>
//
// The payload is a JSON object {"uuid": string, "content": any}. The host
// registers a ResponseFunc under a correlation id with On and the reader
// goroutine calls it once when a message with that uuid arrives.
//
// Key Components:
//
//   - IRPCServerTransport: host side with Connect, On, Write, CreateID and Stop.
//
//   - IRPCClientTransport: peer side that dials the host and answers requests
//     through a PeerHandleFunc.
//
// The implementations live in the base package (protocol agnostic) and the
// unix package (socket specific connectors).
package transport
