// Package rpc provides the message correlation transport between a host and
// a single peer over a unix domain socket.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the transport,
//     including the Message envelope, configuration structures, error kinds
//     and logging.
//
//   - transport: Interfaces of host and peer, with the protocol agnostic
//     implementation in transport/base and the socket connectors in
//     transport/unix.
//
//   - serializer: JSON codecs (encoding/json, json-iterator) for converting
//     between Message objects and frame payloads.
package rpc
