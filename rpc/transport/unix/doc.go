// Package unix implements the transport over Unix domain sockets.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting framing, reassembly and correlation from the
// base package.
//
// Key Components:
//
//   - serverConnector: Removes a stale socket file, then creates, binds and
//     listens on the socket with a backlog of 1. Closing the listener removes
//     the socket file again.
//
//   - clientConnector: Waits until the socket file exists and dials it.
//
// The configured read block size (default 64 KB) only bounds how many bytes
// are read per call, frames of any size are reassembled.
package unix
