// Package common provides core data structures shared across the transport
// packages. It defines the message envelope, configuration structures, error
// kinds and the logging integration.
//
// Key Components:
//
//   - Message: The JSON object carried by every frame. UUID is the correlation
//     id chosen by the requester, Content is arbitrary JSON.
//
//   - ServerConfig / ClientConfig: Configuration of the listening host and the
//     dialing peer (socket path, read block size, limits and timeouts).
//
//   - Error: Typed transport failure with a closed set of kinds (setup,
//     protocol, transport). Use errors.Is(err, ErrProtocol) or KindOf(err) to
//     inspect a failure.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger facade, giving every package a named logger with a shared format.
package common
