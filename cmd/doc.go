// Package cmd implements the command-line interface of udsrpc.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the host, sends lines read from stdin as requests and prints the responses
//   - peer: Connects to a host and echoes its requests
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See udsrpc -help for a list of all commands.
package cmd
