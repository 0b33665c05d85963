package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSocketPath is used when no socket path is configured
	DefaultSocketPath = "/tmp/udsrpc.sock"

	// DefaultBlockSizeKB is the number of KiB read from the socket per call
	DefaultBlockSizeKB = 64
)

// --------------------------------------------------------------------------
// Host (listening side) configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the listening host
type ServerConfig struct {
	// SocketPath is the path of the unix domain socket. Any existing file at
	// this path is removed before binding
	SocketPath string

	// BlockSizeKB bounds how many KiB are read per read call. It does not
	// limit the size of a frame
	BlockSizeKB int

	// MaxFrameBytes rejects frames with a larger payload (0 = unlimited)
	MaxFrameBytes uint64

	// TimeoutSecond is the write deadline for a single frame (0 = none)
	TimeoutSecond int64

	// PendingTimeoutMillisecond evicts registered callbacks that did not
	// receive a response in time (0 = wait forever)
	PendingTimeoutMillisecond int64

	// IDFormat selects the correlation id generator (hash, uuid)
	IDFormat string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when nothing is set
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		SocketPath:  DefaultSocketPath,
		BlockSizeKB: DefaultBlockSizeKB,
		IDFormat:    "hash",
		LogLevel:    "info",
	}
}

// BlockSize returns the read block size in bytes
func (c *ServerConfig) BlockSize() int {
	return blockSize(c.BlockSizeKB)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("UDS Host")
	addField("Socket Path", c.SocketPath)
	addField("Read Block Size", fmt.Sprintf("%d KB", c.BlockSize()/1024))
	addField("Max Frame Size", formatLimit(c.MaxFrameBytes))
	addField("Write Timeout", formatSeconds(c.TimeoutSecond))
	addField("Pending Timeout", formatMillis(c.PendingTimeoutMillisecond))
	addField("ID Format", c.IDFormat)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Peer (dialing side) configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of the dialing peer
type ClientConfig struct {
	// SocketPath of the host to connect to
	SocketPath string

	// BlockSizeKB bounds how many KiB are read per read call
	BlockSizeKB int

	// MaxFrameBytes rejects frames with a larger payload (0 = unlimited)
	MaxFrameBytes uint64

	// TimeoutSecond bounds how long Connect waits for the socket to appear
	// and be dialed (0 = until the context is done)
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns the configuration used when nothing is set
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SocketPath:  DefaultSocketPath,
		BlockSizeKB: DefaultBlockSizeKB,
		LogLevel:    "info",
	}
}

// BlockSize returns the read block size in bytes
func (c *ClientConfig) BlockSize() int {
	return blockSize(c.BlockSizeKB)
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("UDS Peer")
	addField("Socket Path", c.SocketPath)
	addField("Read Block Size", fmt.Sprintf("%d KB", c.BlockSize()/1024))
	addField("Max Frame Size", formatLimit(c.MaxFrameBytes))
	addField("Connect Timeout", formatSeconds(c.TimeoutSecond))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func blockSize(kb int) int {
	if kb <= 0 {
		kb = DefaultBlockSizeKB
	}
	return kb * 1024
}

func formatLimit(n uint64) string {
	if n == 0 {
		return "unlimited"
	}
	return strconv.FormatUint(n, 10) + " bytes"
}

func formatSeconds(n int64) string {
	if n <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d sec", n)
}

func formatMillis(n int64) string {
	if n <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d ms", n)
}
