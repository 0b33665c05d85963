package util

import (
	"fmt"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. UDSRPC_SOCKET_PATH)
	EnvPrefix = "udsrpc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and configures viper to read environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// setupSocketFlags adds the flags shared by host and peer
func setupSocketFlags(cmd *cobra.Command) {
	key := "socket-path"
	cmd.PersistentFlags().String(key, common.DefaultSocketPath, WrapString("Path of the unix domain socket"))

	key = "block-size"
	cmd.PersistentFlags().Int(key, common.DefaultBlockSizeKB, WrapString("How many KB are read from the socket per call. Frames of any size are reassembled"))

	key = "max-frame-size"
	cmd.PersistentFlags().Uint64(key, 0, WrapString("Reject frames with a larger payload in bytes and close the connection (0 = unlimited)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// SetupServerFlags adds the host flags to a command
func SetupServerFlags(cmd *cobra.Command) {
	setupSocketFlags(cmd)

	key := "timeout"
	cmd.PersistentFlags().Int64(key, 5, WrapString("Write timeout in seconds for a single frame (0 = none)"))

	key = "pending-timeout"
	cmd.PersistentFlags().Int64(key, 0, WrapString("Time in milliseconds after which a request without response is rejected (0 = wait forever)"))

	key = "id-format"
	cmd.PersistentFlags().String(key, "hash", WrapString("Format of the correlation ids (hash, uuid)"))
}

// SetupClientFlags adds the peer flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	setupSocketFlags(cmd)

	key := "timeout"
	cmd.PersistentFlags().Int64(key, 10, WrapString("How long to wait in seconds for the socket to accept connections (0 = forever)"))
}

// GetServerConfig reads the host configuration from viper
func GetServerConfig() common.ServerConfig {
	return common.ServerConfig{
		SocketPath:                viper.GetString("socket-path"),
		BlockSizeKB:               viper.GetInt("block-size"),
		MaxFrameBytes:             viper.GetUint64("max-frame-size"),
		TimeoutSecond:             viper.GetInt64("timeout"),
		PendingTimeoutMillisecond: viper.GetInt64("pending-timeout"),
		IDFormat:                  viper.GetString("id-format"),
		LogLevel:                  viper.GetString("log-level"),
	}
}

// GetClientConfig reads the peer configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		SocketPath:    viper.GetString("socket-path"),
		BlockSizeKB:   viper.GetInt("block-size"),
		MaxFrameBytes: viper.GetUint64("max-frame-size"),
		TimeoutSecond: viper.GetInt64("timeout"),
		LogLevel:      viper.GetString("log-level"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json", "":
		return serializer.NewJSONSerializer(), nil
	case "jsoniter":
		return serializer.NewJSONIterSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected one of: json, jsoniter)", viper.GetString("serializer"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
