package cmd

import (
	"fmt"
	"github.com/ValentinKolb/udsrpc/cmd/peer"
	"github.com/ValentinKolb/udsrpc/cmd/serve"
	"github.com/ValentinKolb/udsrpc/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "udsrpc",
		Short: "JSON request/response over a unix domain socket",
		Long: fmt.Sprintf(`udsrpc (v%s)

A point-to-point transport that exchanges length prefixed JSON messages
between a host and exactly one peer over a unix domain socket and matches
every response to its request by a correlation id.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of udsrpc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("udsrpc v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(peer.PeerCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, jsoniter)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
