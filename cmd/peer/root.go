package peer

import (
	"encoding/json"
	cmdUtil "github.com/ValentinKolb/udsrpc/cmd/util"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	PeerCmd = &cobra.Command{
		Use:   "peer",
		Short: "Connect to a host and answer its requests",
		Long: `Connect to a host as its peer and answer every request with the same uuid.
Requests whose content is {"_stdout": {"message": ..., "isError": ...}} are logged instead of answered,
all other requests are echoed back unchanged.
The configuration can be set via command line flags or environment variables. The format of
the environment variables is UDSRPC_<flag> (e.g. UDSRPC_SOCKET_PATH=/tmp/app.sock)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupClientFlags(PeerCmd)
}

// processConfig binds the flags to viper and initializes the loggers
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// run starts the peer
func run(cmd *cobra.Command, _ []string) error {
	config := cmdUtil.GetClientConfig()

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	cmdUtil.Logger.Infof("Starting peer with configuration:\n%s", config.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := unix.NewUnixClientTransport(config, s)
	t.RegisterHandler(handle)

	if err := t.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-t.Done():
		cmdUtil.Logger.Infof("Host closed the connection")
	case <-ctx.Done():
	}
	return t.Close()
}

// stdoutContent is the content of a log request
type stdoutContent struct {
	Stdout *struct {
		Message string `json:"message"`
		IsError bool   `json:"isError"`
	} `json:"_stdout"`
}

// handle logs log requests and echoes everything else
func handle(msg common.Message) *common.Message {
	var content stdoutContent
	if err := json.Unmarshal(msg.Content, &content); err == nil && content.Stdout != nil {
		if content.Stdout.IsError {
			cmdUtil.Logger.Errorf("%s", content.Stdout.Message)
		} else {
			cmdUtil.Logger.Infof("%s", content.Stdout.Message)
		}
		return nil
	}
	return common.NewMessage(msg.UUID, msg.Content)
}
