package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/udsrpc/cmd/util"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"github.com/ValentinKolb/udsrpc/rpc/transport/unix"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the host and send requests read from stdin",
		Long: `Start the host: listen on the unix domain socket and wait for exactly one peer.
Every line read from stdin is sent as the content of a request (JSON values are sent as is,
other lines as JSON strings) and the content of the response is printed to stdout.
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
	cmdUtil.SetupServerFlags(ServeCmd)

	key := "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address on which Prometheus metrics are served under /metrics (e.g. localhost:9100, empty = disabled)"))
}

// processConfig binds the flags to viper and initializes the loggers
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// run starts the host
func run(cmd *cobra.Command, _ []string) error {
	config := cmdUtil.GetServerConfig()

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	cmdUtil.Logger.Infof("Starting host with configuration:\n%s", config.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := unix.NewUnixServerTransport(config, s)
	defer t.Stop()

	if err := t.Connect(ctx); err != nil {
		return err
	}

	// Everything below ends when stdin is exhausted, the peer is gone or a signal arrives
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return pump(ctx, t, cmd.InOrStdin(), cmd.OutOrStdout())
	})

	g.Go(func() error {
		select {
		case <-t.Done():
			cmdUtil.Logger.Infof("Peer disconnected")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		srv := &http.Server{
			Addr:              endpoint,
			Handler:           metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			cmdUtil.Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	stats := t.Stats()
	cmdUtil.Logger.Infof("Sent %d frames, dispatched %d, dropped %d", stats.FramesWritten, stats.FramesDispatched, stats.FramesDropped)
	return err
}

// pump sends every line of in as a request and writes the responses to out
func pump(ctx context.Context, t transport.IRPCServerTransport, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Scanning blocks, so lines are read in their own goroutine
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			cmdUtil.Logger.Errorf("Failed to read stdin: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}

			resp, err := t.Request(ctx, requestContent(line))
			if err != nil {
				if errors.Is(err, common.ErrPendingTimeout) {
					cmdUtil.Logger.Warningf("No response for %q: %v", line, err)
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, common.ErrConnectionClosed) && common.KindOf(err) == common.ErrKindUnknown {
					// peer went away, nothing left to send to
					return nil
				}
				return err
			}

			if _, err := fmt.Fprintln(out, string(resp)); err != nil {
				return err
			}
		}
	}
}

// requestContent returns line as JSON content
func requestContent(line string) any {
	if json.Valid([]byte(line)) {
		return json.RawMessage(line)
	}
	return line
}

// metricsHandler serves all metrics in Prometheus text format
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return mux
}
