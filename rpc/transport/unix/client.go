package unix

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"github.com/ValentinKolb/udsrpc/rpc/transport/base"
	sys "golang.org/x/sys/unix"
	"io/fs"
	"net"
	"os"
	"time"
)

// pollInterval is how often Connect checks whether the socket file exists
const pollInterval = 50 * time.Millisecond

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var d net.Dialer
	for {
		// The host may not have created the socket yet or not be listening
		_, err := os.Stat(endpoint)
		if err == nil {
			conn, err := d.DialContext(ctx, "unix", endpoint)
			if err == nil {
				return conn, nil
			}
			if !errors.Is(err, sys.ECONNREFUSED) {
				return nil, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("socket is not accepting connections: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix peer transport
func NewUnixClientTransport(config common.ClientConfig, s serializer.IRPCSerializer) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, config, s)
}
