package unix

import (
	"errors"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"github.com/ValentinKolb/udsrpc/rpc/transport/base"
	sys "golang.org/x/sys/unix"
	"io/fs"
	"net"
	"os"
)

// listenBacklog is the kernel queue length of the listening socket.
// Only one peer is ever accepted
const listenBacklog = 1

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.SocketPath

	// Remove existing socket file if it exists
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewSetupError("remove", socketPath, err)
	}

	// net.Listen does not allow to choose the backlog, so the socket is set
	// up by hand and handed to the runtime poller afterwards
	fd, err := sys.Socket(sys.AF_UNIX, sys.SOCK_STREAM, 0)
	if err != nil {
		return nil, common.NewSetupError("create", socketPath, err)
	}
	sys.CloseOnExec(fd)

	if err := sys.Bind(fd, &sys.SockaddrUnix{Name: socketPath}); err != nil {
		sys.Close(fd)
		return nil, common.NewSetupError("bind", socketPath, err)
	}

	if err := sys.Listen(fd, listenBacklog); err != nil {
		sys.Close(fd)
		os.Remove(socketPath)
		return nil, common.NewSetupError("listen", socketPath, err)
	}

	// FileListener duplicates the descriptor
	f := os.NewFile(uintptr(fd), socketPath)
	defer f.Close()

	listener, err := net.FileListener(f)
	if err != nil {
		os.Remove(socketPath)
		return nil, common.NewSetupError("listen", socketPath, err)
	}

	// Closing the listener removes the socket file
	if ul, ok := listener.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(true)
	}

	return listener, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixServerTransport creates a new Unix host transport
func NewUnixServerTransport(config common.ServerConfig, s serializer.IRPCSerializer) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, config, s)
}
