package base

import (
	"context"
	"errors"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrMissingID is returned for a request without a correlation id
var ErrMissingID = errors.New("message has no uuid")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a connection to endpoint, waiting for it to become
	// available until ctx is done
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the peer side of the transport
type clientTransport struct {
	connector    IClientConnector
	config       common.ClientConfig
	serializer   serializer.IRPCSerializer
	handler      transport.PeerHandleFunc
	errorHandler transport.ErrorHandleFunc
	metrics      *transportMetrics

	mu   sync.Mutex // Protects conn and done
	conn *frameConn
	done chan struct{}

	readers  sync.WaitGroup
	inReader atomic.Bool // Set while the reader runs the handler or the error hook
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new peer transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig, s serializer.IRPCSerializer) transport.IRPCClientTransport {
	return &clientTransport{
		connector:  connector,
		config:     config,
		serializer: s,
		metrics:    newTransportMetrics("peer"),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) RegisterHandler(handler transport.PeerHandleFunc) {
	t.handler = handler
}

func (t *clientTransport) RegisterErrorHandler(handler transport.ErrorHandleFunc) {
	t.errorHandler = handler
}

func (t *clientTransport) Connect(ctx context.Context) error {
	endpoint := t.config.SocketPath

	if t.handler == nil {
		return common.NewSetupError("connect", endpoint, errors.New("no handler registered"))
	}

	if t.connected() {
		return common.NewSetupError("connect", endpoint, common.ErrAlreadyConnected)
	}

	if t.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	conn, err := t.connector.Connect(ctx, endpoint)
	if err != nil {
		serr := asSetupError("dial", endpoint, err)
		t.report(serr)
		return serr
	}

	// Wait for the reader of a previous connection
	if !t.inReader.Load() {
		t.readers.Wait()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil && !t.conn.isClosed() {
		conn.Close()
		return common.NewSetupError("connect", endpoint, common.ErrAlreadyConnected)
	}

	c := newFrameConn(conn, endpoint, t.config.BlockSize(), t.config.MaxFrameBytes, 0, t.metrics)
	done := make(chan struct{})
	t.conn = c
	t.done = done

	t.readers.Add(1)
	go t.serve(c, done)

	Logger.Infof("Connected to %s socket %s", t.connector.GetName(), endpoint)
	return nil
}

func (t *clientTransport) Write(msg common.Message) error {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()

	if c == nil {
		return common.ErrNotConnected
	}

	payload, err := t.serializer.Serialize(msg)
	if err != nil {
		return err
	}
	return t.writeTo(c, payload)
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()

	if c == nil {
		return nil
	}

	c.closeWith(nil)
	if !t.inReader.Load() {
		t.readers.Wait()
	}
	return nil
}

func (t *clientTransport) Wait() {
	<-t.Done()
}

func (t *clientTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return closedChan
	}
	return t.done
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connected reports whether a connection is live
func (t *clientTransport) connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && !t.conn.isClosed()
}

// serve runs the reader of one connection
func (t *clientTransport) serve(c *frameConn, done chan struct{}) {
	defer t.readers.Done()
	defer close(done)

	err := c.readLoop(func(payload []byte) error {
		t.inReader.Store(true)
		defer t.inReader.Store(false)
		return t.handle(c, payload)
	})

	cause := c.readFailure(err)
	failed := cause != nil && !c.isClosed()
	c.closeWith(cause)

	if failed {
		t.inReader.Store(true)
		t.report(c.closeCause())
		t.inReader.Store(false)
	}
	Logger.Debugf("Reader on %s stopped", c.endpoint)
}

// handle passes one request to the handler and writes its response back
func (t *clientTransport) handle(c *frameConn, payload []byte) error {
	msg, err := decodeMessage(t.serializer, payload)
	if err != nil {
		return err
	}
	if msg.UUID == "" {
		return ErrMissingID
	}

	t.metrics.frameDispatched()

	resp := t.handler(msg)
	if resp == nil {
		return nil
	}

	data, err := t.serializer.Serialize(*resp)
	if err != nil {
		// The request was valid, keep the connection
		Logger.Errorf("Failed to encode response for %s: %v", msg.UUID, err)
		return nil
	}
	return t.writeTo(c, data)
}

// writeTo writes payload and closes the connection if that fails
func (t *clientTransport) writeTo(c *frameConn, payload []byte) error {
	if err := c.write(payload); err != nil {
		if errors.Is(err, common.ErrConnectionClosed) {
			return err
		}

		werr := common.NewTransportError("write", c.endpoint, err)
		c.closeWith(werr)
		t.report(werr)
		return werr
	}
	return nil
}

// report logs err and passes it to the registered error handler
func (t *clientTransport) report(err error) {
	Logger.Errorf("%v", err)
	if t.errorHandler != nil {
		t.errorHandler(err)
	}
}
