package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/udsrpc/lib/util"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/uds")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener for the configured endpoint. Failures are
	// returned as setup errors
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// connState is the lifecycle state of the host transport
type connState int

const (
	stateIdle       connState = iota // never connected or stopped
	stateConnecting                  // listening, waiting for the peer
	stateConnected                   // peer accepted, reader running
	stateClosed                      // connection torn down, Stop not called yet
	stateStopping                    // Stop is closing resources
)

// responseResult contains the result of a request
type responseResult struct {
	data json.RawMessage
	err  error
}

// closedChan is returned by Done when there is no connection
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// serverTransport implements the host side of the transport
type serverTransport struct {
	connector    IServerConnector
	config       common.ServerConfig
	serializer   serializer.IRPCSerializer
	newID        func() string
	errorHandler transport.ErrorHandleFunc
	pending      *pendingTable
	metrics      *transportMetrics

	mu          sync.Mutex // Protects the fields below
	state       connState
	listener    net.Listener
	conn        *frameConn
	done        chan struct{} // Closed when the current connection is torn down
	stopJanitor chan struct{}

	readers   sync.WaitGroup
	janitors  sync.WaitGroup
	inReader  atomic.Bool // Set while the reader runs a callback or the error hook
	inJanitor atomic.Bool // Set while the janitor runs timeout callbacks
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new host transport with the specified connector
func NewBaseServerTransport(connector IServerConnector, config common.ServerConfig, s serializer.IRPCSerializer) transport.IRPCServerTransport {
	newID, err := util.IDGenerator(config.IDFormat)
	if err != nil {
		Logger.Warningf("%v, falling back to %s", err, util.IDFormatHash)
		newID = util.CreateID
	}

	pendingTimeout := time.Duration(config.PendingTimeoutMillisecond) * time.Millisecond

	return &serverTransport{
		connector:  connector,
		config:     config,
		serializer: s,
		newID:      newID,
		pending:    newPendingTable(pendingTimeout),
		metrics:    newTransportMetrics("host"),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterErrorHandler(handler transport.ErrorHandleFunc) {
	t.errorHandler = handler
}

func (t *serverTransport) Connect(ctx context.Context) error {
	endpoint := t.config.SocketPath

	t.mu.Lock()
	if t.state == stateClosed {
		// The previous peer is gone, release its resources first
		t.mu.Unlock()
		if err := t.Stop(); err != nil {
			Logger.Warningf("Cleanup of previous connection failed: %v", err)
		}
		t.mu.Lock()
	}
	if t.state != stateIdle {
		t.mu.Unlock()
		return common.NewSetupError("connect", endpoint, common.ErrAlreadyConnected)
	}

	// A reader stopped from its own callback may still be finishing
	if !t.inReader.Load() {
		t.readers.Wait()
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(t.config)
	if err != nil {
		t.mu.Unlock()
		return t.setupFailed(asSetupError("listen", endpoint, err))
	}

	done := make(chan struct{})
	t.listener = listener
	t.done = done
	t.state = stateConnecting
	t.mu.Unlock()

	Logger.Infof("Waiting for peer on %s socket %s", t.connector.GetName(), endpoint)

	// Accept exactly one peer, cancelling ctx closes the listener
	stopAfter := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	conn, err := listener.Accept()
	stopAfter()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateConnecting {
		// Stop was called while waiting
		if conn != nil {
			conn.Close()
		}
		return common.NewSetupError("accept", endpoint, common.ErrConnectionClosed)
	}

	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		listener.Close()
		t.listener = nil
		t.state = stateIdle
		close(done)
		return t.setupFailed(common.NewSetupError("accept", endpoint, err))
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	c := newFrameConn(conn, endpoint, t.config.BlockSize(), t.config.MaxFrameBytes, timeout, t.metrics)
	t.conn = c
	t.state = stateConnected

	t.readers.Add(1)
	go t.serve(c, done)

	if t.pending.timeout > 0 {
		t.stopJanitor = make(chan struct{})
		t.janitors.Add(1)
		go t.janitor(t.stopJanitor)
	}

	Logger.Infof("Peer connected on %s", endpoint)
	return nil
}

func (t *serverTransport) On(id string, fn transport.ResponseFunc) {
	t.pending.register(id, fn)
}

func (t *serverTransport) Off(id string) bool {
	return t.pending.unregister(id)
}

func (t *serverTransport) Write(content any) error {
	payload, err := t.serializer.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	return t.WriteRaw(payload)
}

func (t *serverTransport) WriteRaw(payload []byte) error {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()

	if c == nil {
		return common.ErrNotConnected
	}

	if err := c.write(payload); err != nil {
		if errors.Is(err, common.ErrConnectionClosed) {
			return err
		}

		// A failed write leaves the stream in an unknown state
		werr := common.NewTransportError("write", c.endpoint, err)
		c.closeWith(werr)
		t.report(werr)
		return werr
	}
	return nil
}

func (t *serverTransport) Request(ctx context.Context, content any) (json.RawMessage, error) {
	raw, err := t.serializer.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content: %w", err)
	}

	id := t.CreateID()
	payload, err := t.serializer.Serialize(common.Message{UUID: id, Content: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	respCh := make(chan responseResult, 1)
	t.On(id, func(data json.RawMessage, err error) {
		respCh <- responseResult{data, err}
	})

	if err := t.WriteRaw(payload); err != nil {
		t.Off(id)
		return nil, err
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-ctx.Done():
		t.Off(id)
		return nil, ctx.Err()
	}
}

func (t *serverTransport) CreateID() string {
	return t.newID()
}

func (t *serverTransport) Stop() error {
	t.mu.Lock()
	switch t.state {
	case stateIdle:
		t.mu.Unlock()
		return nil
	case stateStopping:
		// Another Stop is in progress, wait for it
		t.mu.Unlock()
		t.join()
		return nil
	}

	listener, c := t.listener, t.conn
	t.state = stateStopping
	if t.stopJanitor != nil {
		close(t.stopJanitor)
		t.stopJanitor = nil
	}
	t.mu.Unlock()

	var errs []error
	var cause error
	if c != nil {
		c.closeWith(nil)
		cause = c.closeCause()
	}
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, common.NewSetupError("close", t.config.SocketPath, err))
		}
	}

	t.reject(cause)
	t.join()

	t.mu.Lock()
	if c == nil && t.done != nil {
		// Stopped while waiting for the peer, no reader closes done
		close(t.done)
	}
	t.listener = nil
	t.conn = nil
	t.state = stateIdle
	t.mu.Unlock()

	Logger.Infof("Stopped %s transport on %s", t.connector.GetName(), t.config.SocketPath)
	return errors.Join(errs...)
}

func (t *serverTransport) Wait() {
	<-t.Done()
}

func (t *serverTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return closedChan
	}
	return t.done
}

func (t *serverTransport) Pending() int {
	return t.pending.size()
}

func (t *serverTransport) Stats() common.TransportStats {
	return t.metrics.snapshot(t.pending.size())
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// serve runs the reader of one connection and tears it down when reading stops
func (t *serverTransport) serve(c *frameConn, done chan struct{}) {
	defer t.readers.Done()

	err := c.readLoop(t.dispatch)

	cause := c.readFailure(err)
	failed := cause != nil && !c.isClosed()
	c.closeWith(cause)
	cause = c.closeCause()

	if failed {
		t.fromReader(func() { t.report(cause) })
	}

	// Stop rejects pending requests itself once it started
	t.mu.Lock()
	closedByPeer := t.state == stateConnected
	if closedByPeer {
		t.state = stateClosed
	}
	t.mu.Unlock()

	if closedByPeer {
		t.fromReader(func() { t.reject(cause) })
	}

	close(done)
	Logger.Debugf("Reader on %s stopped", c.endpoint)
}

// dispatch decodes one frame and calls the callback registered for its uuid
func (t *serverTransport) dispatch(payload []byte) error {
	msg, err := decodeMessage(t.serializer, payload)
	if err != nil {
		return err
	}

	fn, ok := t.pending.take(msg.UUID)
	if !ok {
		t.metrics.frameDropped()
		Logger.Warningf("Dropped message with unknown id %q", msg.UUID)
		return nil
	}

	t.metrics.frameDispatched()
	t.fromReader(func() { fn(msg.Content, nil) })
	return nil
}

// janitor evicts expired pending requests until stop is closed
func (t *serverTransport) janitor(stop <-chan struct{}) {
	defer t.janitors.Done()

	ticker := time.NewTicker(janitorInterval(t.pending.timeout))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			t.inJanitor.Store(true)
			n := t.pending.evictExpired(now)
			t.inJanitor.Store(false)
			if n > 0 {
				Logger.Debugf("Evicted %d expired pending requests", n)
			}
		}
	}
}

// reject calls every pending callback with ErrConnectionClosed wrapping cause
func (t *serverTransport) reject(cause error) {
	rejectErr := common.ErrConnectionClosed
	if cause != nil {
		rejectErr = fmt.Errorf("%w: %w", common.ErrConnectionClosed, cause)
	}
	if n := t.pending.drain(rejectErr); n > 0 {
		Logger.Warningf("Rejected %d pending requests: %v", n, rejectErr)
	}
}

// fromReader runs fn on the reader goroutine. Stop called from fn does not
// wait for the reader it runs on
func (t *serverTransport) fromReader(fn func()) {
	t.inReader.Store(true)
	defer t.inReader.Store(false)
	fn()
}

// join waits for the reader and the janitor unless called from one of them
func (t *serverTransport) join() {
	if !t.inReader.Load() {
		t.readers.Wait()
	}
	if !t.inJanitor.Load() {
		t.janitors.Wait()
	}
}

// janitorInterval returns how often expired requests are evicted
func janitorInterval(timeout time.Duration) time.Duration {
	interval := timeout / 2
	if interval < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	if interval > time.Second {
		return time.Second
	}
	return interval
}

// asSetupError wraps err as setup error unless it already carries a kind
func asSetupError(op, endpoint string, err error) error {
	if common.KindOf(err) != common.ErrKindUnknown {
		return err
	}
	return common.NewSetupError(op, endpoint, err)
}

// setupFailed logs and reports a setup error and returns it
func (t *serverTransport) setupFailed(err error) error {
	t.report(err)
	return err
}

// report logs err and passes it to the registered error handler
func (t *serverTransport) report(err error) {
	Logger.Errorf("%v", err)
	if t.errorHandler != nil {
		t.errorHandler(err)
	}
}
