package base

import (
	"errors"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"io"
	"net"
	"sync"
	"time"
)

// frameConn wraps an established connection with framed writes and a
// reassembling read loop. It is shared by the host and the peer transport
type frameConn struct {
	conn      net.Conn
	endpoint  string
	blockSize int
	timeout   time.Duration // write deadline per frame, 0 = none
	metrics   *transportMetrics
	reasm     *reassembler

	writeMu   sync.Mutex // Serializes frames so their bytes never interleave
	closeOnce sync.Once
	closed    chan struct{}
	cause     error // Why the connection was closed, nil for an orderly close
}

// newFrameConn creates a frameConn for an accepted or dialed connection
func newFrameConn(conn net.Conn, endpoint string, blockSize int, limit uint64, timeout time.Duration, m *transportMetrics) *frameConn {
	return &frameConn{
		conn:      conn,
		endpoint:  endpoint,
		blockSize: blockSize,
		timeout:   timeout,
		metrics:   m,
		reasm:     newReassembler(limit),
		closed:    make(chan struct{}),
	}
}

// write sends payload as one frame
func (c *frameConn) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return common.ErrConnectionClosed
	}

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}

	n, err := writeFrame(c.conn, payload)
	if err != nil {
		return err
	}
	c.metrics.frameWritten(n)
	return nil
}

// readLoop reads blockSize chunks and calls onPayload for every complete frame
// until reading fails or a frame cannot be processed. Invalid frames are
// returned as protocol errors, read errors are returned unchanged.
// No bytes are processed after the first failing frame
func (c *frameConn) readLoop(onPayload func(payload []byte) error) error {
	buf := make([]byte, c.blockSize)

	emit := func(payload []byte) error {
		// Frames buffered behind a local close are not dispatched
		if c.isClosed() {
			return common.ErrConnectionClosed
		}
		c.metrics.frameReceived(len(payload))
		return onPayload(payload)
	}

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.metrics.chunkRead(n)

			if ferr := c.reasm.feed(buf[:n], emit); ferr != nil {
				c.reasm.reset()
				if common.KindOf(ferr) != common.ErrKindUnknown {
					return ferr
				}
				return common.NewProtocolError("decode", c.endpoint, ferr)
			}
		}
		if err != nil {
			return err
		}
	}
}

// readFailure turns the error that ended readLoop into the cause of the
// teardown. It returns nil when the peer closed the connection or it was
// closed locally without an error
func (c *frameConn) readFailure(err error) error {
	switch {
	case c.isClosed():
		return c.closeCause()
	case errors.Is(err, io.EOF):
		Logger.Infof("Connection on %s closed by peer", c.endpoint)
		return nil
	case common.KindOf(err) != common.ErrKindUnknown:
		return err
	default:
		return common.NewTransportError("read", c.endpoint, err)
	}
}

// closeWith closes the connection once and records cause
func (c *frameConn) closeWith(cause error) {
	c.closeOnce.Do(func() {
		c.cause = cause
		close(c.closed)
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Failed to close connection on %s: %v", c.endpoint, err)
		}
	})
}

// isClosed reports whether closeWith was called
func (c *frameConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// closeCause returns the cause passed to closeWith
func (c *frameConn) closeCause() error {
	<-c.closed
	return c.cause
}
