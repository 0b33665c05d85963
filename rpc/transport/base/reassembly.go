package base

import (
	"bytes"
)

// maxRetainedBuffer is the largest buffer kept after it has been fully consumed
const maxRetainedBuffer = 4 * 1024 * 1024

// reassembler turns a byte stream delivered in arbitrary chunks into frame payloads.
//
// Bytes are appended to buf, off marks the start of the unconsumed part. While
// the header is parsed (expected < 0) scanned remembers how many unconsumed bytes
// are known to contain no separator, so every byte is searched once. The
// consumed prefix is dropped at the start of the next feed, which keeps the
// total copy cost linear in the number of bytes received.
//
// A reassembler is owned by a single reader goroutine and is not thread-safe.
type reassembler struct {
	buf      []byte
	off      int
	scanned  int
	expected int
	limit    uint64
}

// newReassembler creates a reassembler. A limit of 0 disables the frame size check
func newReassembler(limit uint64) *reassembler {
	return &reassembler{
		expected: -1,
		limit:    limit,
	}
}

// feed appends chunk and calls emit for every frame completed by it, in order.
//
// The payload passed to emit aliases the internal buffer and is only valid
// until emit returns. Processing stops at the first error, either from an
// invalid header or returned by emit; the reassembler must not be fed again
// afterwards
func (r *reassembler) feed(chunk []byte, emit func(payload []byte) error) error {
	r.compact()
	r.buf = append(r.buf, chunk...)

	for {
		if r.expected < 0 {
			unread := r.buf[r.off:]

			i := bytes.IndexByte(unread[r.scanned:], FrameSeparator)
			if i < 0 {
				// header may be split across reads
				if err := checkPartialHeader(unread); err != nil {
					return err
				}
				r.scanned = len(unread)
				return nil
			}

			headerLen := r.scanned + i
			n, err := parseLength(unread[:headerLen], r.limit)
			if err != nil {
				return err
			}

			r.off += headerLen + 1
			r.scanned = 0
			r.expected = n
		}

		if len(r.buf)-r.off < r.expected {
			return nil
		}

		end := r.off + r.expected
		payload := r.buf[r.off:end:end]
		r.off = end
		r.expected = -1

		if err := emit(payload); err != nil {
			return err
		}

		if r.off == len(r.buf) {
			return nil
		}
	}
}

// buffered returns the number of received bytes not yet emitted
func (r *reassembler) buffered() int {
	return len(r.buf) - r.off
}

// reset discards all buffered bytes
func (r *reassembler) reset() {
	r.buf = nil
	r.off = 0
	r.scanned = 0
	r.expected = -1
}

// compact drops the consumed prefix of the buffer
func (r *reassembler) compact() {
	if r.off == 0 {
		return
	}

	if r.off == len(r.buf) {
		if cap(r.buf) > maxRetainedBuffer {
			r.buf = nil
		} else {
			r.buf = r.buf[:0]
		}
		r.off = 0
		return
	}

	// Only move the tail once it is at most half of the buffer
	if r.off >= len(r.buf)/2 {
		n := copy(r.buf, r.buf[r.off:])
		r.buf = r.buf[:n]
		r.off = 0
	}
}
