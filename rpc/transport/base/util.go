package base

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"io"
	"math"
	"net"
	"strconv"
)

// FrameSeparator separates the decimal length header from the payload
const FrameSeparator byte = ':'

// maxHeaderDigits is the longest header that can hold a non-negative int64
const maxHeaderDigits = 19

var (
	// ErrInvalidHeader is returned for a length header that is not a non-negative decimal integer
	ErrInvalidHeader = errors.New("invalid frame header")
	// ErrFrameTooLarge is returned for a frame that exceeds the configured limit
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	// ErrInvalidPayload is returned for a payload that is not a JSON object
	ErrInvalidPayload = errors.New("frame payload is not a JSON object")
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodeFrame returns payload with its length header:
//
//	<decimal len(payload)>:<payload>
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, 0, maxHeaderDigits+1+len(payload))
	frame = appendHeader(frame, len(payload))
	return append(frame, payload...)
}

// appendHeader appends the length header for a payload of n bytes to dst
func appendHeader(dst []byte, n int) []byte {
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, FrameSeparator)
}

// writeFrame writes header and payload as one logical write.
// net.Buffers lets a *net.UnixConn send both with a single writev call
func writeFrame(w io.Writer, payload []byte) (int64, error) {
	header := appendHeader(make([]byte, 0, maxHeaderDigits+1), len(payload))

	b := net.Buffers{header, payload}
	return b.WriteTo(w)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// DecodeFrame splits the first complete frame off b. It returns
// io.ErrUnexpectedEOF if b does not hold a complete frame yet.
// A limit of 0 disables the size check
func DecodeFrame(b []byte, limit uint64) (payload []byte, rest []byte, err error) {
	i := bytes.IndexByte(b, FrameSeparator)
	if i < 0 {
		if err := checkPartialHeader(b); err != nil {
			return nil, b, err
		}
		return nil, b, io.ErrUnexpectedEOF
	}

	n, err := parseLength(b[:i], limit)
	if err != nil {
		return nil, b, err
	}

	body := b[i+1:]
	if len(body) < n {
		return nil, b, io.ErrUnexpectedEOF
	}
	return body[:n:n], body[n:], nil
}

// parseLength parses a length header (without the separator)
func parseLength(header []byte, limit uint64) (int, error) {
	if len(header) == 0 || len(header) > maxHeaderDigits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
	}

	var n uint64
	for _, c := range header {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}
		n = n*10 + uint64(c-'0')
	}

	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
	}
	if limit > 0 && n > limit {
		return 0, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, n, limit)
	}
	return int(n), nil
}

// checkPartialHeader rejects bytes that can never become a valid header
func checkPartialHeader(b []byte) error {
	if len(b) > maxHeaderDigits {
		return fmt.Errorf("%w: no separator within %d bytes", ErrInvalidHeader, maxHeaderDigits)
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidHeader, b)
		}
	}
	return nil
}

// decodeMessage decodes a frame payload into a message. The content of the
// returned message is compact JSON text and does not alias payload
func decodeMessage(s serializer.IRPCSerializer, payload []byte) (common.Message, error) {
	var msg common.Message

	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return msg, ErrInvalidPayload
	}

	if err := s.Deserialize(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	content, err := compactContent(msg.Content)
	if err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	msg.Content = content
	return msg, nil
}

// compactContent returns content without insignificant whitespace.
// Absent content becomes the JSON literal null
func compactContent(content json.RawMessage) (json.RawMessage, error) {
	if len(content) == 0 {
		return json.RawMessage("null"), nil
	}

	var buf bytes.Buffer
	buf.Grow(len(content))
	if err := json.Compact(&buf, content); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
