package base

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"io"
	"strings"
	"testing"
)

// TestEncodeFrame tests the exact wire bytes of a frame
func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"a":1}`, `7:{"a":1}`},
		{``, `0:`},
		{`{"k":"a:b"}`, `11:{"k":"a:b"}`},
		{`"ü"`, `4:"ü"`}, // length counts bytes, not runes
	}

	for _, tt := range tests {
		if got := string(EncodeFrame([]byte(tt.payload))); got != tt.want {
			t.Errorf("EncodeFrame(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

// TestWriteFrame tests that header and payload are written together
func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	n, err := writeFrame(&buf, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	if n != 9 {
		t.Errorf("writeFrame wrote %d bytes, want 9", n)
	}
	if buf.String() != `7:{"a":1}` {
		t.Errorf("writeFrame wrote %q, want %q", buf.String(), `7:{"a":1}`)
	}
}

// TestFrameRoundTrip tests that decoding an encoded frame returns the payload
func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte(`{"uuid":"a","content":null}`),
		[]byte("12:34:56"),
		{0x00, 0xff, ':', '\n'},
		bytes.Repeat([]byte("x"), 100_000),
	}

	for i, payload := range payloads {
		frame := EncodeFrame(payload)

		got, rest, err := DecodeFrame(frame, 0)
		if err != nil {
			t.Errorf("Payload %d: DecodeFrame failed: %v", i, err)
			continue
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("Payload %d: round trip mismatch", i)
		}
		if len(rest) != 0 {
			t.Errorf("Payload %d: %d bytes left over", i, len(rest))
		}
	}
}

// TestDecodeFrameIncomplete tests that every strict prefix of a frame is incomplete
func TestDecodeFrameIncomplete(t *testing.T) {
	frame := EncodeFrame([]byte(`{"uuid":"abc123","content":{"x":1}}`))

	for i := 0; i < len(frame); i++ {
		_, rest, err := DecodeFrame(frame[:i], 0)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("DecodeFrame(prefix %d) error = %v, want io.ErrUnexpectedEOF", i, err)
		}
		if len(rest) != i {
			t.Fatalf("DecodeFrame(prefix %d) must not consume bytes", i)
		}
	}
}

// TestDecodeFrameRest tests that bytes after the first frame are returned
func TestDecodeFrameRest(t *testing.T) {
	payload, rest, err := DecodeFrame([]byte(`3:abc2:de`), 0)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if string(payload) != "abc" || string(rest) != "2:de" {
		t.Errorf("DecodeFrame() = %q, %q", payload, rest)
	}
}

// TestDecodeFrameInvalidHeader tests the rejection of malformed headers
func TestDecodeFrameInvalidHeader(t *testing.T) {
	invalid := []string{
		`:{}`,
		`a:{}`,
		`-1:{}`,
		`+2:{}`,
		` 2:{}`,
		`12345678901234567890:{}`,
		`99999999999999999999`, // no separator within the longest header
		`12x`,
	}

	for _, frame := range invalid {
		if _, _, err := DecodeFrame([]byte(frame), 0); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("DecodeFrame(%q) error = %v, want ErrInvalidHeader", frame, err)
		}
	}
}

// TestDecodeFrameLimit tests the optional frame size limit
func TestDecodeFrameLimit(t *testing.T) {
	frame := EncodeFrame([]byte(strings.Repeat("x", 11)))

	if _, _, err := DecodeFrame(frame, 10); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("DecodeFrame error = %v, want ErrFrameTooLarge", err)
	}
	if _, _, err := DecodeFrame(frame, 11); err != nil {
		t.Errorf("DecodeFrame at the limit failed: %v", err)
	}
}

// TestDecodeMessage tests payload decoding for all serializers
func TestDecodeMessage(t *testing.T) {
	for name, s := range map[string]serializer.IRPCSerializer{
		"JSON":     serializer.NewJSONSerializer(),
		"JSONIter": serializer.NewJSONIterSerializer(),
	} {
		t.Run(name, func(t *testing.T) {
			msg, err := decodeMessage(s, []byte(`{"uuid":"abc123","content":{ "x" : 1 }}`))
			if err != nil {
				t.Fatalf("decodeMessage failed: %v", err)
			}
			if msg.UUID != "abc123" || string(msg.Content) != `{"x":1}` {
				t.Errorf("decodeMessage() = %s %s, want abc123 {\"x\":1}", msg.UUID, msg.Content)
			}

			msg, err = decodeMessage(s, []byte(` {"uuid":"a"}`))
			if err != nil {
				t.Fatalf("decodeMessage without content failed: %v", err)
			}
			if string(msg.Content) != "null" {
				t.Errorf("Missing content = %s, want null", msg.Content)
			}

			for _, payload := range []string{``, `hello`, `[1]`, `"s"`, `{"uuid":1}`, `{"uuid":"a"`} {
				if _, err := decodeMessage(s, []byte(payload)); !errors.Is(err, ErrInvalidPayload) {
					t.Errorf("decodeMessage(%q) error = %v, want ErrInvalidPayload", payload, err)
				}
			}
		})
	}
}
