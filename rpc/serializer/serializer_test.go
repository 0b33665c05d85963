package serializer

import (
	"bytes"
	"encoding/json"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":     NewJSONSerializer,
	"JSONIter": NewJSONIterSerializer,
}

// testMessages creates a set of test messages with different content types
func testMessages() []common.Message {
	return []common.Message{
		// Object content
		{UUID: "abc123", Content: json.RawMessage(`{"x":1}`)},

		// Array content
		{UUID: "0f1e2d3c4b5a69788796a5b4c3d2e1f0", Content: json.RawMessage(`[1,2,3]`)},

		// Scalar contents
		{UUID: "s", Content: json.RawMessage(`"hello"`)},
		{UUID: "n", Content: json.RawMessage(`42.5`)},
		{UUID: "b", Content: json.RawMessage(`true`)},

		// Nested content with unicode
		{UUID: "nested", Content: json.RawMessage(`{"a":{"b":["ü","€",null]},"c":""}`)},

		// Empty id is allowed by the codec
		{UUID: "", Content: json.RawMessage(`{}`)},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %s %s\nResult: %s %s",
						i, msg.UUID, msg.Content, result.UUID, result.Content)
				}
			}
		})
	}
}

// TestSerializersAgree tests that all implementations produce the same bytes
func TestSerializersAgree(t *testing.T) {
	reference := NewJSONSerializer()

	for name, factory := range testSerializers {
		serializer := factory()
		for i, msg := range testMessages() {
			want, err := reference.Serialize(msg)
			if err != nil {
				t.Fatalf("Reference serializer failed on message %d: %v", i, err)
			}
			got, err := serializer.Serialize(msg)
			if err != nil {
				t.Errorf("%s failed to serialize message %d: %v", name, i, err)
				continue
			}
			if !bytes.Equal(want, got) {
				t.Errorf("%s produced %s, want %s", name, got, want)
			}
		}
	}
}

// TestMarshalContent tests encoding of plain content values
func TestMarshalContent(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Marshal(map[string]int{"a": 1})
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != `{"a":1}` {
				t.Errorf("Marshal() = %s, want {\"a\":1}", data)
			}

			data, err = serializer.Marshal(map[string]any{"b": []int{1}, "a": "x"})
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != `{"a":"x","b":[1]}` {
				t.Errorf("Map keys must be sorted, got %s", data)
			}
		})
	}
}

// TestDeserializeInvalid tests that malformed payloads are rejected
func TestDeserializeInvalid(t *testing.T) {
	invalid := []string{
		`{"uuid":"a","content":`,
		`not json`,
		`{"uuid":5,"content":{}}`,
		`[1,2,3]`,
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			for _, payload := range invalid {
				var msg common.Message
				if err := serializer.Deserialize([]byte(payload), &msg); err == nil {
					t.Errorf("Deserialize(%s) should fail", payload)
				}
			}
		})
	}
}
