// Package serializer provides the JSON codec used by the unix domain socket
// transports. Every frame on the wire carries a JSON object with a "uuid" and
// a "content" field; the serializer turns that object into a common.Message
// and back, and encodes arbitrary content values.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: Implementation using Go's encoding/json.
//
//   - jsonIterSerializerImpl: Implementation using json-iterator in its
//     standard library compatible configuration. It produces the same bytes as
//     encoding/json and is faster for large payloads.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewJSONSerializer()
//	data, err := s.Serialize(common.Message{UUID: id, Content: content})
//	// ... send data ...
//	var msg common.Message
//	err = s.Deserialize(receivedData, &msg)
package serializer
