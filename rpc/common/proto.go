package common

import (
	"encoding/json"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the payload of a single frame, used for both requests and responses.
// UUID correlates a response with the request that caused it, Content carries
// arbitrary JSON.
type Message struct {
	UUID    string          `json:"uuid"`
	Content json.RawMessage `json:"content"`
}

// NewMessage creates a new message
func NewMessage(uuid string, content json.RawMessage) *Message {
	return &Message{
		UUID:    uuid,
		Content: content,
	}
}

// --------------------------------------------------------------------------
// Transport Statistics
// --------------------------------------------------------------------------

// TransportStats is a snapshot of the counters of one transport
type TransportStats struct {
	FramesReceived   int64   `json:"frames_received"`
	FramesDispatched int64   `json:"frames_dispatched"`
	FramesDropped    int64   `json:"frames_dropped"`
	FramesWritten    int64   `json:"frames_written"`
	BytesRead        int64   `json:"bytes_read"`
	BytesWritten     int64   `json:"bytes_written"`
	Pending          int     `json:"pending"`
	MeanFrameBytes   float64 `json:"mean_frame_bytes"`
	P99FrameBytes    float64 `json:"p99_frame_bytes"`
}
