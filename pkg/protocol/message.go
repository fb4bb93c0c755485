// Package protocol defines the WebSocket message types exchanged between
// the browser client and the analysis server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeStart MessageType = "start" // Begin an interview session
	TypeFrame MessageType = "frame" // Video frame
	TypeAudio MessageType = "audio" // Microphone audio
	TypeWord  MessageType = "word"  // Live transcript word
	TypeStop  MessageType = "stop"  // End the session, request the report

	// Server → Client messages
	TypeStatus MessageType = "status" // Per-tick detection status
	TypeReport MessageType = "report" // Final comprehensive score report
	TypeError  MessageType = "error"  // Session-level error

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// StartData configures a new interview session
type StartData struct {
	Difficulty      string `json:"difficulty"`       // "easy", "medium", "hard"
	Experience      string `json:"experience"`       // "entry", "mid", "senior"
	QuestionCount   int    `json:"question_count"`
	PlannedDuration int    `json:"planned_duration"` // seconds
}

// FrameData contains a video frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg", "rgba"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// AudioData contains microphone audio
type AudioData struct {
	Format     string `json:"format"`      // "pcm16", "opus"
	SampleRate int    `json:"sample_rate"` // e.g., 48000
	Channels   int    `json:"channels"`    // 1 for mono
	Data       string `json:"data"`        // base64 encoded
}

// WordData contains one live transcript word
type WordData struct {
	Word     string `json:"word"`
	OffsetMs int64  `json:"offset_ms"` // from session start
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// StatusData contains the per-tick detection status
type StatusData struct {
	FaceFound  bool    `json:"face_found"`
	OutOfFrame bool    `json:"out_of_frame"`
	Fallback   bool    `json:"fallback"` // static heuristic region in use
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	EyeContact float64 `json:"eye_contact"` // 0-100
	Tick       uint64  `json:"tick"`
}

// ReportData wraps the final report. The payload is the scoring report
// plus the validation result, marshaled by the session layer.
type ReportData struct {
	SessionID   string          `json:"session_id"`
	Report      json.RawMessage `json:"report"`
	Valid       bool            `json:"valid"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	CappedScore int             `json:"capped_score"`
}

// ErrorData describes a session-level failure
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
