// ABOUTME: Remote control message type definitions
// ABOUTME: JSON envelope and payloads exchanged between mixerctl and the mixer
package remote

import (
	"encoding/json"
	"fmt"
)

const (
	// ProtocolVersion is sent in both hello messages
	ProtocolVersion = 1

	DefaultPath = "/control"
)

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypePlay        = "mixer/play"
	TypeStop        = "mixer/stop"
	TypeVolume      = "mixer/volume"
	TypeListener    = "mixer/listener"
	TypeStatus      = "mixer/status"

	TypePlayed = "server/played"
	TypeOK     = "server/ok"
	TypeReport = "server/status"
	TypeError  = "server/error"
)

// Error codes
const (
	CodeBadRequest  = "bad_request"
	CodeUnknownType = "unknown_type"
	CodeNotFound    = "not_found"
	CodeFailed      = "failed"
)

// Message is the top-level wrapper for all messages.
// Responses carry the ID of the request they answer.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message
func NewMessage(msgType, id string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode %s: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", m.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the mixer's response to client/hello
type ServerHello struct {
	ServerID   string `json:"server_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	Backend    string `json:"backend"`
	SampleRate int    `json:"sample_rate"`
}

// Loop is a loop region in seconds; end 0 is the end of the sound
type Loop struct {
	Start float64 `json:"start"`
	End   float64 `json:"end,omitempty"`
}

// PlayRequest starts a file on the main track
type PlayRequest struct {
	File      string  `json:"file"`
	Streaming bool    `json:"streaming,omitempty"`
	VolumeDB  float64 `json:"volume_db,omitempty"`
	Start     float64 `json:"start,omitempty"`
	Loop      *Loop   `json:"loop,omitempty"`
	FadeInMs  int     `json:"fade_in_ms,omitempty"`
}

// Played answers a play request
type Played struct {
	SoundID  string  `json:"sound_id"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

// StopRequest stops one sound, or every sound when SoundID is empty
type StopRequest struct {
	SoundID string `json:"sound_id,omitempty"`
	FadeMs  int    `json:"fade_ms,omitempty"`
}

// VolumeRequest changes a sound's volume, or the main track's when SoundID is empty
type VolumeRequest struct {
	SoundID  string  `json:"sound_id,omitempty"`
	VolumeDB float64 `json:"volume_db"`
	FadeMs   int     `json:"fade_ms,omitempty"`
}

// ListenerRequest moves the listener. Yaw is in degrees.
type ListenerRequest struct {
	Position [3]float64 `json:"position"`
	Yaw      float64    `json:"yaw"`
	FadeMs   int        `json:"fade_ms,omitempty"`
}

// SoundStatus describes one sound
type SoundStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
	State     string  `json:"state"`
	Streaming bool    `json:"streaming,omitempty"`
	Error     bool    `json:"error,omitempty"`
}

// Status is the mixer state report
type Status struct {
	Backend     string        `json:"backend"`
	Device      string        `json:"device,omitempty"`
	SampleRate  int           `json:"sample_rate"`
	StreamState string        `json:"stream_state"`
	Restarts    int           `json:"restarts"`
	VolumeDB    float64       `json:"volume_db"`
	Sounds      []SoundStatus `json:"sounds"`
}

// ErrorPayload reports a failed request
type ErrorPayload struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}
