// Package wire defines the JSON envelope exchanged with remote callers:
// every frame is {"type": ..., "payload": ...}.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/byOdysea/laserfocus-host/internal/llm"
)

// Envelope types.
const (
	TypeText       = "text"
	TypeToolCall   = "tool_call"
	TypeError      = "error"
	TypeEnd        = "end"
	TypeConnection = "connection"
	TypeMessage    = "message"
)

// Envelope is one wire frame.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// TextPayload carries one prose fragment.
type TextPayload struct {
	Content string `json:"content"`
}

// ToolCallPayload announces a tool invocation the host is about to perform.
type ToolCallPayload struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ErrorPayload carries a recoverable error surfaced to the caller.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ConnectionPayload greets a new connection with its session id.
type ConnectionPayload struct {
	SessionID string `json:"session_id"`
}

// MessagePayload is the inbound user-input frame. The config fields are
// optional per-turn model overrides.
type MessagePayload struct {
	Text            string   `json:"text"`
	Model           string   `json:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}

// Config converts the inbound overrides into a per-call model config.
func (m MessagePayload) Config() llm.Config {
	return llm.Config{
		Model:           m.Model,
		Temperature:     m.Temperature,
		MaxOutputTokens: m.MaxOutputTokens,
	}
}

// FromPart maps a response part onto its wire envelope.
func FromPart(part llm.Part) Envelope {
	switch p := part.(type) {
	case llm.TextChunk:
		return Envelope{Type: TypeText, Payload: TextPayload{Content: p.Content}}
	case llm.ToolCallIntent:
		return Envelope{Type: TypeToolCall, Payload: ToolCallPayload{ToolName: p.ToolName, Arguments: p.Arguments}}
	case llm.ErrorInfo:
		return Envelope{Type: TypeError, Payload: ErrorPayload{Message: p.Message, Details: p.Details}}
	case llm.EndOfTurn:
		return Envelope{Type: TypeEnd}
	default:
		return Envelope{Type: TypeError, Payload: ErrorPayload{Message: fmt.Sprintf("unrecognized response part %T", part)}}
	}
}

// Connection builds the greeting envelope for a fresh connection.
func Connection(sessionID string) Envelope {
	return Envelope{Type: TypeConnection, Payload: ConnectionPayload{SessionID: sessionID}}
}

// Error builds an error envelope from a plain message.
func Error(message string) Envelope {
	return Envelope{Type: TypeError, Payload: ErrorPayload{Message: message}}
}

// DecodeMessage parses one inbound frame, requiring a "message" envelope
// with non-empty text.
func DecodeMessage(data []byte) (MessagePayload, error) {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return MessagePayload{}, fmt.Errorf("parse envelope: %w", err)
	}
	if frame.Type != TypeMessage {
		return MessagePayload{}, fmt.Errorf("unexpected envelope type %q", frame.Type)
	}

	var msg MessagePayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			return MessagePayload{}, fmt.Errorf("parse message payload: %w", err)
		}
	}
	if msg.Text == "" {
		return MessagePayload{}, fmt.Errorf("message text is required")
	}
	return msg, nil
}
