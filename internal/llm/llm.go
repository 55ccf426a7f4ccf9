// Package llm defines the provider-agnostic model contract: chat history
// types, the streaming Adapter interface, per-call configuration, and the
// response-part union produced by the stream interpreter.
package llm

import "context"

// Role is the author role for a chat message.
type Role string

const (
	// RoleUser is a user-authored message.
	RoleUser Role = "user"
	// RoleAssistant is an assistant-authored message.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool-result message addressed to the model.
	RoleTool Role = "tool"
)

// ChatMessage is a single message in model conversation history.
// Messages are immutable once appended to a session.
type ChatMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content,omitempty"`
	Data     any    `json:"data,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
}

// ToolDefinition describes one callable tool exposed to the model.
// It is a read-only projection of the coordinator's registry state.
type ToolDefinition struct {
	QualifiedName string         `json:"qualified_name"`
	ProviderID    string         `json:"provider_id"`
	Description   string         `json:"description"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// Config carries per-call overrides for one model request.
// Nil fields fall back to adapter defaults.
type Config struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// StreamRequest is the adapter input for one streamed generation.
type StreamRequest struct {
	SystemPrompt string
	History      []ChatMessage
	Config       Config
}

// Adapter streams raw text fragments from a concrete model backend.
// The text channel is closed when the stream ends; a terminal failure is
// delivered on the error channel, which is closed afterwards.
type Adapter interface {
	Stream(ctx context.Context, req StreamRequest) (<-chan string, <-chan error)
}
