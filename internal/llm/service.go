package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/byOdysea/laserfocus-host/internal/logging"
)

// Service compiles prompts for a model adapter and interprets its raw text
// stream into typed response parts.
type Service struct {
	adapter    Adapter
	basePrompt string
}

// NewService creates a Service around one adapter.
func NewService(adapter Adapter, basePrompt string) (*Service, error) {
	if adapter == nil {
		return nil, errors.New("adapter is required")
	}
	return &Service{adapter: adapter, basePrompt: basePrompt}, nil
}

// GenerateResponse requests one streamed model response for the given history
// and interprets it into parts. The returned channel is closed when the
// stream is fully consumed or ctx is cancelled; adapter failures surface as
// ErrorInfo parts, never as a panic or a dropped stream.
func (s *Service) GenerateResponse(
	ctx context.Context,
	history []ChatMessage,
	tools []ToolDefinition,
	cfg Config,
) <-chan Part {
	out := make(chan Part)

	go func() {
		defer close(out)

		emit := func(p Part) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		text, errc := s.adapter.Stream(ctx, StreamRequest{
			SystemPrompt: s.compileSystemPrompt(tools),
			History:      history,
			Config:       cfg,
		})

		in := &interpreter{emit: emit}
		for chunk := range text {
			if !in.feed(chunk) {
				return
			}
		}
		if !in.finish() {
			return
		}
		if err := <-errc; err != nil {
			logging.Logger().Warn("model stream failed", "err", err)
			emit(ErrorInfo{Message: fmt.Sprintf("error receiving data from model adapter: %v", err)})
		}
	}()

	return out
}

// compileSystemPrompt combines the base prompt with tool usage rules and the
// declarations of every available tool.
func (s *Service) compileSystemPrompt(tools []ToolDefinition) string {
	var b strings.Builder
	b.WriteString(s.basePrompt)
	b.WriteString("\n\n--- Tool Usage Instructions ---\n")

	if len(tools) == 0 {
		b.WriteString("No tools are available for you to use.\n")
	} else {
		b.WriteString("When you decide to use a tool to answer a request:\n")
		b.WriteString("1. First, briefly tell the user what action you are taking.\n")
		b.WriteString("2. Then, on a new line, provide the tool call JSON object, enclosed exactly like this, ")
		b.WriteString("with no other text on the same line or within the delimiters:\n")
		b.WriteString(toolStartDelimiter)
		b.WriteString(`{ "tool": "provider_id:tool_name", "arguments": { } }`)
		b.WriteString(toolEndDelimiter)
		b.WriteString("\nAfter you receive the result from the tool, summarize it for the user.\n")
		b.WriteString("\n--- Available Tools ---\n")

		for _, tool := range tools {
			fmt.Fprintf(&b, "\nTool Name: %s\n", tool.QualifiedName)
			description := tool.Description
			if description == "" {
				description = "No description available."
			}
			fmt.Fprintf(&b, "  Description: %s\n", description)

			params := cleanParameterSchema(tool.Parameters)
			if len(params) == 0 {
				b.WriteString("  Parameters Schema: None\n")
				continue
			}
			encoded, err := json.MarshalIndent(params, "  ", "  ")
			if err != nil {
				fmt.Fprintf(&b, "  Parameters Schema: %v\n", params)
				continue
			}
			fmt.Fprintf(&b, "  Parameters Schema (JSON):\n  %s\n", encoded)
		}
	}

	b.WriteString("\n--- Conversation ---")
	return b.String()
}

// cleanParameterSchema deep-copies a tool input schema and strips keys that
// confuse model-side function declarations.
func cleanParameterSchema(schema map[string]any) map[string]any {
	if len(schema) == 0 {
		return nil
	}

	encoded, err := json.Marshal(schema)
	if err != nil {
		return schema
	}
	var clean map[string]any
	if err := json.Unmarshal(encoded, &clean); err != nil {
		return schema
	}

	delete(clean, "additionalProperties")
	delete(clean, "$schema")
	if props, ok := clean["properties"].(map[string]any); ok {
		for _, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				delete(propMap, "additionalProperties")
				delete(propMap, "$schema")
			}
		}
	}
	return clean
}
