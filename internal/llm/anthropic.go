package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/byOdysea/laserfocus-host/internal/config"
)

type anthropicAdapter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int
}

func newAnthropicAdapter(cfg config.LLMProviderConfig) (Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &anthropicAdapter{
		client:    client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: normalizeMaxTokens(cfg.MaxTokens),
	}, nil
}

// Stream sends the compiled prompt and history to Anthropic and forwards
// text deltas as they arrive. Tool calling happens through delimited
// directives in the prose, so only text content is consumed here.
func (a *anthropicAdapter) Stream(ctx context.Context, req StreamRequest) (<-chan string, <-chan error) {
	text := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(text)
		defer close(errc)

		stream := a.client.Messages.NewStreaming(ctx, a.buildParams(req))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					select {
					case text <- deltaVariant.Text:
					case <-ctx.Done():
						errc <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errc <- fmt.Errorf("anthropic stream: %w", err)
		}
	}()

	return text, errc
}

func (a *anthropicAdapter) buildParams(req StreamRequest) anthropic.MessageNewParams {
	model := a.model
	if req.Config.Model != "" {
		model = anthropic.Model(req.Config.Model)
	}
	maxTokens := a.maxTokens
	if req.Config.MaxOutputTokens != nil && *req.Config.MaxOutputTokens > 0 {
		maxTokens = *req.Config.MaxOutputTokens
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(req.History),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Config.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Config.Temperature)
	}
	return params
}

// toAnthropicMessages converts provider-agnostic history into Anthropic
// message params. Tool results are presented as user messages carrying a
// labeled payload, since tool invocation runs over the directive protocol
// rather than native tool blocks.
func toAnthropicMessages(messages []ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			if msg.Content == "" {
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			if msg.Content == "" {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(formatToolResult(msg))))
		}
	}
	return out
}

func formatToolResult(msg ChatMessage) string {
	label := "Tool Result:"
	if msg.ToolName != "" {
		label = fmt.Sprintf("Result for tool '%s':", msg.ToolName)
	}

	var payload string
	switch data := msg.Data.(type) {
	case nil:
		payload = msg.Content
	case string:
		payload = data
	default:
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			payload = fmt.Sprintf("%v", data)
		} else {
			payload = string(encoded)
		}
	}
	return label + "\n" + payload
}

func normalizeMaxTokens(maxTokens int) int {
	if maxTokens <= 0 {
		return 8192
	}
	return maxTokens
}
