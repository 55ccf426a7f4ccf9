package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolInfo is one discovered tool as reported by a provider.
type toolInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// providerSession is the per-connection protocol surface the coordinator
// needs: list tools, invoke one, close. The stdio implementation wraps the
// MCP SDK client session.
type providerSession interface {
	ListTools(ctx context.Context) ([]toolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Close() error
}

// connectProvider is overridden in tests to stub provider connections.
var connectProvider = connectStdio

// connectStdio launches the provider process and performs the MCP initialize
// exchange over its stdio transport. The process lifetime is tied to ctx, so
// cancelling the supervision context tears the subprocess down.
func connectStdio(ctx context.Context, cfg ProviderConfig) (providerSession, error) {
	argv, err := cfg.CommandLine()
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- argv originates from the operator-owned providers file.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for key, value := range cfg.Env {
			env = append(env, key+"="+value)
		}
		cmd.Env = env
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "laserfocus-host", Version: "dev"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect provider %s: %w", cfg.ID, err)
	}
	return &mcpSession{session: session}, nil
}

type mcpSession struct {
	session *mcp.ClientSession
}

func (s *mcpSession) ListTools(ctx context.Context) ([]toolInfo, error) {
	var tools []toolInfo
	for tool, err := range s.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}
		tools = append(tools, toolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaToMap(tool.InputSchema),
		})
	}
	return tools, nil
}

func (s *mcpSession) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("provider reported tool error: %s", collectText(result))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	return collectText(result), nil
}

func (s *mcpSession) Close() error {
	return s.session.Close()
}

func collectText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// schemaToMap flattens the SDK's schema type into the JSON-schema-like map
// carried by tool definitions.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil
	}
	return out
}
