// Package orchestrator drives one conversation turn at a time: it folds user
// input into session history, streams model responses, executes tool-call
// intents through the coordinator, and re-prompts until the model finishes
// without asking for a tool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/byOdysea/laserfocus-host/internal/coordinator"
	"github.com/byOdysea/laserfocus-host/internal/llm"
	"github.com/byOdysea/laserfocus-host/internal/logging"
	"github.com/byOdysea/laserfocus-host/internal/session"
)

// ToolRunner is the coordinator surface the turn loop needs.
type ToolRunner interface {
	ToolDefinitions() []llm.ToolDefinition
	CallTool(ctx context.Context, qualifiedName string, args map[string]any) (any, error)
}

// Orchestrator owns the per-session turn loop.
type Orchestrator struct {
	service  *llm.Service
	tools    ToolRunner
	sessions *session.Store
}

// New creates an orchestrator around a model service, a tool runner, and a
// session store.
func New(service *llm.Service, tools ToolRunner, sessions *session.Store) (*Orchestrator, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	if tools == nil {
		return nil, errors.New("tool runner is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	return &Orchestrator{service: service, tools: tools, sessions: sessions}, nil
}

// HandleInput runs one full turn for the given session and returns the
// ordered part stream. The stream always terminates with exactly one
// EndOfTurn, whatever went wrong inside the turn; errors along the way
// surface as ErrorInfo parts. Turns for the same session id are serialized.
func (o *Orchestrator) HandleInput(ctx context.Context, sessionID, text string, cfg llm.Config) <-chan llm.Part {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make(chan llm.Part)

	go func() {
		defer close(out)

		emit := func(p llm.Part) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		defer func() {
			if r := recover(); r != nil {
				logging.Logger().Error("turn loop panicked", "session", sessionID, "panic", r)
				emit(llm.ErrorInfo{Message: "internal error while handling input"})
			}
			emit(llm.EndOfTurn{})
		}()

		sess := o.sessions.Get(sessionID)
		sess.BeginTurn()
		defer sess.EndTurn()

		sess.Append(llm.ChatMessage{Role: llm.RoleUser, Content: text})
		o.runTurn(ctx, sess, cfg, emit)
	}()

	return out
}

// runTurn loops model calls until one completes without a tool-call intent.
// Each intent is executed and folded into history as a tool message before
// the next model call, so the model always sees a result for every intent it
// produced.
func (o *Orchestrator) runTurn(ctx context.Context, sess *session.Session, cfg llm.Config, emit func(llm.Part) bool) {
	for ctx.Err() == nil {
		streamCtx, cancelStream := context.WithCancel(ctx)
		parts := o.service.GenerateResponse(streamCtx, sess.Snapshot(), o.tools.ToolDefinitions(), cfg)

		var pending strings.Builder
		var intent *llm.ToolCallIntent

		for part := range parts {
			switch p := part.(type) {
			case llm.TextChunk:
				// Forwarded immediately; the assistant message is assembled
				// from the accumulated buffer when the stream settles.
				pending.WriteString(p.Content)
				if !emit(p) {
					cancelStream()
					return
				}
			case llm.ToolCallIntent:
				intent = &p
			case llm.ErrorInfo:
				if !emit(p) {
					cancelStream()
					return
				}
			case llm.EndOfTurn:
				// Turn termination is owned here, never by the stream.
			default:
				if !emit(llm.ErrorInfo{Message: fmt.Sprintf("unrecognized response part %T", part)}) {
					cancelStream()
					return
				}
			}
			if intent != nil {
				break
			}
		}
		cancelStream()
		for range parts {
			// Drain whatever the interpreter produced after the intent.
		}

		if pending.Len() > 0 {
			sess.Append(llm.ChatMessage{Role: llm.RoleAssistant, Content: pending.String()})
		}
		if intent == nil {
			return
		}
		if !emit(*intent) {
			return
		}
		o.executeTool(ctx, sess, *intent)
	}
}

// executeTool runs one intent and appends exactly one tool message, carrying
// either the result or a structured error payload the model can react to.
func (o *Orchestrator) executeTool(ctx context.Context, sess *session.Session, intent llm.ToolCallIntent) {
	result, err := o.tools.CallTool(ctx, intent.ToolName, intent.Arguments)
	if err != nil {
		sess.Append(llm.ChatMessage{
			Role:     llm.RoleTool,
			ToolName: intent.ToolName,
			Data: map[string]any{
				"error":   "Tool execution failed: " + failureKind(err),
				"message": err.Error(),
			},
		})
		return
	}
	sess.Append(llm.ChatMessage{
		Role:     llm.RoleTool,
		ToolName: intent.ToolName,
		Data:     result,
	})
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrToolNotFound):
		return "ToolNotFound"
	case errors.Is(err, coordinator.ErrCircuitOpen):
		return "CircuitOpen"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	default:
		return "ProviderError"
	}
}
