package channels

import (
	"context"
	"testing"

	"github.com/byOdysea/laserfocus-host/internal/llm"
)

func TestNewConsole_RequiresOrchestrator(t *testing.T) {
	if _, err := NewConsole(nil); err == nil {
		t.Fatalf("expected error for nil orchestrator")
	}
}

func TestConsoleDispatch_ExitCommands(t *testing.T) {
	orch := &fakeOrchestrator{}
	console, err := NewConsole(orch)
	if err != nil {
		t.Fatalf("new console: %v", err)
	}

	for _, cmd := range []string{"exit", "quit", "/quit"} {
		if !console.dispatch(context.Background(), "s", cmd) {
			t.Fatalf("expected %q to end the session", cmd)
		}
	}
	if inputs, _ := orch.received(); len(inputs) != 0 {
		t.Fatalf("expected no turns for exit commands, got %v", inputs)
	}
}

func TestConsoleDispatch_SkipsBlankInput(t *testing.T) {
	orch := &fakeOrchestrator{}
	console, err := NewConsole(orch)
	if err != nil {
		t.Fatalf("new console: %v", err)
	}

	if console.dispatch(context.Background(), "s", "   ") {
		t.Fatalf("expected blank input to continue the session")
	}
	if inputs, _ := orch.received(); len(inputs) != 0 {
		t.Fatalf("expected no turn for blank input, got %v", inputs)
	}
}

func TestConsoleDispatch_RunsTurn(t *testing.T) {
	orch := &fakeOrchestrator{parts: []llm.Part{llm.EndOfTurn{}}}
	console, err := NewConsole(orch)
	if err != nil {
		t.Fatalf("new console: %v", err)
	}

	if console.dispatch(context.Background(), "s", "hello") {
		t.Fatalf("expected session to continue after a turn")
	}
	inputs, _ := orch.received()
	if len(inputs) != 1 || inputs[0] != "hello" {
		t.Fatalf("expected one turn with input, got %v", inputs)
	}
}
