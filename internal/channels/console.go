// Package channels connects callers to the conversation loop: an
// interactive console for a terminal user and a line-delimited JSON
// listener for programmatic clients.
package channels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/byOdysea/laserfocus-host/internal/llm"
)

// Orchestrator is the conversation surface a channel drives.
type Orchestrator interface {
	HandleInput(ctx context.Context, sessionID, text string, cfg llm.Config) <-chan llm.Part
}

// Console is the interactive stdin/stdout channel. One process run is one
// session.
type Console struct {
	orch Orchestrator
}

// NewConsole creates the console channel.
func NewConsole(orch Orchestrator) (*Console, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	return &Console{orch: orch}, nil
}

// Run reads user input until EOF, interrupt, or an exit command, printing
// each turn's parts as they arrive. When stdin is not a terminal it falls
// back to plain line reading so piped input works.
func (c *Console) Run(ctx context.Context) error {
	sessionID := uuid.NewString()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return c.runPiped(ctx, sessionID)
	}

	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if done := c.dispatch(ctx, sessionID, line); done {
			return nil
		}
	}
	return ctx.Err()
}

func (c *Console) runPiped(ctx context.Context, sessionID string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if done := c.dispatch(ctx, sessionID, scanner.Text()); done {
			return nil
		}
	}
	return scanner.Err()
}

// dispatch runs one turn for a line of input. Returns true when the user
// asked to leave.
func (c *Console) dispatch(ctx context.Context, sessionID, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line {
	case "exit", "quit", "/quit":
		return true
	}

	for part := range c.orch.HandleInput(ctx, sessionID, line, llm.Config{}) {
		switch p := part.(type) {
		case llm.TextChunk:
			fmt.Print(p.Content)
		case llm.ToolCallIntent:
			fmt.Printf("\n[calling %s]\n", p.ToolName)
		case llm.ErrorInfo:
			fmt.Printf("\n[error] %s\n", p.Message)
		case llm.EndOfTurn:
			fmt.Println()
		}
	}
	return false
}
