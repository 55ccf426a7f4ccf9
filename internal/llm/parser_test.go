package llm

import (
	"fmt"
	"reflect"
	"testing"
)

// runInterpreter feeds the fragments through a fresh interpreter and returns
// every emitted part.
func runInterpreter(t *testing.T, fragments ...string) []Part {
	t.Helper()

	var parts []Part
	in := &interpreter{emit: func(p Part) bool {
		parts = append(parts, p)
		return true
	}}
	for _, fragment := range fragments {
		if !in.feed(fragment) {
			t.Fatalf("feed stopped unexpectedly")
		}
	}
	if !in.finish() {
		t.Fatalf("finish stopped unexpectedly")
	}
	return parts
}

// coalesceText merges adjacent text chunks so assertions are independent of
// how the input was fragmented.
func coalesceText(parts []Part) []Part {
	var out []Part
	for _, part := range parts {
		text, ok := part.(TextChunk)
		if !ok {
			out = append(out, part)
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(TextChunk); ok {
				out[len(out)-1] = TextChunk{Content: prev.Content + text.Content}
				continue
			}
		}
		out = append(out, text)
	}
	return out
}

func TestInterpreter_ProseOnly(t *testing.T) {
	parts := coalesceText(runInterpreter(t, "Hello, ", "world."))

	want := []Part{TextChunk{Content: "Hello, world."}}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected %v, got %v", want, parts)
	}
}

func TestInterpreter_DirectiveSurroundedByProse(t *testing.T) {
	response := "Let me add those.\n" +
		"```tool\n{\"tool\": \"calc:add\", \"arguments\": {\"a\": 2, \"b\": 2}}\n```" +
		"\nOne moment."

	parts := coalesceText(runInterpreter(t, response))

	want := []Part{
		TextChunk{Content: "Let me add those.\n"},
		ToolCallIntent{ToolName: "calc:add", Arguments: map[string]any{"a": float64(2), "b": float64(2)}},
		TextChunk{Content: "\nOne moment."},
	}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected %v, got %v", want, parts)
	}
}

func TestInterpreter_ChunkingInvariance(t *testing.T) {
	response := "Adding now.\n" +
		"```tool\n{\"tool\": \"calc:add\", \"arguments\": {\"a\": 2, \"b\": 2}}\n```" +
		"\ndone"
	want := []Part{
		TextChunk{Content: "Adding now.\n"},
		ToolCallIntent{ToolName: "calc:add", Arguments: map[string]any{"a": float64(2), "b": float64(2)}},
		TextChunk{Content: "\ndone"},
	}

	for size := 1; size <= len(response); size++ {
		t.Run(fmt.Sprintf("fragment_size_%d", size), func(t *testing.T) {
			var fragments []string
			for i := 0; i < len(response); i += size {
				end := i + size
				if end > len(response) {
					end = len(response)
				}
				fragments = append(fragments, response[i:end])
			}

			parts := coalesceText(runInterpreter(t, fragments...))
			if !reflect.DeepEqual(parts, want) {
				t.Fatalf("size %d: expected %v, got %v", size, want, parts)
			}
		})
	}
}

func TestInterpreter_MultipleDirectivesInOneFragment(t *testing.T) {
	response := "```tool\n{\"tool\": \"a:one\", \"arguments\": {}}\n```" +
		" and " +
		"```tool\n{\"tool\": \"b:two\", \"arguments\": {}}\n```"

	parts := coalesceText(runInterpreter(t, response))

	want := []Part{
		ToolCallIntent{ToolName: "a:one", Arguments: map[string]any{}},
		TextChunk{Content: " and "},
		ToolCallIntent{ToolName: "b:two", Arguments: map[string]any{}},
	}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected %v, got %v", want, parts)
	}
}

func TestInterpreter_MalformedDirectiveJSON(t *testing.T) {
	response := "before```tool\n{not json}\n```after"

	parts := coalesceText(runInterpreter(t, response))

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %v", len(parts), parts)
	}
	if got := parts[0].(TextChunk).Content; got != "before" {
		t.Fatalf("expected leading prose %q, got %q", "before", got)
	}
	if _, ok := parts[1].(ErrorInfo); !ok {
		t.Fatalf("expected ErrorInfo for malformed directive, got %T", parts[1])
	}
	if got := parts[2].(TextChunk).Content; got != "after" {
		t.Fatalf("expected trailing prose %q, got %q", "after", got)
	}
}

func TestInterpreter_DirectiveMissingRequiredKeys(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "no_arguments", content: `{"tool": "calc:add"}`},
		{name: "no_tool", content: `{"arguments": {}}`},
		{name: "tool_not_string", content: `{"tool": 7, "arguments": {}}`},
		{name: "tool_empty", content: `{"tool": "", "arguments": {}}`},
		{name: "arguments_not_object", content: `{"tool": "calc:add", "arguments": [1]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parts := runInterpreter(t, "```tool\n"+tc.content+"\n```")
			if len(parts) != 1 {
				t.Fatalf("expected 1 part, got %d: %v", len(parts), parts)
			}
			if _, ok := parts[0].(ErrorInfo); !ok {
				t.Fatalf("expected ErrorInfo, got %T", parts[0])
			}
		})
	}
}

func TestInterpreter_NullArgumentsBecomesEmptyMap(t *testing.T) {
	parts := runInterpreter(t, "```tool\n{\"tool\": \"calc:add\", \"arguments\": null}\n```")

	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d: %v", len(parts), parts)
	}
	intent, ok := parts[0].(ToolCallIntent)
	if !ok {
		t.Fatalf("expected ToolCallIntent, got %T", parts[0])
	}
	if intent.Arguments == nil || len(intent.Arguments) != 0 {
		t.Fatalf("expected empty arguments map, got %v", intent.Arguments)
	}
}

func TestInterpreter_UnterminatedDirectiveFlushedAtStreamEnd(t *testing.T) {
	response := "prose ```tool\n{\"tool\": \"calc:add\""

	parts := coalesceText(runInterpreter(t, response))

	// The prose before the marker flushes immediately; the leftover directive
	// text flushes verbatim at finish. Coalesced, nothing is lost.
	want := []Part{TextChunk{Content: response}}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected leftover flushed verbatim, got %v", parts)
	}
}

func TestInterpreter_HoldsBackMarkerPrefixAcrossFragments(t *testing.T) {
	parts := coalesceText(runInterpreter(t,
		"abc``",
		"`tool\n{\"tool\": \"calc:add\", \"arguments\": {}}\n```",
	))

	want := []Part{
		TextChunk{Content: "abc"},
		ToolCallIntent{ToolName: "calc:add", Arguments: map[string]any{}},
	}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected %v, got %v", want, parts)
	}
}

func TestInterpreter_FalseMarkerPrefixFlushesAsProse(t *testing.T) {
	parts := coalesceText(runInterpreter(t, "code: ``", "x not a marker"))

	want := []Part{TextChunk{Content: "code: ``x not a marker"}}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("expected %v, got %v", want, parts)
	}
}

func TestInterpreter_StopsWhenConsumerRejects(t *testing.T) {
	in := &interpreter{emit: func(Part) bool { return false }}
	if in.feed("some prose long enough to flush") {
		t.Fatalf("expected feed to report stopped consumer")
	}
}
