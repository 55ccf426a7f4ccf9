package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tool directives arrive embedded in the model's prose as a fenced block:
// the start marker, a JSON object with "tool" and "arguments" keys, and the
// end marker. Everything outside the markers is prose.
const (
	toolStartDelimiter = "```tool\n"
	toolEndDelimiter   = "\n```"
)

// interpreter holds the incremental scan state for one stream instance.
// It never drops input bytes: prose is flushed as TextChunk parts, malformed
// directives surface as ErrorInfo, and whatever remains at stream end is
// flushed verbatim.
type interpreter struct {
	buffer string
	emit   func(Part) bool
}

// feed appends one raw fragment and drains every complete region of the
// buffer. A single fragment may contain prose, a directive, and more prose;
// a directive may equally span many fragments. Returns false when the
// consumer stopped accepting parts.
func (in *interpreter) feed(chunk string) bool {
	in.buffer += chunk
	for {
		start := strings.Index(in.buffer, toolStartDelimiter)
		if start == -1 {
			// No marker pending. Flush prose, holding back only a tail that
			// could still grow into a start marker on the next fragment.
			keep := pendingMarkerLen(in.buffer)
			if cut := len(in.buffer) - keep; cut > 0 {
				if !in.emit(TextChunk{Content: in.buffer[:cut]}) {
					return false
				}
				in.buffer = in.buffer[cut:]
			}
			return true
		}

		interiorStart := start + len(toolStartDelimiter)
		endOffset := strings.Index(in.buffer[interiorStart:], toolEndDelimiter)
		if endOffset == -1 {
			// Unmatched start marker: flush the prose before it and wait for
			// more fragments to complete the directive.
			if start > 0 {
				if !in.emit(TextChunk{Content: in.buffer[:start]}) {
					return false
				}
				in.buffer = in.buffer[start:]
			}
			return true
		}

		if start > 0 {
			if !in.emit(TextChunk{Content: in.buffer[:start]}) {
				return false
			}
		}
		interior := in.buffer[interiorStart : interiorStart+endOffset]
		if !in.emit(decodeDirective(strings.TrimSpace(interior))) {
			return false
		}
		in.buffer = in.buffer[interiorStart+endOffset+len(toolEndDelimiter):]
	}
}

// finish flushes whatever is left in the buffer, including an unterminated
// directive, as a final text chunk.
func (in *interpreter) finish() bool {
	if in.buffer == "" {
		return true
	}
	ok := in.emit(TextChunk{Content: in.buffer})
	in.buffer = ""
	return ok
}

// pendingMarkerLen returns the length of the longest buffer suffix that is a
// proper prefix of the start marker. Those bytes must be held back so a
// marker split across fragment boundaries is still recognized.
func pendingMarkerLen(s string) int {
	max := len(toolStartDelimiter) - 1
	if len(s) < max {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(s, toolStartDelimiter[:k]) {
			return k
		}
	}
	return 0
}

// decodeDirective parses the interior of one directive block. Any decode
// failure yields ErrorInfo rather than aborting the stream.
func decodeDirective(content string) Part {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return ErrorInfo{
			Message: "failed to parse tool call directive",
			Details: fmt.Sprintf("%v; content: %q", err, content),
		}
	}

	toolRaw, hasTool := fields["tool"]
	argsRaw, hasArgs := fields["arguments"]
	if !hasTool || !hasArgs {
		return ErrorInfo{
			Message: `tool call directive is missing required "tool" or "arguments" keys`,
			Details: fmt.Sprintf("content: %q", content),
		}
	}

	var name string
	if err := json.Unmarshal(toolRaw, &name); err != nil || name == "" {
		return ErrorInfo{
			Message: `tool call directive "tool" must be a non-empty string`,
			Details: fmt.Sprintf("content: %q", content),
		}
	}

	var args map[string]any
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return ErrorInfo{
			Message: `tool call directive "arguments" must be an object`,
			Details: fmt.Sprintf("%v; content: %q", err, content),
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	return ToolCallIntent{ToolName: name, Arguments: args}
}
