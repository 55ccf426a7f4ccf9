package llm

// Part is one element of a model response stream after interpretation:
// prose, a tool-call intent, a recoverable error, or the end-of-turn signal.
// The union is sealed so consumption sites can switch exhaustively.
type Part interface {
	part()
}

// TextChunk is a plain prose fragment of the model response.
type TextChunk struct {
	Content string
}

// ToolCallIntent is the model's request to invoke a tool by qualified name.
type ToolCallIntent struct {
	ToolName  string
	Arguments map[string]any
}

// ErrorInfo reports a recoverable error encountered while producing or
// interpreting the stream. The stream continues after it.
type ErrorInfo struct {
	Message string
	Details string
}

// EndOfTurn terminates one HandleInput part sequence. Exactly one is emitted
// per turn, always last.
type EndOfTurn struct{}

func (TextChunk) part()      {}
func (ToolCallIntent) part() {}
func (ErrorInfo) part()      {}
func (EndOfTurn) part()      {}
