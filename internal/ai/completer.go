package ai

import "context"

// Block types a Completer can produce.
const (
	BlockText     = "text"
	BlockThinking = "thinking"
	BlockToolUse  = "tool_use"
)

// Block is one content block of a model completion.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Completion is the result of a single model call.
type Completion struct {
	Blocks []Block `json:"blocks"`
	Model  string  `json:"model"`
}

// Completer requests one completion for a prompt from a model provider.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (*Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (*Completion, error) {
	return f(ctx, prompt)
}
