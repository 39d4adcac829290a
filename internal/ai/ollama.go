package ai

import (
	"context"
	"strings"

	"github.com/garnizeh/careerpal/pkg/ollama"
)

type ollamaGenerator interface {
	Generate(ctx context.Context, model string, prompt string, opts ollama.GenerateOptions) (ollama.GenerateResult, error)
}

// OllamaCompleter runs completions on a local Ollama instance.
type OllamaCompleter struct {
	client      ollamaGenerator
	model       string
	temperature float64
}

func NewOllamaCompleter(client *ollama.Client, model string, temperature float64) *OllamaCompleter {
	return &OllamaCompleter{client: client, model: model, temperature: temperature}
}

// Complete maps the response text to a text block. Reasoning models that only
// produced thinking tokens yield a single thinking block.
func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (*Completion, error) {
	res, err := c.client.Generate(ctx, c.model, prompt, ollama.GenerateOptions{Temperature: c.temperature})
	if err != nil {
		return nil, err
	}

	out := &Completion{Model: c.model}
	if strings.TrimSpace(res.Text) != "" {
		out.Blocks = append(out.Blocks, Block{Type: BlockText, Text: res.Text})
	}
	if strings.TrimSpace(res.Thinking) != "" {
		out.Blocks = append(out.Blocks, Block{Type: BlockThinking, Text: res.Thinking})
	}

	return out, nil
}
