package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// LangChainCompleter runs completions through a langchaingo model.
type LangChainCompleter struct {
	llm         contentGenerator
	model       string
	temperature float64
}

func NewLangChainCompleter(llm contentGenerator, model string, temperature float64) *LangChainCompleter {
	return &LangChainCompleter{llm: llm, model: model, temperature: temperature}
}

// NewGeminiCompleter builds a LangChainCompleter backed by Google Gemini.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, temperature float64) (*LangChainCompleter, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return NewLangChainCompleter(llm, model, temperature), nil
}

// Complete sends the prompt as one human message. The first choice becomes
// the completion: its text content as a text block, tool or function calls as
// tool_use blocks.
func (c *LangChainCompleter) Complete(ctx context.Context, prompt string) (*Completion, error) {
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	var opts []llms.CallOption
	if c.model != "" {
		opts = append(opts, llms.WithModel(c.model))
	}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}

	resp, err := c.llm.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}

	out := &Completion{Model: c.model}
	if resp == nil || len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	for _, tc := range choice.ToolCalls {
		name := tc.Type
		if tc.FunctionCall != nil {
			name = tc.FunctionCall.Name
		}
		out.Blocks = append(out.Blocks, Block{Type: BlockToolUse, Text: name})
	}
	if choice.FuncCall != nil && len(choice.ToolCalls) == 0 {
		out.Blocks = append(out.Blocks, Block{Type: BlockToolUse, Text: choice.FuncCall.Name})
	}
	if choice.Content != "" {
		out.Blocks = append(out.Blocks, Block{Type: BlockText, Text: choice.Content})
	}

	return out, nil
}
