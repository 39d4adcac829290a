package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/garnizeh/careerpal/pkg/ollama"
)

type fakeGenerator struct {
	res  ollama.GenerateResult
	err  error
	opts ollama.GenerateOptions
}

func (f *fakeGenerator) Generate(ctx context.Context, model string, prompt string, opts ollama.GenerateOptions) (ollama.GenerateResult, error) {
	f.opts = opts
	return f.res, f.err
}

func TestOllamaCompleter(t *testing.T) {
	cases := []struct {
		name  string
		res   ollama.GenerateResult
		types []string
	}{
		{name: "text", res: ollama.GenerateResult{Text: "hi"}, types: []string{BlockText}},
		{name: "thinking only", res: ollama.GenerateResult{Thinking: "hmm"}, types: []string{BlockThinking}},
		{name: "text and thinking", res: ollama.GenerateResult{Text: "hi", Thinking: "hmm"}, types: []string{BlockText, BlockThinking}},
		{name: "empty", res: ollama.GenerateResult{Text: "  "}, types: nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := &fakeGenerator{res: c.res}
			oc := &OllamaCompleter{client: g, model: "m", temperature: 0.3}
			out, err := oc.Complete(context.Background(), "p")
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if len(out.Blocks) != len(c.types) {
				t.Fatalf("expected %d blocks, got %#v", len(c.types), out.Blocks)
			}
			for i, typ := range c.types {
				if out.Blocks[i].Type != typ {
					t.Fatalf("block %d: expected %s, got %s", i, typ, out.Blocks[i].Type)
				}
			}
			if g.opts.Temperature != 0.3 {
				t.Fatalf("temperature not forwarded: %v", g.opts.Temperature)
			}
		})
	}

	g := &fakeGenerator{err: errors.New("down")}
	if _, err := (&OllamaCompleter{client: g}).Complete(context.Background(), "p"); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeContentGenerator struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeContentGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.resp, f.err
}

func TestLangChainCompleter(t *testing.T) {
	text := &fakeContentGenerator{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "hello"}}}}
	out, err := NewLangChainCompleter(text, "gemini-test", 0).Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(out.Blocks) != 1 || out.Blocks[0].Type != BlockText || out.Blocks[0].Text != "hello" {
		t.Fatalf("unexpected blocks: %#v", out.Blocks)
	}
	if len(text.messages) != 1 || text.messages[0].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("expected one human message, got %#v", text.messages)
	}

	tool := &fakeContentGenerator{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "lookup"}}},
	}}}}
	out, err = NewLangChainCompleter(tool, "gemini-test", 0).Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := FirstText(out); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("tool call must not be accepted as text, got %v", err)
	}
	if out.Blocks[0].Type != BlockToolUse || out.Blocks[0].Text != "lookup" {
		t.Fatalf("unexpected tool block: %#v", out.Blocks[0])
	}

	none := &fakeContentGenerator{resp: &llms.ContentResponse{}}
	out, err = NewLangChainCompleter(none, "", 0).Complete(context.Background(), "prompt")
	if err != nil || len(out.Blocks) != 0 {
		t.Fatalf("expected empty completion, got %#v %v", out, err)
	}

	failing := &fakeContentGenerator{err: errors.New("quota")}
	if _, err := NewLangChainCompleter(failing, "", 0).Complete(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error")
	}
}
