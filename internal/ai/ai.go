package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/ollama"
)

// ErrMalformedOutput marks model responses that could not be used: a
// non-text first block, invalid JSON or a schema mismatch.
var ErrMalformedOutput = errors.New("malformed model output")

// package-level logger for internal/ai; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/ai. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Engine turns job descriptions and CVs into analyses and cover letters.
type Engine struct {
	completer Completer
	cfg       config.EngineConfig
	schema    *jsonschema.Schema
}

func NewEngine(ctx context.Context, completer Completer, cfg config.EngineConfig) (*Engine, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	loader, err := NewLoader(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	schema, ok := loader.GetSchema(SchemaJobAnalysis)
	if !ok {
		return nil, fmt.Errorf("schema %s not found", SchemaJobAnalysis)
	}

	return &Engine{completer: completer, cfg: cfg, schema: schema}, nil
}

// AnalyzeJob asks the model for a structured fit analysis of cv against the job.
func (e *Engine) AnalyzeJob(ctx context.Context, jobDescription, cv string) (*models.JobAnalysisResult, error) {
	prompt, err := ollama.RenderTemplate(analyzeJobTemplate, map[string]any{
		"JobDescription": CleanJobDescription(jobDescription),
		"CV":             cv,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	text, err := e.completeText(ctx, "analyze_job", prompt)
	if err != nil {
		return nil, err
	}

	res, err := ParseAnalysis(ctx, e.schema, text)
	if err != nil {
		logger.Warn("ai: analysis rejected", slog.String("error", err.Error()), slog.Int("raw_len", len(text)))
		return nil, apperr.Wrap(err, apperr.UpstreamFailure, "AI returned an invalid analysis")
	}

	return res, nil
}

// GenerateCoverLetter writes a cover letter from the job, the CV and a prior analysis.
func (e *Engine) GenerateCoverLetter(ctx context.Context, jobDescription, cv string, analysis *models.JobAnalysisResult) (string, error) {
	if analysis == nil {
		analysis = &models.JobAnalysisResult{}
	}
	prompt, err := renderCoverLetter(CleanJobDescription(jobDescription), cv, analysis)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	text, err := e.completeText(ctx, "cover_letter", prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// completeText runs one completion and returns the text of its first block.
func (e *Engine) completeText(ctx context.Context, op, prompt string) (string, error) {
	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	c, err := e.completer.Complete(ctxReq, prompt)
	if err != nil {
		logger.Error("ai: completion failed", slog.String("op", op), slog.String("error", err.Error()))
		return "", apperr.Wrap(err, apperr.UpstreamFailure, "AI provider request failed")
	}
	logger.Debug("ai: completion done", slog.String("op", op), slog.String("model", c.Model), slog.Duration("latency", time.Since(start)))

	text, err := FirstText(c)
	if err != nil {
		return "", apperr.Wrap(err, apperr.UpstreamFailure, "AI returned an unexpected response")
	}

	return text, nil
}

// FirstText returns the text of the first block, failing when the completion
// is empty or the first block is not text.
func FirstText(c *Completion) (string, error) {
	if c == nil || len(c.Blocks) == 0 {
		return "", fmt.Errorf("%w: completion has no content blocks", ErrMalformedOutput)
	}
	b := c.Blocks[0]
	if b.Type != BlockText {
		return "", fmt.Errorf("%w: expected a text block, got %q", ErrMalformedOutput, b.Type)
	}

	return b.Text, nil
}

// ParseAnalysis strictly decodes model output into a JobAnalysisResult. One
// surrounding markdown code fence is tolerated; anything else around the JSON
// object is rejected, as is an object that does not match schema.
func ParseAnalysis(ctx context.Context, schema *jsonschema.Schema, s string) (*models.JobAnalysisResult, error) {
	body := stripFence(strings.TrimSpace(s))
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	if body[0] != '{' || !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("%w: response is not a single JSON object", ErrMalformedOutput)
	}

	if schema != nil {
		verrs, err := schema.ValidateBytes(ctx, []byte(body))
		if err != nil {
			return nil, fmt.Errorf("%w: schema validate: %v", ErrMalformedOutput, err)
		}
		if len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, v := range verrs {
				msgs = append(msgs, v.PropertyPath+": "+v.Message)
			}
			return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(msgs, "; "))
		}
	}

	var r models.JobAnalysisResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return &r, nil
}

// stripFence removes a single ```lang ... ``` wrapper if s is fenced.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(s, "```")
	nl := strings.IndexByte(inner, '\n')
	if nl < 0 {
		return s
	}

	return strings.TrimSpace(inner[nl+1:])
}

func renderCoverLetter(jobDescription, cv string, analysis *models.JobAnalysisResult) (string, error) {
	// RenderTemplate has no FuncMap; join the lists up front.
	data := map[string]any{
		"JobDescription": jobDescription,
		"CV":             cv,
		"Analysis": map[string]any{
			"Company":       analysis.Company,
			"Role":          analysis.Role,
			"MatchScore":    analysis.MatchScore,
			"MatchedSkills": listOrNone(analysis.MatchedSkills),
			"Gaps":          listOrNone(analysis.Gaps),
			"Summary":       analysis.Summary,
		},
	}
	return ollama.RenderTemplate(coverLetterTemplate, data)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
