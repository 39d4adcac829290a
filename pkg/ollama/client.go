package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/careerpal/internal/config"
)

var ErrCircuitOpen = errors.New("ollama circuit open")

// Client wraps the Ollama API client and adds retries, timeout, and circuit breaker.
type Client struct {
	api    *api.Client
	cfg    config.OllamaConfig
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

// GenerateResult is the accumulated output of one streamed generation.
// Thinking holds reasoning tokens for models that emit them separately.
type GenerateResult struct {
	Text     string          `json:"text"`
	Thinking string          `json:"thinking,omitempty"`
	Model    string          `json:"model"`
	Raw      json.RawMessage `json:"raw"`
	Meta     map[string]any  `json:"meta,omitempty"`
}

// GenerateOptions are passed through to the model runner.
type GenerateOptions struct {
	Temperature float64
	// Format constrains the output, e.g. "json".
	Format string
}

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// NewClient creates a new Ollama client wrapper.
func NewClient(cfg config.OllamaConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		client: httpClient,
	}
	logger.Debug("ollama: client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg config.OllamaConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

func (c *Client) isCircuitOpen() bool {
	if c.cfg.CircuitFailureThreshold <= 0 {
		return false
	}
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if c.cfg.CircuitFailureThreshold > 0 && v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
		logger.Warn("ollama: circuit opened", slog.Int("failures", int(v)), slog.Duration("reset", c.cfg.CircuitReset))
	}
}

// Close releases idle connections on the underlying HTTP transport when
// supported. Close is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

// Health reports whether the Ollama instance answers and has at least one model pulled.
func (c *Client) Health(ctx context.Context) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		c.recordFailure()
		return fmt.Errorf("health check failed: no models returned")
	}

	return nil
}

// ModelInfo is a lightweight model descriptor returned by ListModels.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ListModels returns the models available locally on the Ollama instance.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return nil, err
	}

	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, ModelInfo{Name: m.Name, Size: m.Size})
	}

	atomic.StoreInt32(&c.failures, 0)
	return out, nil
}

// Generate sends a prompt to the model and accumulates the streamed response.
// Failed attempts are retried cfg.Retries times with linear backoff.
func (c *Client) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (GenerateResult, error) {
	var lastErr error
	var empty GenerateResult
	if c.isCircuitOpen() {
		return empty, ErrCircuitOpen
	}

	req := &api.GenerateRequest{Model: model, Prompt: prompt}
	if opts.Temperature > 0 {
		req.Options = map[string]any{"temperature": opts.Temperature}
	}
	if opts.Format != "" {
		req.Format = json.RawMessage(`"` + opts.Format + `"`)
	}

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		var text, thinking strings.Builder
		var last api.GenerateResponse
		start := time.Now()
		err := c.api.Generate(ctxReq, req, func(r api.GenerateResponse) error {
			text.WriteString(r.Response)
			thinking.WriteString(r.Thinking)
			last = r
			return nil
		})
		cancel()

		latency := time.Since(start)
		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			raw, _ := json.Marshal(last)
			meta := map[string]any{"model": model, "latency_ms": latency.Milliseconds(), "attempts": attempt + 1}
			logger.Debug("ollama: generate done", slog.String("model", model), slog.Duration("latency", latency))
			return GenerateResult{
				Text:     text.String(),
				Thinking: thinking.String(),
				Model:    model,
				Raw:      raw,
				Meta:     meta,
			}, nil
		}

		lastErr = err
		c.recordFailure()
		logger.Warn("ollama: generate failed", slog.String("model", model), slog.Int("attempt", attempt+1), slog.String("error", err.Error()))

		if attempt == c.cfg.Retries {
			break
		}
		if c.isCircuitOpen() {
			return empty, ErrCircuitOpen
		}
		select {
		case <-ctx.Done():
			return empty, ctx.Err()
		case <-time.After(c.cfg.Backoff * time.Duration(attempt+1)):
		}
	}

	if c.cfg.Retries == 0 {
		return empty, fmt.Errorf("generate failed: %w", lastErr)
	}
	return empty, fmt.Errorf("generate failed after %d attempts: %w", c.cfg.Retries+1, lastErr)
}
