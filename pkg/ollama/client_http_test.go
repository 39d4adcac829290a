package ollama_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/pkg/ollama"
)

func TestClient_ListModelsAndHealth_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"test-model","size":42}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	models, err := client.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].Name != "test-model" || models[0].Size != 42 {
		t.Fatalf("unexpected models: %#v", models)
	}

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestClient_Health_NoModels_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if err := client.Health(context.Background()); err == nil {
		t.Fatalf("expected Health to fail when no models returned")
	}
}

func TestClient_Generate_Streaming_Accumulates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/generate" {
			w.Header().Set("Content-Type", "application/x-ndjson")
			writeSequence(w, []map[string]any{
				{"response": "Hello, ", "done": false},
				{"response": "world", "done": false},
				{"response": "", "done": true},
			}, 5*time.Millisecond)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	res, err := client.Generate(context.Background(), "test-model", "prompt", ollama.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != "Hello, world" {
		t.Fatalf("unexpected Generate.Text: %q", res.Text)
	}
	if res.Model != "test-model" {
		t.Fatalf("unexpected model: %q", res.Model)
	}
	if !strings.Contains(string(res.Raw), `"done":true`) {
		t.Fatalf("expected raw to hold the final chunk, got %s", res.Raw)
	}
}

func TestClient_Generate_ThinkingOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeSequence(w, []map[string]any{
				{"thinking": "let me see", "done": false},
				{"thinking": "...", "done": true},
			}, 0)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	res, err := client.Generate(context.Background(), "m", "p", ollama.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != "" || res.Thinking != "let me see..." {
		t.Fatalf("unexpected result: text=%q thinking=%q", res.Text, res.Thinking)
	}
}

func TestClient_Generate_Non200_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if _, err := client.Generate(context.Background(), "test-model", "prompt", ollama.GenerateOptions{}); err == nil {
		t.Fatalf("expected Generate to fail on non-200")
	}
}

func TestClient_Generate_MalformedJSON_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{ this is : not json `))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if _, err := client.Generate(context.Background(), "test-model", "prompt", ollama.GenerateOptions{}); err == nil {
		t.Fatalf("expected Generate to fail on malformed JSON")
	}
}
