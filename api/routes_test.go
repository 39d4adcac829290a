package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/garnizeh/careerpal/api"
	dbfs "github.com/garnizeh/careerpal/db"
	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/internal/db"
	"github.com/garnizeh/careerpal/internal/ratelimit"
	"github.com/garnizeh/careerpal/pkg/blob"
	"github.com/garnizeh/careerpal/pkg/models"
)

func newTestServer(t *testing.T, limiter ratelimit.Limiter) (*httptest.Server, *config.Config) {
	t.Helper()
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := blob.New(memblob.OpenBucket(nil))
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Env:           config.EnvDevelopment,
		BaseURL:       "http://app.test",
		JWTSecret:     "e2e-secret",
		TokenDuration: time.Hour,
	}

	r := api.SetupRoutes(cfg, "test", "now", api.Deps{
		DB:      d,
		Engine:  newEngine(t, textReply(analysisJSON)),
		Blobs:   store,
		Limiter: limiter,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cfg
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(res.Body)
	return res, out.Bytes()
}

func TestEndToEnd_ApplicationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"db":"ok"`) {
		t.Fatalf("health: %d %s", res.StatusCode, body)
	}
	if res.Header.Get(api.RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}

	// sign up, then the same email again
	signup := map[string]string{"name": "Kim", "email": "kim@example.com", "password": "correct-horse"}
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/sign-up", "", signup)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("sign-up: %d %s", res.StatusCode, body)
	}
	var created struct {
		User models.UserSummary `json:"user"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	userID := created.User.ID

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/sign-up", "", signup)
	if res.StatusCode != http.StatusConflict || !strings.Contains(string(body), "User with this email already exists") {
		t.Fatalf("duplicate sign-up: %d %s", res.StatusCode, body)
	}

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/sign-in", "", map[string]string{"email": "kim@example.com", "password": "correct-horse"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sign-in: %d %s", res.StatusCode, body)
	}
	var tok struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(body, &tok)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/session", tok.Token, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), userID) {
		t.Fatalf("session: %d %s", res.StatusCode, body)
	}

	// analyze creates a draft application
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/analyze", "", map[string]string{"jobDescription": "Backend role, Go and SQL", "userId": userID})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("analyze: %d %s", res.StatusCode, body)
	}
	var analyzed struct {
		Application models.Application `json:"application"`
	}
	_ = json.Unmarshal(body, &analyzed)
	appID := analyzed.Application.ID
	if appID == "" || analyzed.Application.Status != models.StatusDraft {
		t.Fatalf("unexpected application %s", body)
	}

	// patch to applied stamps appliedAt, later moves keep it
	reqTime := time.Now()
	res, body = doJSON(t, http.MethodPatch, srv.URL+"/api/applications/"+appID, "", map[string]string{"status": "applied"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch applied: %d %s", res.StatusCode, body)
	}
	var app models.Application
	_ = json.Unmarshal(body, &app)
	if app.AppliedAt == nil {
		t.Fatalf("appliedAt not stamped: %s", body)
	}
	if app.AppliedAt.Before(reqTime) {
		t.Fatalf("appliedAt %v is before request time %v", app.AppliedAt, reqTime)
	}
	appliedAt := *app.AppliedAt

	res, body = doJSON(t, http.MethodPatch, srv.URL+"/api/applications/"+appID, "", map[string]string{"status": "interviewing", "notes": "round 1"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch interviewing: %d %s", res.StatusCode, body)
	}
	app = models.Application{}
	_ = json.Unmarshal(body, &app)
	if app.Status != models.StatusInterviewing || app.Notes != "round 1" || app.AppliedAt == nil || !app.AppliedAt.Equal(appliedAt) {
		t.Fatalf("unexpected application after interviewing: %s", body)
	}

	res, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/applications/"+appID, "", map[string]string{"status": "hired"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", res.StatusCode)
	}

	// cover letter stored on the application
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/cover-letter", "", map[string]any{
		"jobDescription": "Backend role", "userId": userID, "analysis": json.RawMessage(analysisJSON), "applicationId": appID,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cover letter: %d %s", res.StatusCode, body)
	}
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/cover-letter", "", map[string]any{
		"jobDescription": "Backend role", "userId": "nobody", "analysis": json.RawMessage(analysisJSON),
	})
	if res.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "User not found") {
		t.Fatalf("cover letter unknown user: %d %s", res.StatusCode, body)
	}

	// rpc sees the same data
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/trpc/application.list", tok.Token, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), appID) || !strings.Contains(string(body), `"coverLetter"`) {
		t.Fatalf("rpc list: %d %s", res.StatusCode, body)
	}

	// delete twice
	res, body = doJSON(t, http.MethodDelete, srv.URL+"/api/applications/"+appID, "", nil)
	if res.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"success":true}` {
		t.Fatalf("delete: %d %s", res.StatusCode, body)
	}
	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/applications/"+appID, "", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: %d", res.StatusCode)
	}
}

func TestEndToEnd_OAuthUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/auth/github", "", nil)
	if res.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "Missing userId parameter") {
		t.Fatalf("missing userId: %d %s", res.StatusCode, body)
	}
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/github?userId=u1", "", nil)
	if res.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "GitHub OAuth is not configured") {
		t.Fatalf("unconfigured: %d %s", res.StatusCode, body)
	}
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/providers", "", nil)
	if res.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"providers":[]}` {
		t.Fatalf("providers: %d %s", res.StatusCode, body)
	}
}

func TestEndToEnd_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewLocalLimiter(1, 1))

	payload := map[string]string{"jobDescription": "Go", "userId": "nobody"}
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/analyze", "", payload)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("first call: %d", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/analyze", "", payload)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d", res.StatusCode)
	}

	// unrelated routes are not throttled
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/version", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("version: %d", res.StatusCode)
	}
}
