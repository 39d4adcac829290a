package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/garnizeh/careerpal/internal/ai"
	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

// Analyzer is the slice of ai.Engine the handlers need.
type Analyzer interface {
	AnalyzeJob(ctx context.Context, jobDescription, cv string) (*models.JobAnalysisResult, error)
	GenerateCoverLetter(ctx context.Context, jobDescription, cv string, analysis *models.JobAnalysisResult) (string, error)
}

var _ Analyzer = (*ai.Engine)(nil)

type AIHandler struct {
	engine   Analyzer
	userRepo repository.UserRepo
	appRepo  repository.ApplicationRepo
}

func NewAIHandler(engine Analyzer, ur repository.UserRepo, ar repository.ApplicationRepo) *AIHandler {
	return &AIHandler{engine: engine, userRepo: ur, appRepo: ar}
}

type analyzeRequest struct {
	JobDescription string `json:"jobDescription"`
	UserID         string `json:"userId"`
}

type analyzeResponse struct {
	Application *models.Application      `json:"application"`
	Analysis    *models.JobAnalysisResult `json:"analysis"`
}

// lookupUser resolves userID, turning a missing row into NotFound.
func (h *AIHandler) lookupUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := h.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return user, nil
}

func (h *AIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" || strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing jobDescription or userId")
		return
	}

	ctx := r.Context()
	user, err := h.lookupUser(ctx, req.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	result, err := h.engine.AnalyzeJob(ctx, req.JobDescription, ai.CVText(user))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	app := &models.Application{
		UserID:         user.ID,
		Company:        result.Company,
		Role:           result.Role,
		MatchScore:     result.MatchScore,
		Status:         models.StatusDraft,
		JobDescription: ai.CleanJobDescription(req.JobDescription),
		Analysis:       string(raw),
	}
	id, err := h.appRepo.CreateApplication(ctx, app)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	created, err := h.appRepo.GetApplication(ctx, id)
	if err != nil || created == nil {
		app.ID = id
		created = app
	}

	logger.Info("job analyzed",
		slog.String("user_id", user.ID),
		slog.String("application_id", id),
		slog.Int("match_score", result.MatchScore),
	)
	writeJSON(w, analyzeResponse{Application: created, Analysis: result}, http.StatusCreated)
}

type coverLetterRequest struct {
	JobDescription string          `json:"jobDescription"`
	UserID         string          `json:"userId"`
	Analysis       json.RawMessage `json:"analysis"`
	ApplicationID  string          `json:"applicationId"`
}

type coverLetterResponse struct {
	CoverLetter string `json:"coverLetter"`
}

// decodeAnalysis accepts the analysis as an object or as the serialized
// string stored on an application.
func decodeAnalysis(raw json.RawMessage) (*models.JobAnalysisResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperr.Wrap(err, apperr.ValidationFailed, "Invalid analysis")
		}
		raw = json.RawMessage(s)
	}

	var a models.JobAnalysisResult
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, apperr.Wrap(err, apperr.ValidationFailed, "Invalid analysis")
	}
	return &a, nil
}

func (h *AIHandler) CoverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverLetterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	analysisRaw := bytes.TrimSpace(req.Analysis)
	if strings.TrimSpace(req.JobDescription) == "" || strings.TrimSpace(req.UserID) == "" ||
		len(analysisRaw) == 0 || bytes.Equal(analysisRaw, []byte("null")) {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing required fields")
		return
	}

	analysis, err := decodeAnalysis(analysisRaw)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := h.lookupUser(ctx, req.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if req.ApplicationID != "" {
		app, err := loadOwned(r, h.appRepo, req.ApplicationID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if app.UserID != user.ID {
			writeError(w, http.StatusNotFound, apperr.NotFound, "Application not found")
			return
		}
	}

	letter, err := h.engine.GenerateCoverLetter(ctx, req.JobDescription, ai.CVText(user), analysis)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if req.ApplicationID != "" {
		if err := h.appRepo.SetCoverLetter(ctx, req.ApplicationID, letter); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	writeJSON(w, coverLetterResponse{CoverLetter: letter}, http.StatusOK)
}
