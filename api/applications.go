package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

type ApplicationsHandler struct {
	appRepo repository.ApplicationRepo
	now     func() time.Time
}

func NewApplicationsHandler(ar repository.ApplicationRepo) *ApplicationsHandler {
	return &ApplicationsHandler{appRepo: ar, now: time.Now}
}

type updateApplicationRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// toUpdate checks the status before anything reaches the store.
func (req updateApplicationRequest) toUpdate() (models.ApplicationUpdate, error) {
	var u models.ApplicationUpdate
	if req.Status != nil {
		s := models.ApplicationStatus(*req.Status)
		if !s.Valid() {
			return u, apperr.New(apperr.ValidationFailed, "Invalid status %q", *req.Status)
		}
		u.Status = &s
	}
	u.Notes = req.Notes
	return u, nil
}

// loadOwned fetches an application. With a session, another user's
// application is reported as missing.
func loadOwned(r *http.Request, repo repository.ApplicationRepo, id string) (*models.Application, error) {
	app, err := repo.GetApplication(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperr.New(apperr.NotFound, "Application not found")
	}
	if uid, ok := UserIDFromContext(r.Context()); ok && uid != app.UserID {
		return nil, apperr.New(apperr.NotFound, "Application not found")
	}
	return app, nil
}

func (h *ApplicationsHandler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if _, ok := UserIDFromContext(r.Context()); ok {
		if _, err := loadOwned(r, h.appRepo, id); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	app, err := h.appRepo.UpdateApplication(r.Context(), id, upd, h.now().UTC())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, app, http.StatusOK)
}

func (h *ApplicationsHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, ok := UserIDFromContext(r.Context()); ok {
		if _, err := loadOwned(r, h.appRepo, id); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	if err := h.appRepo.DeleteApplication(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (h *ApplicationsHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := loadOwned(r, h.appRepo, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, app, http.StatusOK)
}

// ListApplications lists ?userId's applications, defaulting to the session user.
func (h *ApplicationsHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	sessionID, signedIn := UserIDFromContext(r.Context())
	if userID == "" {
		userID = sessionID
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing userId parameter")
		return
	}
	if signedIn && userID != sessionID {
		writeJSON(w, []models.Application{}, http.StatusOK)
		return
	}

	apps, err := h.appRepo.ListApplicationsByUser(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}

	writeJSON(w, apps, http.StatusOK)
}
