package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

// MaxRPCBody caps POST bodies on the RPC endpoint.
const MaxRPCBody = 1_000_000

type procKind int

const (
	procQuery procKind = iota
	procMutation
)

type procedure struct {
	kind   procKind
	handle func(ctx context.Context, userID string, input json.RawMessage) (any, error)
}

// RPCHandler serves typed procedures under /api/trpc/{procedure}.
type RPCHandler struct {
	userRepo   repository.UserRepo
	appRepo    repository.ApplicationRepo
	now        func() time.Time
	procedures map[string]procedure
}

func NewRPCHandler(ur repository.UserRepo, ar repository.ApplicationRepo) *RPCHandler {
	h := &RPCHandler{userRepo: ur, appRepo: ar, now: time.Now}
	h.procedures = map[string]procedure{
		"user.me":            {kind: procQuery, handle: h.userMe},
		"user.updateProfile": {kind: procMutation, handle: h.userUpdateProfile},
		"application.list":   {kind: procQuery, handle: h.applicationList},
		"application.byId":   {kind: procQuery, handle: h.applicationByID},
		"application.update": {kind: procMutation, handle: h.applicationUpdate},
	}
	return h
}

type rpcError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type rpcErrorResponse struct {
	Error rpcError `json:"error"`
}

type rpcResult struct {
	Result struct {
		Data any `json:"data"`
	} `json:"result"`
}

func writeRPCError(w http.ResponseWriter, status int, kind apperr.Kind, msg string) {
	writeJSON(w, rpcErrorResponse{Error: rpcError{Message: msg, Code: kind.String()}}, status)
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["procedure"]

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeRPCError(w, http.StatusMethodNotAllowed, apperr.ValidationFailed, "Method not allowed")
		return
	}

	proc, ok := h.procedures[name]
	if !ok {
		writeRPCError(w, http.StatusNotFound, apperr.NotFound, `No procedure found on path "`+name+`"`)
		return
	}

	var input json.RawMessage
	switch r.Method {
	case http.MethodGet:
		if proc.kind != procQuery {
			w.Header().Set("Allow", http.MethodPost)
			writeRPCError(w, http.StatusMethodNotAllowed, apperr.ValidationFailed, "Mutations must use POST")
			return
		}
		if raw := r.URL.Query().Get("input"); raw != "" {
			input = json.RawMessage(raw)
		}
	case http.MethodPost:
		if proc.kind != procMutation {
			w.Header().Set("Allow", http.MethodGet)
			writeRPCError(w, http.StatusMethodNotAllowed, apperr.ValidationFailed, "Queries must use GET")
			return
		}
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			writeRPCError(w, http.StatusUnsupportedMediaType, apperr.ValidationFailed, "Content-Type must be application/json")
			return
		}
		if r.ContentLength > MaxRPCBody {
			writeRPCError(w, http.StatusRequestEntityTooLarge, apperr.ValidationFailed, "Request body too large")
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRPCBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeRPCError(w, http.StatusRequestEntityTooLarge, apperr.ValidationFailed, "Request body too large")
				return
			}
			writeRPCError(w, http.StatusBadRequest, apperr.ValidationFailed, "Invalid request body")
			return
		}
		input = body
	}

	if len(input) > 0 && !json.Valid(input) {
		writeRPCError(w, http.StatusBadRequest, apperr.ValidationFailed, "Input is not valid JSON")
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeRPCError(w, http.StatusUnauthorized, apperr.Unauthorized, "Not signed in")
		return
	}

	data, err := proc.handle(r.Context(), userID, input)
	if err != nil {
		status, kind, msg := publicError(r, err)
		writeRPCError(w, status, kind, msg)
		return
	}

	var res rpcResult
	res.Result.Data = data
	writeJSON(w, res, http.StatusOK)
}

func decodeInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return apperr.New(apperr.ValidationFailed, "Missing input")
	}
	dec := json.NewDecoder(strings.NewReader(string(input)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(err, apperr.ValidationFailed, "Invalid input")
	}
	return nil
}

func (h *RPCHandler) userMe(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
	user, err := h.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return user, nil
}

func (h *RPCHandler) userUpdateProfile(ctx context.Context, userID string, input json.RawMessage) (any, error) {
	var p models.ProfileUpdate
	if err := decodeInput(input, &p); err != nil {
		return nil, err
	}
	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}
	return h.userRepo.UpdateProfile(ctx, userID, p)
}

func (h *RPCHandler) applicationList(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
	apps, err := h.appRepo.ListApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

type idInput struct {
	ID string `json:"id" validate:"required"`
}

// owned returns the application only when it belongs to userID.
func (h *RPCHandler) owned(ctx context.Context, userID, id string) (*models.Application, error) {
	app, err := h.appRepo.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil || app.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "Application not found")
	}
	return app, nil
}

func (h *RPCHandler) applicationByID(ctx context.Context, userID string, input json.RawMessage) (any, error) {
	var in idInput
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	return h.owned(ctx, userID, in.ID)
}

type applicationUpdateInput struct {
	ID     string  `json:"id" validate:"required"`
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *RPCHandler) applicationUpdate(ctx context.Context, userID string, input json.RawMessage) (any, error) {
	var in applicationUpdateInput
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	upd, err := updateApplicationRequest{Status: in.Status, Notes: in.Notes}.toUpdate()
	if err != nil {
		return nil, err
	}
	if _, err := h.owned(ctx, userID, in.ID); err != nil {
		return nil, err
	}
	return h.appRepo.UpdateApplication(ctx, in.ID, upd, h.now().UTC())
}
