package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/blob"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

// MaxCVBytes caps a multipart upload and a remote import.
const MaxCVBytes = 10 << 20

const (
	cvKindPDF   = "pdf"
	cvKindLaTeX = "latex"
)

var pdfMagic = []byte("%PDF-")

type CVHandler struct {
	store    *blob.Store
	userRepo repository.UserRepo
	client   *http.Client
}

// NewCVHandler wires CV storage. client is used by Import; nil means a
// client that refuses private and loopback addresses.
func NewCVHandler(store *blob.Store, ur repository.UserRepo, client *http.Client) *CVHandler {
	if client == nil {
		client = blob.NewPublicClient(0)
	}
	return &CVHandler{store: store, userRepo: ur, client: client}
}

// CVPath is the API path a stored CV is served from.
func CVPath(userID, kind string) string {
	return "/api/cv/" + userID + "/" + kind
}

type cvResponse struct {
	CVPdfURL   string `json:"cvPdfUrl,omitempty"`
	CVLatexURL string `json:"cvLatexUrl,omitempty"`
}

// owner resolves userID and checks it against the session, if any.
func (h *CVHandler) owner(r *http.Request, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.New(apperr.ValidationFailed, "Missing userId parameter")
	}
	if sid, ok := UserIDFromContext(r.Context()); ok && sid != userID {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return user, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxCVBytes+1))
}

// Upload stores the multipart "pdf" and/or "latex" files for "userId".
func (h *CVHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxCVBytes)
	if err := r.ParseMultipartForm(MaxCVBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, apperr.ValidationFailed, "CV exceeds "+strconv.Itoa(MaxCVBytes>>20)+" MiB")
			return
		}
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	user, err := h.owner(r, r.FormValue("userId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	pdfs := r.MultipartForm.File[cvKindPDF]
	latexes := r.MultipartForm.File[cvKindLaTeX]
	if len(pdfs) == 0 && len(latexes) == 0 {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "No CV files provided")
		return
	}

	ctx := r.Context()
	var resp cvResponse
	if len(pdfs) > 0 {
		data, err := readPart(pdfs[0])
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !bytes.HasPrefix(data, pdfMagic) {
			writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "pdf must be a PDF document")
			return
		}
		if _, err := h.store.UploadCVPdf(ctx, user.ID, data); err != nil {
			writeAppError(w, r, err)
			return
		}
		resp.CVPdfURL = CVPath(user.ID, cvKindPDF)
	}
	if len(latexes) > 0 {
		data, err := readPart(latexes[0])
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if _, err := h.store.UploadCVLatex(ctx, user.ID, data); err != nil {
			writeAppError(w, r, err)
			return
		}
		resp.CVLatexURL = CVPath(user.ID, cvKindLaTeX)
	}

	if err := h.userRepo.SetCVURLs(ctx, user.ID, nonEmpty(resp.CVPdfURL), nonEmpty(resp.CVLatexURL)); err != nil {
		writeAppError(w, r, err)
		return
	}

	logger.Info("cv uploaded", slog.String("user_id", user.ID), slog.Bool("pdf", resp.CVPdfURL != ""), slog.Bool("latex", resp.CVLatexURL != ""))
	writeJSON(w, resp, http.StatusOK)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type importRequest struct {
	UserID string `json:"userId"`
	URL    string `json:"url"`
}

// Import downloads a PDF CV from a URL and stores it.
func (h *CVHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "url must be an http(s) URL")
		return
	}

	user, err := h.owner(r, req.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	ctx := r.Context()
	data, err := blob.Download(ctx, h.client, req.URL, MaxCVBytes)
	if err != nil {
		if apperr.KindOf(err) == apperr.Unknown {
			err = apperr.Wrap(err, apperr.UpstreamFailure, err.Error())
		}
		writeAppError(w, r, err)
		return
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Downloaded file is not a PDF document")
		return
	}

	if _, err := h.store.UploadCVPdf(ctx, user.ID, data); err != nil {
		writeAppError(w, r, err)
		return
	}
	pdfURL := CVPath(user.ID, cvKindPDF)
	if err := h.userRepo.SetCVURLs(ctx, user.ID, &pdfURL, nil); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, cvResponse{CVPdfURL: pdfURL}, http.StatusOK)
}

// Get streams a stored CV.
func (h *CVHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := vars["kind"]

	user, err := h.owner(r, vars["userId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	userID := user.ID

	var (
		data        []byte
		contentType string
		filename    string
	)
	switch kind {
	case cvKindPDF:
		data, err = h.store.ReadCVPdf(r.Context(), userID)
		contentType, filename = blob.ContentTypePDF, "cv.pdf"
	case cvKindLaTeX:
		data, err = h.store.ReadCVLatex(r.Context(), userID)
		contentType, filename = blob.ContentTypeLaTeX, "cv.tex"
	default:
		writeError(w, http.StatusNotFound, apperr.NotFound, "Unknown CV kind")
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("cv write failed", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

// Delete removes every stored CV object and clears the user's CV URLs.
func (h *CVHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.owner(r, mux.Vars(r)["userId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.store.DeleteCVFiles(ctx, user.ID); err != nil {
		writeAppError(w, r, err)
		return
	}
	empty := ""
	if err := h.userRepo.SetCVURLs(ctx, user.ID, &empty, &empty); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}
