package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
	now           func() time.Time
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration, now: time.Now}
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	User models.UserSummary `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		writeAppError(w, r, validationError(err))
		return
	}

	ctx := r.Context()

	existing, err := h.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, apperr.Conflict, "User with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	id, err := h.userRepo.CreateUser(ctx, &user)
	if err != nil {
		// a concurrent sign-up can still hit the unique index
		writeAppError(w, r, err)
		return
	}
	user.ID = id

	logger.Info("user signed up", "user_id", id)
	writeJSON(w, userResponse{User: user.ToSummary()}, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAppError(w, r, validationError(err))
		return
	}

	ctx := r.Context()

	user, err := h.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, apperr.Unauthorized, "Credentials not found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, apperr.Unauthorized, "Credentials not found")
		return
	}

	tokenStr, err := h.issueToken(user)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}

func (h *AuthHandler) issueToken(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"exp":   h.now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// stateless JWT: the client drops the token
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}

// Session returns the signed-in user. Requires JWTAuthMiddlewareWithSecret.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, apperr.Unauthorized, "Not signed in")
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, apperr.Unauthorized, "Not signed in")
		return
	}

	writeJSON(w, userResponse{User: user.ToSummary()}, http.StatusOK)
}
