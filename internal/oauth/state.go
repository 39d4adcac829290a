package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/internal/config"
)

const (
	// StateCookie is the cookie that carries the signed state between
	// initiation and callback.
	StateCookie = "oauth_state"
	// StateTTL bounds how long a user may take at the provider.
	StateTTL = 10 * time.Minute
)

// State ties a CSRF token to the user who started the flow and the provider.
type State struct {
	State    string          `json:"state"`
	UserID   string          `json:"userId"`
	Provider config.Provider `json:"provider"`
}

type stateClaims struct {
	State    string `json:"state"`
	UserID   string `json:"userId"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// NewStateToken returns 32 random bytes, base64url encoded.
func NewStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignState serializes s into an HS256 token that expires StateTTL after now.
func SignState(s State, secret []byte, now time.Time) (string, error) {
	claims := stateClaims{
		State:    s.State,
		UserID:   s.UserID,
		Provider: string(s.Provider),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyState checks signature and expiry and returns the carried state.
func VerifyState(token string, secret []byte) (*State, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(err, apperr.ValidationFailed, "OAuth state expired")
		}
		return nil, apperr.Wrap(err, apperr.ValidationFailed, "Invalid OAuth state")
	}
	if claims.State == "" || claims.UserID == "" || claims.Provider == "" {
		return nil, apperr.New(apperr.ValidationFailed, "Invalid OAuth state")
	}

	return &State{State: claims.State, UserID: claims.UserID, Provider: config.Provider(claims.Provider)}, nil
}

// StateCookieFor builds the cookie carrying a signed state. Secure is set only
// in production so local http development keeps working.
func StateCookieFor(signed string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(StateTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearStateCookie expires the state cookie so it cannot be replayed.
func ClearStateCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
