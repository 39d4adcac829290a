package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/internal/oauth"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

// OAuthHandler links a signed-in user's account to a social provider.
type OAuthHandler struct {
	registry *oauth.Registry
	users    repository.UserRepo
	accounts repository.ProviderAccountRepo
	secret   []byte
	baseURL  string
	secure   bool
	now      func() time.Time
}

func NewOAuthHandler(reg *oauth.Registry, ur repository.UserRepo, ar repository.ProviderAccountRepo, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		registry: reg,
		users:    ur,
		accounts: ar,
		secret:   []byte(cfg.JWTSecret),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		secure:   cfg.IsProduction(),
		now:      time.Now,
	}
}

func providerFrom(r *http.Request) (config.Provider, bool) {
	p := config.Provider(strings.ToLower(mux.Vars(r)["provider"]))
	return p, oauth.Known(p)
}

// Start begins the authorization code flow for ?userId.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, ok := providerFrom(r)
	if !ok {
		writeError(w, http.StatusNotFound, apperr.NotFound, "Unknown provider")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing userId parameter")
		return
	}

	if _, err := h.registry.Config(p); err != nil {
		writeAppError(w, r, err)
		return
	}

	token, err := oauth.NewStateToken()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	signed, err := oauth.SignState(oauth.State{State: token, UserID: userID, Provider: p}, h.secret, h.now())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	authURL, err := h.registry.AuthCodeURL(p, token)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	http.SetCookie(w, oauth.StateCookieFor(signed, h.secure))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the flow started by Start.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	p, ok := providerFrom(r)
	if !ok {
		writeError(w, http.StatusNotFound, apperr.NotFound, "Unknown provider")
		return
	}

	cookie, err := r.Cookie(oauth.StateCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing OAuth state")
		return
	}
	// single use: drop the cookie whatever happens next
	http.SetCookie(w, oauth.ClearStateCookie(h.secure))

	st, err := oauth.VerifyState(cookie.Value, h.secret)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	q := r.URL.Query()
	if st.Provider != p || q.Get("state") != st.State {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "OAuth state mismatch")
		return
	}
	if e := q.Get("error"); e != "" {
		logger.Info("oauth: authorization denied", slog.String("provider", string(p)), slog.String("error", e))
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Authorization was denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, apperr.ValidationFailed, "Missing authorization code")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetUserByID(ctx, st.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, apperr.NotFound, "User not found")
		return
	}

	tok, err := h.registry.Exchange(ctx, p, code)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	acct := &models.ProviderAccount{
		UserID:       user.ID,
		Provider:     string(p),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		acct.ExpiresAt = &exp
	}
	if err := h.accounts.UpsertProviderAccount(ctx, acct); err != nil {
		writeAppError(w, r, err)
		return
	}

	logger.Info("oauth: provider connected", slog.String("provider", string(p)), slog.String("user_id", user.ID))
	http.Redirect(w, r, h.baseURL+"/profile?connected="+url.QueryEscape(string(p)), http.StatusFound)
}

type providersResponse struct {
	Providers []config.Provider `json:"providers"`
}

// Providers lists the providers that have credentials configured.
func (h *OAuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	ps := h.registry.Configured()
	if ps == nil {
		ps = []config.Provider{}
	}
	writeJSON(w, providersResponse{Providers: ps}, http.StatusOK)
}
