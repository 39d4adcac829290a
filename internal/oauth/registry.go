// Package oauth builds the authorization URLs for social providers, signs the
// short-lived state carried through the redirect and exchanges callback codes.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/linkedin"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/internal/config"
)

// package-level logger for internal/oauth; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/oauth. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

var defaultEndpoints = map[config.Provider]oauth2.Endpoint{
	config.ProviderGitHub:   github.Endpoint,
	config.ProviderLinkedIn: linkedin.Endpoint,
}

// Registry holds one oauth2.Config per configured provider.
type Registry struct {
	social  config.SocialConfig
	configs map[config.Provider]*oauth2.Config
}

type Option func(map[config.Provider]oauth2.Endpoint)

// WithEndpoint overrides the authorization and token URLs of p.
func WithEndpoint(p config.Provider, ep oauth2.Endpoint) Option {
	return func(m map[config.Provider]oauth2.Endpoint) { m[p] = ep }
}

// NewRegistry builds the provider configs. Callbacks land on
// {baseURL}/api/auth/callback/{provider}.
func NewRegistry(social config.SocialConfig, baseURL string, opts ...Option) *Registry {
	endpoints := make(map[config.Provider]oauth2.Endpoint, len(defaultEndpoints))
	for p, ep := range defaultEndpoints {
		endpoints[p] = ep
	}
	for _, o := range opts {
		o(endpoints)
	}

	base := strings.TrimRight(baseURL, "/")
	r := &Registry{social: social, configs: make(map[config.Provider]*oauth2.Config)}
	for _, p := range social.ConfiguredProviders() {
		creds, _ := social.ProviderConfig(p)
		r.configs[p] = &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     endpoints[p],
			RedirectURL:  CallbackURL(base, p),
			Scopes:       creds.Scopes,
		}
	}

	return r
}

// CallbackURL is the redirect URI registered with the provider.
func CallbackURL(baseURL string, p config.Provider) string {
	return strings.TrimRight(baseURL, "/") + "/api/auth/callback/" + string(p)
}

// Known reports whether p is a provider the service supports at all.
func Known(p config.Provider) bool {
	_, ok := defaultEndpoints[p]
	return ok
}

// Configured lists the providers with credentials, in a stable order.
func (r *Registry) Configured() []config.Provider {
	return r.social.ConfiguredProviders()
}

// Config returns p's oauth2 config, or an Unconfigured error.
func (r *Registry) Config(p config.Provider) (*oauth2.Config, error) {
	if !Known(p) {
		return nil, apperr.New(apperr.NotFound, "Unknown provider %q", p)
	}
	c, ok := r.configs[p]
	if !ok {
		_, err := r.social.ProviderConfig(p)
		return nil, err
	}

	return c, nil
}

// AuthCodeURL returns the provider authorization URL carrying state.
func (r *Registry) AuthCodeURL(p config.Provider, state string) (string, error) {
	c, err := r.Config(p)
	if err != nil {
		return "", err
	}

	return c.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token.
func (r *Registry) Exchange(ctx context.Context, p config.Provider, code string) (*oauth2.Token, error) {
	c, err := r.Config(p)
	if err != nil {
		return nil, err
	}

	tok, err := c.Exchange(ctx, code)
	if err != nil {
		logger.Error("oauth: code exchange failed", slog.String("provider", string(p)), slog.String("error", err.Error()))
		return nil, apperr.Wrap(fmt.Errorf("exchange %s code: %w", p, err), apperr.UpstreamFailure, "Failed to complete sign-in with "+p.DisplayName())
	}

	return tok, nil
}
