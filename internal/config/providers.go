package config

import (
	"os"

	"github.com/garnizeh/careerpal/internal/apperr"
)

type Provider string

const (
	ProviderGitHub   Provider = "github"
	ProviderLinkedIn Provider = "linkedin"
)

// Providers lists every social provider the service knows how to talk to.
var Providers = []Provider{ProviderGitHub, ProviderLinkedIn}

// DisplayName is the provider name used in user facing messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderLinkedIn:
		return "LinkedIn"
	}
	return string(p)
}

type ProviderCredentials struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// SocialConfig holds OAuth client credentials, read once at startup.
type SocialConfig struct {
	GitHub   ProviderCredentials `yaml:"github"`
	LinkedIn ProviderCredentials `yaml:"linkedin"`
}

func socialFromEnv() SocialConfig {
	return SocialConfig{
		GitHub: ProviderCredentials{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			Scopes:       []string{"read:user", "user:email"},
		},
		LinkedIn: ProviderCredentials{
			ClientID:     os.Getenv("LINKEDIN_CLIENT_ID"),
			ClientSecret: os.Getenv("LINKEDIN_CLIENT_SECRET"),
			Scopes:       []string{"openid", "profile", "email"},
		},
	}
}

func (s SocialConfig) credentials(p Provider) (ProviderCredentials, bool) {
	switch p {
	case ProviderGitHub:
		return s.GitHub, true
	case ProviderLinkedIn:
		return s.LinkedIn, true
	}
	return ProviderCredentials{}, false
}

// IsProviderConfigured reports whether both client id and secret are set for p.
func (s SocialConfig) IsProviderConfigured(p Provider) bool {
	c, ok := s.credentials(p)
	return ok && c.ClientID != "" && c.ClientSecret != ""
}

// ProviderConfig returns p's credentials, or an Unconfigured error exactly
// when IsProviderConfigured(p) is false.
func (s SocialConfig) ProviderConfig(p Provider) (ProviderCredentials, error) {
	if !s.IsProviderConfigured(p) {
		return ProviderCredentials{}, apperr.New(apperr.Unconfigured, "%s OAuth is not configured", p.DisplayName())
	}
	c, _ := s.credentials(p)
	return c, nil
}

func (s SocialConfig) ConfiguredProviders() []Provider {
	out := make([]Provider, 0, len(Providers))
	for _, p := range Providers {
		if s.IsProviderConfigured(p) {
			out = append(out, p)
		}
	}
	return out
}
