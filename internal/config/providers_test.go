package config_test

import (
	"testing"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/internal/config"
)

func TestProviderConfiguredFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		secret   string
		wantConf bool
	}{
		{name: "both set", id: "id", secret: "secret", wantConf: true},
		{name: "missing secret", id: "id", secret: "", wantConf: false},
		{name: "missing id", id: "", secret: "secret", wantConf: false},
		{name: "neither", id: "", secret: "", wantConf: false},
	}

	envKeys := map[config.Provider][2]string{
		config.ProviderGitHub:   {"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET"},
		config.ProviderLinkedIn: {"LINKEDIN_CLIENT_ID", "LINKEDIN_CLIENT_SECRET"},
	}

	for _, p := range config.Providers {
		for _, c := range cases {
			t.Run(string(p)+"/"+c.name, func(t *testing.T) {
				for _, keys := range envKeys {
					t.Setenv(keys[0], "")
					t.Setenv(keys[1], "")
				}
				t.Setenv(envKeys[p][0], c.id)
				t.Setenv(envKeys[p][1], c.secret)

				cfg, err := config.LoadConfig("")
				if err != nil {
					t.Fatalf("LoadConfig: %v", err)
				}

				if got := cfg.Social.IsProviderConfigured(p); got != c.wantConf {
					t.Fatalf("IsProviderConfigured = %v, want %v", got, c.wantConf)
				}

				creds, err := cfg.Social.ProviderConfig(p)
				if c.wantConf {
					if err != nil {
						t.Fatalf("ProviderConfig: %v", err)
					}
					if creds.ClientID != c.id || creds.ClientSecret != c.secret {
						t.Fatalf("unexpected credentials: %+v", creds)
					}
					if len(creds.Scopes) == 0 {
						t.Fatalf("expected default scopes")
					}
				} else {
					if err == nil {
						t.Fatalf("expected ProviderConfig to fail when not configured")
					}
					if !apperr.Is(err, apperr.Unconfigured) {
						t.Fatalf("expected Unconfigured kind, got %v", err)
					}
				}
			})
		}
	}
}

func TestProviderConfig_Unknown(t *testing.T) {
	s := config.SocialConfig{GitHub: config.ProviderCredentials{ClientID: "a", ClientSecret: "b"}}
	if s.IsProviderConfigured("gitlab") {
		t.Fatalf("unknown provider must not be configured")
	}
	if _, err := s.ProviderConfig("gitlab"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	got := s.ConfiguredProviders()
	if len(got) != 1 || got[0] != config.ProviderGitHub {
		t.Fatalf("unexpected configured providers: %v", got)
	}
}
