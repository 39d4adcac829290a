package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/internal/db"
	"github.com/garnizeh/careerpal/internal/oauth"
	"github.com/garnizeh/careerpal/internal/ratelimit"
	"github.com/garnizeh/careerpal/internal/repository/sqlite"
	"github.com/garnizeh/careerpal/pkg/blob"
)

// Deps are the collaborators SetupRoutes wires into handlers.
type Deps struct {
	DB      *db.DB
	Engine  Analyzer
	Blobs   *blob.Store
	OAuth   *oauth.Registry
	Limiter ratelimit.Limiter
	// HTTPClient is used for CV imports; nil means blob.NewPublicClient.
	HTTPClient *http.Client
	// Checks are added to /health next to the database ping.
	Checks map[string]HealthCheck
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(deps.DB, logger)

	registry := deps.OAuth
	if registry == nil {
		registry = oauth.NewRegistry(cfg.Social, cfg.BaseURL)
	}

	checks := map[string]HealthCheck{"db": deps.DB.Ping}
	for name, c := range deps.Checks {
		checks[name] = c
	}

	// Create handlers
	systemHandler := &SystemHandler{Checks: checks}
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration)
	oauthHandler := NewOAuthHandler(registry, repo, repo, cfg)
	applicationsHandler := NewApplicationsHandler(repo)
	aiHandler := NewAIHandler(deps.Engine, repo, repo)
	cvHandler := NewCVHandler(deps.Blobs, repo, deps.HTTPClient)
	rpcHandler := NewRPCHandler(repo, repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	apiR := r.PathPrefix("/api").Subrouter()
	apiR.Use(SessionMiddleware(cfg.JWTSecret))

	// Auth endpoints; literal paths go before /auth/{provider}
	apiR.HandleFunc("/auth/sign-up", authHandler.Signup).Methods("POST")
	apiR.HandleFunc("/auth/sign-in", authHandler.Signin).Methods("POST")
	apiR.HandleFunc("/auth/sign-out", authHandler.Signout).Methods("POST")
	apiR.Handle("/auth/session", JWTAuthMiddlewareWithSecret(cfg.JWTSecret)(http.HandlerFunc(authHandler.Session))).Methods("GET")
	apiR.HandleFunc("/auth/providers", oauthHandler.Providers).Methods("GET")
	apiR.HandleFunc("/auth/callback/{provider}", oauthHandler.Callback).Methods("GET")
	apiR.HandleFunc("/auth/{provider}", oauthHandler.Start).Methods("GET")

	// Applications
	apiR.HandleFunc("/applications", applicationsHandler.ListApplications).Methods("GET")
	apiR.HandleFunc("/applications/{id}", applicationsHandler.GetApplication).Methods("GET")
	apiR.HandleFunc("/applications/{id}", applicationsHandler.UpdateApplication).Methods("PATCH")
	apiR.HandleFunc("/applications/{id}", applicationsHandler.DeleteApplication).Methods("DELETE")

	// AI, rate limited
	limited := RateLimitMiddleware(deps.Limiter)
	apiR.Handle("/analyze", limited(http.HandlerFunc(aiHandler.Analyze))).Methods("POST")
	apiR.Handle("/cover-letter", limited(http.HandlerFunc(aiHandler.CoverLetter))).Methods("POST")

	// CV storage
	apiR.HandleFunc("/cv", cvHandler.Upload).Methods("POST")
	apiR.HandleFunc("/cv/import", cvHandler.Import).Methods("POST")
	apiR.HandleFunc("/cv/{userId}/{kind}", cvHandler.Get).Methods("GET")
	apiR.HandleFunc("/cv/{userId}", cvHandler.Delete).Methods("DELETE")

	// RPC; method rules are per procedure
	apiR.Handle("/trpc/{procedure}", rpcHandler)

	return r
}
