package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/chipledger/internal/config"
	"github.com/susu3304/chipledger/internal/poker"
	"golang.org/x/oauth2"
)

type API struct {
	router      *mux.Router
	svc         *poker.Service
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
}

func New(cfg *config.Config, svc *poker.Service) *API {
	api := &API{
		router:    mux.NewRouter(),
		svc:       svc,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/groups", a.handleListGroups).Methods("GET")
	protected.HandleFunc("/groups", a.handleCreateGroup).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/players", a.handleListPlayers).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/players", a.handleAddPlayer).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/players/{player_id}/stats", a.handlePlayerStats).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/sessions", a.handleListSessions).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/sessions", a.handleStartSession).Methods("POST")

	protected.HandleFunc("/sessions/{session_id}", a.handleGetSession).Methods("GET")
	protected.HandleFunc("/sessions/{session_id}/players", a.handleJoinSession).Methods("POST")
	protected.HandleFunc("/sessions/{session_id}/transactions", a.handleRecord).Methods("POST")
	protected.HandleFunc("/sessions/{session_id}/transactions/{tx_id}", a.handleRemoveTransaction).Methods("DELETE")
	protected.HandleFunc("/sessions/{session_id}/players/{player_id}/chips", a.handleSetChips).Methods("PUT")
	protected.HandleFunc("/sessions/{session_id}/finish", a.handleFinish).Methods("POST")
	protected.HandleFunc("/sessions/{session_id}/reopen", a.handleReopen).Methods("POST")
	protected.HandleFunc("/sessions/{session_id}/report", a.handleReport).Methods("GET")
	protected.HandleFunc("/sessions/{session_id}/payouts", a.handlePayouts).Methods("GET")
	protected.HandleFunc("/sessions/{session_id}/payouts/paid", a.handlePaid).Methods("POST")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, a.Handler())
}
