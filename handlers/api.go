// Package handlers exposes the gameplay service as a JSON API
package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/game"
	"lodyland/internal/gameplay"
	"lodyland/internal/network"
	"lodyland/pkg/logger"
)

// SessionCookie carries the session token
const SessionCookie = "lody_session"

type ctxKey int

const playerKey ctxKey = iota

// Deps are the collaborators the API needs. Backups, Hub and LoadContent
// are optional; the admin routes that use them answer 503 when absent.
type Deps struct {
	Service      *gameplay.Service
	Store        *content.Store
	LoadContent  func() (*content.Registry, error)
	DB           *database.DB
	Backups      *database.BackupManager
	Optimizer    *database.Optimizer
	Hub          *network.EventHub
	Events       game.EventSink
	AdminToken   string
	CorsOrigins  []string
	SecureCookie bool
}

// API serves the player and admin routes
type API struct {
	deps   Deps
	logger *logger.ColoredLogger
}

// NewAPI creates the API
func NewAPI(deps Deps) *API {
	if deps.Events == nil {
		deps.Events = game.Sinks(nil)
	}
	return &API{
		deps:   deps,
		logger: logger.NewComponentLogger("API", logger.ColorBrightYellow),
	}
}

// Handler builds the route table. CORS wraps the router so preflight
// requests are answered before method matching.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/content/resources", a.handleContentResources).Methods(http.MethodGet)
	api.HandleFunc("/content/levels", a.handleContentLevels).Methods(http.MethodGet)

	player := api.NewRoute().Subrouter()
	player.Use(a.requirePlayer)
	player.HandleFunc("/me", a.handleMe).Methods(http.MethodGet)
	player.HandleFunc("/state", a.handleState).Methods(http.MethodGet)
	player.HandleFunc("/tiles/unlock", a.handleUnlockTile).Methods(http.MethodPost)
	player.HandleFunc("/tiles/{id:[0-9]+}/collect", a.handleCollectTile).Methods(http.MethodPost)
	player.HandleFunc("/lands/{land}/collect", a.handleCollectLand).Methods(http.MethodPost)
	player.HandleFunc("/lands/{land}/slots/buy", a.handleBuySlot).Methods(http.MethodPost)
	player.HandleFunc("/sell", a.handleSell).Methods(http.MethodPost)
	player.HandleFunc("/shop/cards", a.handleShopCards).Methods(http.MethodGet)
	player.HandleFunc("/shop/cards/{key}/buy", a.handleBuyCard).Methods(http.MethodPost)
	player.HandleFunc("/daily/claim", a.handleClaimDaily).Methods(http.MethodPost)
	player.HandleFunc("/daily/status", a.handleDailyStatus).Methods(http.MethodGet)
	player.HandleFunc("/quests", a.handleQuests).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.requireAdmin)
	admin.HandleFunc("/content", a.handleContentSummary).Methods(http.MethodGet)
	admin.HandleFunc("/content/reload", a.handleContentReload).Methods(http.MethodPost)
	admin.HandleFunc("/backup", a.handleBackup).Methods(http.MethodPost)
	admin.HandleFunc("/backups", a.handleListBackups).Methods(http.MethodGet)
	admin.HandleFunc("/db/optimize", a.handleOptimize).Methods(http.MethodPost)
	admin.HandleFunc("/db/stats", a.handleDBStats).Methods(http.MethodGet)
	admin.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)
	admin.HandleFunc("/events/history", a.handleEventHistory).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	a.logger.Info("API routes registered")
	return a.cors(r)
}

func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && a.allowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) allowedOrigin(origin string) bool {
	for _, o := range a.deps.CorsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/admin/events") {
			// websocket upgrades need the raw writer
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func (a *API) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "not_authenticated", nil)
			return
		}
		p, err := a.deps.Service.PlayerForSession(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, p)))
	})
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.deps.AdminToken == "" {
			writeFailure(w, http.StatusNotFound, "not_found", nil)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			// browsers cannot set headers on websocket upgrades
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.deps.AdminToken)) != 1 {
			writeFailure(w, http.StatusUnauthorized, "admin_required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func playerFrom(r *http.Request) *game.Player {
	p, _ := r.Context().Value(playerKey).(*game.Player)
	return p
}
