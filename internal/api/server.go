// Package api provides the local HTTP server for AgroLoop.
// It exposes the farm flows, the ledger and the advisory clients as JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
)

// Version is reported by GET /api/version.
const Version = "0.1.0"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Server is the AgroLoop HTTP API server.
type Server struct {
	app            *daemon.App
	metricsEnabled bool
}

// NewServer creates a new API server over the wired services.
func NewServer(app *daemon.App) *Server {
	return &Server{app: app}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignUp)
		r.Post("/signin", s.handleSignIn)
		r.Post("/signout", s.handleSignOut)
		r.Delete("/account", s.handleDeleteAccount)
		r.Get("/me", s.handleMe)
	})

	r.Route("/api/codes", func(r chi.Router) {
		r.Post("/", s.handleIssueCode)
		r.Get("/", s.handleListCodes)
		r.Post("/redeem", s.handleRedeemCode)
		r.Get("/stats", s.handleCodeStats)
		r.Post("/cleanup", s.handleCleanupCodes)
	})

	r.Get("/api/activities", s.handleActivities)
	r.Delete("/api/activities", s.handleClearActivities)
	r.Get("/api/ledger/summary", s.handleLedgerSummary)

	r.Get("/api/waste/types", s.handleWasteTypes)
	r.Post("/api/waste", s.handleLogWaste)
	r.Get("/api/rewards", s.handleRewards)
	r.Post("/api/rewards/{id}/redeem", s.handleRedeemReward)
	r.Post("/api/scan", s.handleScan)

	r.Route("/api/advisor", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/chat", s.handleChat)
		r.Get("/chat/history", s.handleChatHistory)
		r.Delete("/chat/history", s.handleClearChat)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/calls", s.handleCalls)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// currentUID resolves the signed-in user or writes a 401.
func (s *Server) currentUID(w http.ResponseWriter) (string, bool) {
	uid, err := s.app.Session.UID()
	if err != nil {
		writeDomainError(w, err)
		return "", false
	}
	return uid, true
}

// decodeJSON reads a bounded JSON body into v or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// writeDomainError maps a service error onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownWasteType),
		errors.Is(err, domain.ErrInvalidVerificationCode),
		errors.Is(err, domain.ErrEmptyUserID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotSignedIn),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountDeleted):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrRewardNotFound),
		errors.Is(err, domain.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientCredits),
		errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrRewardUnavailable),
		errors.Is(err, domain.ErrCodeSpaceExhausted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "error"
}

// corsMiddleware adds CORS headers for the mobile client in development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
