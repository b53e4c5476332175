package httpx

import (
	"net/http"

	"log/slog"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/app"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/store"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/ws"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/mail"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/metrics"
)

// Deps is everything the HTTP surface needs wired in.
type Deps struct {
	Config  app.Config
	Log     *slog.Logger
	DB      *store.Postgres
	Tokens  *store.ResetTokens
	Mailer  *mail.Mailer
	Core    *chat.Router
	Gateway *ws.Gateway
}

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(d Deps) http.Handler {
	mw := NewMiddleware(d.Config)

	j := auth.New(d.Config.JWTSecret)
	authAPI := &AuthAPI{
		DB: d.DB, JWT: j, Tokens: d.Tokens, Mail: d.Mailer,
		AppURL: d.Config.AppURL, Log: d.Log,
	}
	roomsAPI := &RoomsAPI{DB: d.DB, Core: d.Core}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint
	mux.Handle("/ws", http.HandlerFunc(d.Gateway.ServeWS))

	// Auth endpoints
	mux.Handle("/api/auth/register", http.HandlerFunc(authAPI.Register))
	mux.Handle("/api/auth/login", http.HandlerFunc(authAPI.Login))
	mux.Handle("/api/auth/forgot-password", http.HandlerFunc(authAPI.ForgotPassword))
	mux.Handle("/api/auth/reset-password", http.HandlerFunc(authAPI.ResetPassword))
	mux.Handle("/api/auth/me", mw.Auth(http.HandlerFunc(authAPI.Me)))

	// Room endpoints (JWT-protected)
	mux.Handle("/api/rooms", mw.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			roomsAPI.Create(w, r)
			return
		}
		if r.Method == http.MethodGet {
			roomsAPI.List(w, r)
			return
		}
		http.NotFound(w, r)
	})))
	mux.Handle("DELETE /api/rooms/{id}", mw.Auth(http.HandlerFunc(roomsAPI.Delete)))
	mux.Handle("GET /api/rooms/{id}/messages", mw.Auth(http.HandlerFunc(roomsAPI.Messages)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
