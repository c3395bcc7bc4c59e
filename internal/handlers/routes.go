package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
)

type Handlers struct {
	Participants *ParticipantHandler
	Events       *EventHandler
	Reports      *ReportHandler
	Messages     *MessageHandler
	APIKeys      *APIKeyHandler
}

type RouteOptions struct {
	EnableCORS bool
}

func RegisterRoutes(r *chi.Mux, authHandler *auth.AuthHandler, h Handlers, m *metrics.Metrics, opts RouteOptions) huma.API {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-KEY"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(authHandler.SlidingSession)

	// Initialize Huma API
	config := huma.DefaultConfig("YEP ID API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	admin := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
	}
	session := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	huma.Post(api, "/register", h.Participants.HandleRegister)

	// Auth routes
	huma.Post(api, "/auth/login", authHandler.HandlePasswordLogin)
	huma.Post(api, "/auth/logout", authHandler.HandleLogout)
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)
	huma.Get(api, "/me", authHandler.HandleMe, session)

	// Participants
	huma.Get(api, "/participants", h.Participants.HandleList, admin)
	huma.Post(api, "/participants/backfill", h.Participants.HandleBackfill, admin)
	huma.Get(api, "/participants/{id}", h.Participants.HandleGet, admin)

	// Events and scanning
	huma.Get(api, "/events", h.Events.HandleList, admin)
	huma.Post(api, "/events", h.Events.HandleCreate, admin)
	huma.Get(api, "/events/{id}", h.Events.HandleGet, admin)
	huma.Delete(api, "/events/{id}", h.Events.HandleDelete, admin)
	huma.Post(api, "/events/{id}/reminders", h.Events.HandleReminders, admin)
	huma.Post(api, "/api/scan/attendance/{id}", h.Events.HandleScan, admin)

	// Reports
	huma.Get(api, "/leaderboard", h.Reports.HandleLeaderboard, admin)
	huma.Post(api, "/leaderboard/notify", h.Reports.HandleNotifyPoints, admin)
	huma.Get(api, "/analytics", h.Reports.HandleAnalytics, admin)
	huma.Get(api, "/search", h.Reports.HandleSearch, admin)

	// Messaging
	huma.Post(api, "/messages/bulk", h.Messages.HandleBulk, admin)
	huma.Get(api, "/messages/filters", h.Messages.HandleFilters, admin)

	// API keys
	huma.Post(api, "/api-keys", h.APIKeys.HandleCreate, session)
	huma.Get(api, "/api-keys", h.APIKeys.HandleList, session)
	huma.Delete(api, "/api-keys/{id}", h.APIKeys.HandleDelete, session)

	// Binary responses stay on plain chi handlers.
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)
		r.Get("/participants/{id}/qr", h.Participants.HandleQRCode)
		r.Get("/events/{id}/export", h.Events.HandleExport)
		r.Get("/qr", HandleGenerateQR)
		r.Handle("/metrics", m.Handler())
	})

	return api
}
