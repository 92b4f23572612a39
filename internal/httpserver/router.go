package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/bot"
	"github.com/nabilsaied15/asad-chat-bot/internal/config"
	"github.com/nabilsaied15/asad-chat-bot/internal/notify"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
	"github.com/nabilsaied15/asad-chat-bot/internal/security"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
	"github.com/nabilsaied15/asad-chat-bot/internal/store/sqlite"
	"github.com/nabilsaied15/asad-chat-bot/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware. The /ws endpoint carries the relay; everything under /api is
// the dashboard's thin CRUD boundary over the Directory and Store.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	hub *ws.Hub,
	reg *registry.Registry,
	directory *service.Directory,
	responder *bot.Responder,
	dispatcher *notify.Dispatcher,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	settingsRepo := sqlite.NewSettingsRepo(db)
	statsRepo := sqlite.NewStatsRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"asad.to Backend API is running correctly."}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Widget-facing, no auth: signup/login and anonymous analytics.
		r.Post("/signup", handleSignup(authSvc))
		r.Post("/login", handleLogin(authSvc))
		r.Post("/stats", handleInsertStat(statsRepo))

		// Dashboard endpoints
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Route("/users", func(r chi.Router) {
				r.Post("/", handleCreateUser(authSvc))
				r.Get("/", handleListUsers(userSvc))
				r.Get("/{userID}", handleGetUser(userSvc))
				r.Put("/{userID}", handleUpdateUser(userSvc))
				r.Delete("/{userID}", handleDeleteUser(userSvc))
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", handleListConversations(convRepo))
				r.Get("/{conversationID}/messages", handleListMessages(msgRepo))
				r.Patch("/{conversationID}/status", handleSetStatus(directory))
				r.Put("/{conversationID}/mute", handleToggleMute(directory))
				r.Put("/{conversationID}/read", handleMarkRead(msgRepo))
				r.Delete("/{conversationID}", handlePurge(directory))
			})

			r.Get("/notifications/unread", handleUnreadNotifications(msgRepo))

			r.Route("/agents/{agentID}/settings", func(r chi.Router) {
				r.Get("/", handleGetSettings(settingsRepo))
				r.Put("/", handlePutSettings(settingsRepo))
			})

			r.Get("/stats/summary", handleStatsSummary(statsRepo, msgRepo, reg))
			r.Get("/stats/messages-by-day", handleMessagesByDay(msgRepo))
		})
	})

	// WebSocket endpoint: the conversation relay itself.
	r.Get("/ws", ws.MakeHandler(hub, reg, directory, msgRepo, responder, dispatcher, log, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
