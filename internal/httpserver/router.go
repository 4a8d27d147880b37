package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yati-kasera/chat-app/internal/config"
	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/security"
	"github.com/yati-kasera/chat-app/internal/service"
	"github.com/yati-kasera/chat-app/internal/ws"
)

// Deps bundles everything the router needs. Repositories come in as
// interfaces so either storage backend can sit behind the same routes.
type Deps struct {
	Config   *config.Config
	Users    domain.UserRepository
	Groups   domain.GroupRepository
	Messages domain.MessageStore
	Hub      *ws.Hub
	Tokens   *security.TokenService
	Hasher   *security.PasswordHasher
	Enc      *security.Encryptor
	AuthSvc  *service.AuthService
	UserSvc  *service.UserService
	GroupSvc *service.GroupService
	ChatSvc  *service.ChatService
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": d.Config.AppName + " API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(d.AuthSvc))
			r.Post("/login", handleLogin(d.AuthSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Tokens, d.Users))

			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(d.UserSvc))
				r.Get("/online", handleListOnlineUsers(d.UserSvc))
				r.Get("/{userID}", handleGetUser(d.UserSvc))
			})

			// Groups
			r.Route("/groups", func(r chi.Router) {
				r.Post("/", handleCreateGroup(d.GroupSvc))
				r.Get("/", handleListGroups(d.GroupSvc))
				r.Get("/{groupID}", handleGetGroup(d.GroupSvc))
				r.Patch("/{groupID}", handleRenameGroup(d.GroupSvc))
				r.Delete("/{groupID}", handleDeleteGroup(d.GroupSvc))
				r.Post("/{groupID}/members", handleAddGroupMember(d.GroupSvc))
				r.Delete("/{groupID}/members/{userID}", handleRemoveGroupMember(d.GroupSvc))
				r.Post("/{groupID}/messages", handleSendGroup(d.ChatSvc))
				r.Get("/{groupID}/messages", handleGroupHistory(d.ChatSvc))
			})

			// Messages
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", handleDirectHistory(d.ChatSvc))
				r.Post("/direct/{userID}", handleSendDirect(d.ChatSvc))
				r.Patch("/{messageID}", handleEditMessage(d.ChatSvc))
				r.Delete("/{messageID}", handleDeleteMessage(d.ChatSvc))
				r.Post("/{messageID}/reactions", handleToggleReaction(d.ChatSvc))
			})

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(d.Config))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(d.Hub, d.Tokens, d.Users, d.ChatSvc, d.Config.CORSOrigins))

	return r
}
