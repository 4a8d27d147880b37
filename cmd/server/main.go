package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yati-kasera/chat-app/internal/config"
	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/httpserver"
	"github.com/yati-kasera/chat-app/internal/presence"
	"github.com/yati-kasera/chat-app/internal/security"
	"github.com/yati-kasera/chat-app/internal/service"
	"github.com/yati-kasera/chat-app/internal/store/postgres"
	"github.com/yati-kasera/chat-app/internal/store/sqlite"
	"github.com/yati-kasera/chat-app/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database. DATABASE_URL selects PostgreSQL; the default is
	// an embedded SQLite file.
	var db *sql.DB
	var users domain.UserRepository
	var groups domain.GroupRepository
	var messages domain.MessageStore
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		users = postgres.NewUserRepo(db)
		groups = postgres.NewGroupRepo(db)
		messages = postgres.NewMessageRepo(db)
	} else {
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		users = sqlite.NewUserRepo(db)
		groups = sqlite.NewGroupRepo(db)
		messages = sqlite.NewMessageRepo(db)
	}
	defer db.Close()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	if err != nil {
		log.Fatalf("failed to initialize encryptor: %v", err)
	}

	// Presence registry and WebSocket hub
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)

	// Services
	authSvc := service.NewAuthService(users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(users, registry)
	groupSvc := service.NewGroupService(groups, users)
	chatSvc := service.NewChatService(messages, users, groups, hub, encryptor, cfg.MaxContentRunes)

	// Build HTTP router
	router := httpserver.NewRouter(httpserver.Deps{
		Config:   cfg,
		Users:    users,
		Groups:   groups,
		Messages: messages,
		Hub:      hub,
		Tokens:   tokenSvc,
		Hasher:   passwordHasher,
		Enc:      encryptor,
		AuthSvc:  authSvc,
		UserSvc:  userSvc,
		GroupSvc: groupSvc,
		ChatSvc:  chatSvc,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Starting %s server on %s\n", cfg.AppName, cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
