package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/bot"
	"github.com/nabilsaied15/asad-chat-bot/internal/config"
	"github.com/nabilsaied15/asad-chat-bot/internal/httpserver"
	"github.com/nabilsaied15/asad-chat-bot/internal/logger"
	"github.com/nabilsaied15/asad-chat-bot/internal/notify"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
	"github.com/nabilsaied15/asad-chat-bot/internal/security"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
	"github.com/nabilsaied15/asad-chat-bot/internal/store/sqlite"
	"github.com/nabilsaied15/asad-chat-bot/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	reg := registry.New()
	hub := ws.NewHub()

	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	userRepo := sqlite.NewUserRepo(db)
	settingsRepo := sqlite.NewSettingsRepo(db)

	directory := service.NewDirectory(convRepo, userRepo)

	var emailSenders []notify.EmailSender
	if cfg.EmailAPIURL != "" {
		emailSenders = append(emailSenders, &notify.APISender{
			URL:    cfg.EmailAPIURL,
			APIKey: cfg.EmailAPIKey,
			From:   cfg.NotificationEmail,
		})
	}
	if cfg.SMTPHost != "" {
		emailSenders = append(emailSenders, &notify.SMTPSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
		})
	}
	dispatcher := notify.NewDispatcher(settingsRepo, notify.Defaults{
		NotificationEmail: cfg.NotificationEmail,
		WhatsAppNumber:    cfg.WhatsAppNumber,
	}, emailSenders, cfg.NotifyTimeout, log)

	publisher := ws.NewBotPublisher(hub, reg)
	responder := bot.NewResponder(nil, cfg.BotReplyDelay, msgRepo, convRepo, reg, publisher, log)

	router := httpserver.NewRouter(cfg, db, hub, reg, directory, responder, dispatcher, tokenSvc, passwordHasher, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", cfg.HTTPAddr()),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
