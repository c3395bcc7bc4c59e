package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sk-sanagustin/yep-id/internal/analytics"
	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/auth"
	"github.com/sk-sanagustin/yep-id/internal/config"
	"github.com/sk-sanagustin/yep-id/internal/database"
	"github.com/sk-sanagustin/yep-id/internal/events"
	"github.com/sk-sanagustin/yep-id/internal/handlers"
	"github.com/sk-sanagustin/yep-id/internal/leaderboard"
	"github.com/sk-sanagustin/yep-id/internal/metrics"
	"github.com/sk-sanagustin/yep-id/internal/notifier"
	"github.com/sk-sanagustin/yep-id/internal/qr"
	"github.com/sk-sanagustin/yep-id/internal/registry"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("Failed to generate session secret: %v", err)
		}
		cfg.JWTSecret = hex.EncodeToString(secret)
	}

	// Connect to Database
	db := database.Connect(cfg)

	qrStore, err := qr.NewStore(cfg.QRStorageDir)
	if err != nil {
		log.Fatalf("Failed to prepare QR storage: %v", err)
	}

	// Notifications
	var fanout notifier.Fanout
	if cfg.MailEnabled() {
		mailer := notifier.NewSMTPMailer(notifier.SMTPConfig{
			Host:     cfg.MailServer,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailDefaultSender,
			UseTLS:   cfg.MailUseTLS,
		})
		fanout = append(fanout, notifier.NewEmailNotifier(mailer, cfg.OrganizationName))
	} else {
		log.Printf("Mail is not configured, participant emails are disabled")
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			fanout = append(fanout, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}
	var n notifier.Notifier
	if len(fanout) > 0 {
		n = fanout
	}

	// Services
	reg := registry.NewService(db)
	eventStore := events.NewService(db)
	ledger := attendance.NewService(db, n)
	board := leaderboard.NewService(db)
	stats := analytics.NewService(db)

	report, err := reg.BackfillMissingIDs(context.Background())
	if err != nil {
		log.Printf("Display ID backfill failed: %v", err)
	} else if report.Migrated+report.Assigned > 0 {
		log.Printf("Display IDs: %d migrated, %d assigned", report.Migrated, report.Assigned)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	h := handlers.Handlers{
		Participants: handlers.NewParticipantHandler(reg, ledger, qrStore, n, m, authHandler),
		Events:       handlers.NewEventHandler(eventStore, ledger, reg, n, m, authHandler, cfg.EmailConcurrency),
		Reports:      handlers.NewReportHandler(board, stats, reg, eventStore, ledger, n, m, authHandler, cfg.EmailConcurrency),
		Messages:     handlers.NewMessageHandler(reg, n, m, authHandler, cfg.EmailConcurrency),
		APIKeys:      handlers.NewAPIKeyHandler(db, authHandler),
	}

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, h, m, handlers.RouteOptions{EnableCORS: cfg.EnableCORS})

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
