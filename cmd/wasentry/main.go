package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wasentry/internal/bot"
	"wasentry/internal/config"
	"wasentry/internal/storage"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := storage.New(cfg.AuditDBPath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}

	ctx := context.Background()
	waLevel := "WARN"
	container, err := sqlstore.New(ctx, "sqlite",
		fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", cfg.SessionDBPath),
		waLog.Stdout("Database", waLevel, false))
	if err != nil {
		logger.Fatal("session store init failed", zap.Error(err))
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		logger.Fatal("device load failed", zap.Error(err))
	}
	client := whatsmeow.NewClient(device, waLog.Stdout("Client", waLevel, false))

	botSvc := bot.New(cfg, transport.NewClient(client), st, db, logger)
	client.AddEventHandler(botSvc.HandleEvent)

	if client.Store.ID == nil {
		qrCh, err := client.GetQRChannel(ctx)
		if err != nil {
			logger.Fatal("qr channel failed", zap.Error(err))
		}
		if err := client.Connect(); err != nil {
			logger.Fatal("connect failed", zap.Error(err))
		}
		for evt := range qrCh {
			switch evt.Event {
			case "code":
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				logger.Info("scan the QR code to log in")
			case "success":
				logger.Info("logged in")
			default:
				logger.Info("login event", zap.String("event", evt.Event))
			}
		}
	} else {
		if err := client.Connect(); err != nil {
			logger.Fatal("connect failed", zap.Error(err))
		}
	}
	logger.Info("bot started", zap.String("name", cfg.BotName))

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.CleanupAuditLogs(context.Background(), cfg.RetentionDays); err != nil {
				logger.Error("audit cleanup failed", zap.Error(err))
			}
		}
	}()

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	client.Disconnect()
}
