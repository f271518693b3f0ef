/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize SQLite store
  3. Wire reminder gateway and ledger service
  4. Start the sweep scheduler (runs one sweep immediately)
  5. Start HTTP server with graceful shutdown

ENVIRONMENT:
  PORT             HTTP server port (default: 8080)
  DB_PATH          SQLite database path (default: rent.db, ":memory:" works)
  LOG_LEVEL        logrus level (default: info)
  SWEEP_SCHEDULE   cron expression for the sweep (default: @hourly)
  SMTP_*           optional mail transport; unset disables email

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep scheduler
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment keys
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ijara/rent-engine/api"
	"github.com/ijara/rent-engine/config"
	"github.com/ijara/rent-engine/ledger"
	"github.com/ijara/rent-engine/notify"
	"github.com/ijara/rent-engine/store/sqlite"
)

func main() {
	cfg := config.New()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	gateway := notify.New(store, notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Sender:   cfg.SMTPSender,
	}, log)

	service := ledger.NewService(store, gateway, log)
	handler := api.NewHandler(service, log)
	router := api.NewRouter(handler)

	scheduler := api.NewSweepScheduler(service, cfg.SweepSchedule, log)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "db": cfg.DBPath}).
			Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
