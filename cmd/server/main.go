package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"voat/config"
	"voat/internal/api"
	"voat/internal/auth"
	"voat/internal/database"
)

// App bundles the wired top-level components.
type App struct {
	Server  *api.Server
	Service *auth.Service
}

func ProvideApp(server *api.Server, service *auth.Service) *App {
	return &App{Server: server, Service: service}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	app := InitializeApp(db, cfg)

	go purgeExpiredSignups(app.Service)

	slog.Info("starting server", "addr", cfg.Addr)
	if err := app.Server.Run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func purgeExpiredSignups(service *auth.Service) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		n, err := service.PurgeExpiredSignups(context.Background())
		if err != nil {
			slog.Error("failed to purge expired signups", "error", err)
			continue
		}
		if n > 0 {
			slog.Info("purged expired signups", "count", n)
		}
	}
}
