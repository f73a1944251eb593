package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tallyhq/tally/internal/api"
	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/realtime"
	"github.com/tallyhq/tally/internal/reminder"
	"github.com/tallyhq/tally/internal/storage"
	"github.com/tallyhq/tally/internal/storage/memory"
	"github.com/tallyhq/tally/internal/storage/postgres"
	"github.com/tallyhq/tally/internal/storage/sqlite"
	"github.com/tallyhq/tally/pkg/logging"
)

const defaultPort = "8080"

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// openStore selects the persistence backend from STORE_BACKEND:
// sqlite (default), postgres, or memory. The memory backend also acts
// as the change-notification bus; the SQL backends run without a bus
// until one is configured, so the ledger is kept current by local
// writes and explicit reloads only.
func openStore() (storage.Store, realtime.Bus, error) {
	switch backend := getEnv("STORE_BACKEND", "sqlite"); backend {
	case "sqlite":
		store, err := sqlite.New(getEnv("DB_PATH", "./data/tally.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "postgres":
		store, err := postgres.New(getEnv("DATABASE_URL",
			"host=localhost port=5432 user=postgres password=postgres dbname=tally sslmode=disable"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "memory":
		store := memory.New()
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

func main() {
	logging.Setup()

	store, bus, err := openStore()
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "backend", getEnv("STORE_BACKEND", "sqlite"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	working := ledger.New()
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := working.Reload(loadCtx, store); err != nil {
		// Degraded start: serve whatever arrives via writes and events.
		slog.Warn("initial load failed, starting with empty ledger", "error", err)
	}
	cancel()

	coordinator := realtime.NewCoordinator(bus, working)
	if bus != nil {
		go func() {
			if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("coordinator stopped", "error", err)
			}
		}()
	}

	workflow := reminder.NewWorkflow(working, store, reminder.LogSender{})
	server := api.NewServer(working, store, workflow, coordinator)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server.Router())

	// h2c allows HTTP/2 without TLS for in-cluster clients.
	handler := h2c.NewHandler(mux, &http2.Server{})

	addr := ":" + getEnv("PORT", defaultPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "address", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
