package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	anser "github.com/anserhq/anser"
	"github.com/anserhq/anser/api"
	"github.com/anserhq/anser/stores"
	"github.com/anserhq/anser/tools"
)

func main() {
	// Load environment variables from .env if present.
	_ = godotenv.Load()

	logger := newLogger(os.Getenv("LOG_LEVEL"))

	store, err := openStore()
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	config := (&anser.Config{
		Store:                  store,
		MaxToolRounds:          4,
		SearchHistoryRetention: 90 * 24 * time.Hour,
	}).WithRegistry(tools.DefaultRegistry())
	if prompt := os.Getenv("SYSTEM_PROMPT"); prompt != "" {
		config = config.WithSystemPrompt(prompt)
	}
	if keep, err := strconv.ParseBool(os.Getenv("KEEP_HISTORY_ON_ERROR")); err == nil {
		config = config.WithKeepHistoryOnError(keep)
	}

	sweeper := stores.NewRetentionSweeper(store, config.SearchHistoryRetention, os.Getenv("RETENTION_SCHEDULE"))
	if err := sweeper.Start(); err != nil {
		logger.Warn("retention sweeper disabled", "error", err)
	}
	defer sweeper.Stop()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(config),
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// openStore builds the persistence backend from environment variables.
// STORE_TYPE selects pebble (default), sqlite, or postgres; STORE_PATH is the
// pebble directory or sqlite file, and postgres reads the usual PG* variables.
func openStore() (stores.Store, error) {
	storeType := os.Getenv("STORE_TYPE")
	if storeType == "" {
		storeType = "pebble"
	}

	switch storeType {
	case "pebble":
		path := os.Getenv("STORE_PATH")
		if path == "" {
			path = "data/anser.db"
		}
		return stores.NewStore(stores.NewStoreConfig("pebble", path))
	case "sqlite":
		path := os.Getenv("STORE_PATH")
		if path == "" {
			path = "data/anser.sqlite"
		}
		return stores.NewStore(stores.NewStoreConfig("sqlite", path))
	case "postgres":
		if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
			return stores.NewPostgresStoreSimple(dsn)
		}
		port := 5432
		if raw := os.Getenv("PGPORT"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errors.New("invalid PGPORT: " + raw)
			}
			port = parsed
		}
		return stores.NewPostgresStoreDefault(os.Getenv("PGHOST"), os.Getenv("PGUSER"),
			os.Getenv("PGPASSWORD"), os.Getenv("PGDATABASE"), port)
	default:
		return nil, errors.New("unknown STORE_TYPE: " + storeType)
	}
}
