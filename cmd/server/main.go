// Package main is the entry point for the Wheelhouse options-trading journal
// service. It wires configuration, logging, the three SQLite databases, and
// the HTTP server that exposes candidate generation, policy management, and
// evaluation endpoints.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wheelhouse-trading/wheelhouse/internal/config"
	"github.com/wheelhouse-trading/wheelhouse/internal/database"
	"github.com/wheelhouse-trading/wheelhouse/internal/server"
	"github.com/wheelhouse-trading/wheelhouse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger isn't up yet; stderr is all we have.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting Wheelhouse")

	// Databases: policy configuration, evaluation journal, chain cache.
	policyDB, err := openDatabase(cfg.DataDir, "policy", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open policy database")
	}
	defer policyDB.Close()

	journalDB, err := openDatabase(cfg.DataDir, "journal", database.ProfileJournal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	cacheDB, err := openDatabase(cfg.DataDir, "cache", database.ProfileCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	srv := server.New(server.Config{
		Log:       log,
		PolicyDB:  policyDB,
		JournalDB: journalDB,
		CacheDB:   cacheDB,
		Config:    cfg,
	})

	// Run the server in the background so we can wait for signals.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Wheelhouse stopped")
}

// openDatabase opens and migrates one of the application databases.
func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
