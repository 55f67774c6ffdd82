// Package daemon runs a filebridge host: a bridge server answering the
// diagnostic methods, with the call journal attached when enabled.
package daemon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/internal/config"
	"github.com/berrythewa/filebridge/internal/handlers"
	"github.com/berrythewa/filebridge/internal/storage"
)

// Options configures Run.
type Options struct {
	Config *config.Config
	Logger *zap.Logger

	// Register adds host methods next to the built-in ones.
	Register func(mux *bridge.Mux)

	// Started is called once the server is polling.
	Started func(server *bridge.Server)
}

// Run serves requests until ctx is done, then stops the server and leaves
// the channel directory clean.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		return fmt.Errorf("daemon: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := handlers.NewMux()
	if opts.Register != nil {
		opts.Register(mux)
	}

	// left nil when disabled; a nil *BoltStorage would not compare equal to nil
	var journal storage.Journal
	if cfg.Journal.Enabled {
		store, err := storage.NewBoltStorage(storage.StorageConfig{
			DBPath:    cfg.Journal.DBPath,
			KeepItems: cfg.Journal.KeepItems,
			Logger:    logger.Named("journal"),
		})
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close journal", zap.Error(err))
			}
		}()
		handlers.RegisterJournal(mux, store)
		journal = store
	}

	server := bridge.NewServer(bridge.ServerConfig{
		Dir:          cfg.Channel.Dir,
		PollInterval: cfg.Server.PollInterval.Std(),
		Logger:       logger.Named("server"),
		Journal:      journal,
	}, mux)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bridge server: %w", err)
	}
	logger.Info("Host started",
		zap.String("dir", server.Dir().Root()),
		zap.Strings("methods", mux.Methods()),
		zap.Bool("journal", journal != nil))
	if opts.Started != nil {
		opts.Started(server)
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		return fmt.Errorf("failed to stop bridge server: %w", err)
	}
	logger.Info("Host stopped")
	return nil
}
