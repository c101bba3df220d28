// Package setup opens the resources shared by the terminal commands.
package setup

import (
	"context"
	"github.com/myrjola/casebook/internal/ai"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/logging"
	"github.com/myrjola/casebook/internal/repositories"
	"github.com/myrjola/casebook/internal/sqlite"
	"io"
	"log/slog"
	"os"
)

// Env holds the player's history store and configuration. Close it when done.
type Env struct {
	Config  config.Config
	Logger  *slog.Logger
	History repositories.PlayerHistory
	dbs     *sqlite.Database
}

// NewLogger logs warnings and errors to w so that they don't drown the game output.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelWarn,
		ReplaceAttr: nil,
	})))
}

// Open loads the configuration from the environment and connects to the database.
func Open(ctx context.Context) (*Env, error) {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logger := NewLogger(os.Stderr)
	var dbs *sqlite.Database
	if dbs, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return nil, errors.Wrap(err, "connect to database", slog.String("url", cfg.SqliteURL))
	}
	history := repositories.NewHistoryRepository(dbs, logger, cfg.HistoryLimit).ForPlayer(cfg.Player)
	return &Env{Config: cfg, Logger: logger, History: history, dbs: dbs}, nil
}

// Oracle creates the generation service client.
func (e *Env) Oracle(ctx context.Context) (*ai.Client, error) {
	client, err := ai.New(ctx, e.Config.Oracle, e.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "create oracle client")
	}
	return client, nil
}

func (e *Env) Close() error {
	if err := e.dbs.Close(); err != nil {
		return errors.Wrap(err, "close database")
	}
	return nil
}
