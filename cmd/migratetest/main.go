package main

import (
	"context"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/sqlite"
	"github.com/myrjola/casebook/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

// Synchronizes the schema of a copy of the production database and checks that the game tables are readable.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err    error
		start  = time.Now()
		ctx    context.Context
		cfg    config.Config
		cancel context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds
	defer cancel()

	if cfg, err = config.Load(os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error loading config", errors.SlogError(err))
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", cfg.SqliteURL), errors.SlogError(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	var counts struct {
		Cases    int `db:"cases"`
		Players  int `db:"players"`
		Sessions int `db:"sessions"`
	}
	err = db.ReadOnly.GetContext(ctx, &counts, `SELECT
		(SELECT COUNT(*) FROM case_history) AS cases,
		(SELECT COUNT(DISTINCT player_id) FROM case_history) AS players,
		(SELECT COUNT(*) FROM sessions) AS sessions`)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting rows", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // the deferred close is not needed on failure
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "row counts", slog.Int("cases", counts.Cases),
		slog.Int("players", counts.Players), slog.Int("sessions", counts.Sessions))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful", slog.Duration("duration", time.Since(start)))
}
