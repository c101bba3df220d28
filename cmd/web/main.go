package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/casebook/internal/ai"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/logging"
	"github.com/myrjola/casebook/internal/pprofserver"
	"github.com/myrjola/casebook/internal/repositories"
	"github.com/myrjola/casebook/internal/sqlite"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	sessionCleanupInterval = time.Hour
	optimizeInterval       = time.Hour
)

type application struct {
	logger         *slog.Logger
	cfg            config.Config
	sessionManager *scs.SessionManager
	history        *repositories.HistoryRepository
	players        *players
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.PprofAddr != "" {
		// Keep pprof on a loopback address so that it's not open to the world.
		if _, err = pprofserver.Launch(ctx, cfg.PprofAddr, logger); err != nil {
			return errors.Wrap(err, "launch pprof server")
		}
	}

	var dbs *sqlite.Database
	if dbs, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() {
		if closeErr := dbs.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db", slog.String("url", cfg.SqliteURL))
	go dbs.RunOptimizer(ctx, optimizeInterval)

	var oracle *ai.Client
	if oracle, err = ai.New(ctx, cfg.Oracle, logger); err != nil {
		return errors.Wrap(err, "create oracle client")
	}

	store := sqlite3store.NewWithCleanupInterval(dbs.ReadWrite.DB, sessionCleanupInterval)
	defer store.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Name = "casebook_session"
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode

	history := repositories.NewHistoryRepository(dbs, logger, cfg.HistoryLimit)
	app := application{
		logger:         logger,
		cfg:            cfg,
		sessionManager: sessionManager,
		history:        history,
		players: newPlayers(cfg.SessionLifetime, func(playerID string) *game.Controller {
			return game.NewController(oracle, history.ForPlayer(playerID), logger)
		}),
	}
	go app.players.runSweeper(ctx, logger)

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env file", errors.SlogError(err))
		stop()
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		stop()
		os.Exit(1)
	}
	stop()
}
