package main

import (
	"context"
	"github.com/myrjola/casebook/internal/e2etest"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/logging"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// checkAPI verifies that the server is up and hands out a session in the lobby. It does not start a case so that no
// oracle quota is spent.
func checkAPI(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	resp, err := client.Get(ctx, "/api/healthy")
	if err != nil {
		return errors.Wrap(err, "check health")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("unhealthy", slog.Int("status", resp.StatusCode))
	}

	if resp, err = client.Get(ctx, "/api/game"); err != nil {
		return errors.Wrap(err, "fetch game")
	}
	var game struct {
		State     string `json:"state"`
		CSRFToken string `json:"csrfToken"`
	}
	if err = resp.Decode(&game); err != nil {
		return errors.Wrap(err, "decode game")
	}
	if game.State != "lobby" || game.CSRFToken == "" {
		return errors.New("unexpected game", slog.String("state", game.State),
			slog.Bool("has_csrf_token", game.CSRFToken != ""))
	}

	if resp, err = client.Get(ctx, "/api/history"); err != nil {
		return errors.Wrap(err, "fetch history")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("history unavailable", slog.Int("status", resp.StatusCode))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		url    = "https://" + os.Args[1]
		client *e2etest.Client
		err    error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = checkAPI(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error checking api", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful")
	os.Exit(0)
}
