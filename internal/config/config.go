package config

import (
	"github.com/myrjola/casebook/internal/ai"
	"github.com/myrjola/casebook/internal/envstruct"
	"github.com/myrjola/casebook/internal/errors"
	"log/slog"
	"time"
)

// MinRequestTimeout leaves room for the 500ms margin the web server's timeout handler subtracts.
const MinRequestTimeout = time.Second

var ErrRequestTimeoutTooShort = errors.NewSentinel("request timeout too short")

// Config is shared by the web server and the terminal client.
type Config struct {
	// Addr is the address the web server listens on. Use ":0" for a random port.
	Addr string `env:"CASEBOOK_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the database file, or ":memory:" for a throwaway database.
	SqliteURL string `env:"CASEBOOK_SQLITE_URL" envDefault:"./casebook.sqlite"`
	// PprofAddr enables the pprof listener when set.
	PprofAddr       string        `env:"CASEBOOK_PPROF_ADDR" envDefault:""`
	HistoryLimit    int           `env:"CASEBOOK_HISTORY_LIMIT" envDefault:"10"`
	RequestTimeout  time.Duration `env:"CASEBOOK_REQUEST_TIMEOUT" envDefault:"2m"`
	SessionLifetime time.Duration `env:"CASEBOOK_SESSION_LIFETIME" envDefault:"12h"`
	// Player identifies the terminal client's history.
	Player string `env:"CASEBOOK_PLAYER" envDefault:"local"`
	Oracle ai.Config
}

// Load reads the configuration from the environment through lookupEnv.
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	if cfg.RequestTimeout < MinRequestTimeout {
		return Config{}, errors.Wrap(ErrRequestTimeoutTooShort, "validate config",
			slog.Duration("request_timeout", cfg.RequestTimeout), slog.Duration("min", MinRequestTimeout))
	}
	return cfg, nil
}
