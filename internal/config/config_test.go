package config_test

import (
	"github.com/myrjola/casebook/internal/ai"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/envstruct"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    config.Config
		wantErr error
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: config.Config{
				Addr:            "localhost:4000",
				SqliteURL:       "./casebook.sqlite",
				HistoryLimit:    10,
				RequestTimeout:  2 * time.Minute,
				SessionLifetime: 12 * time.Hour,
				Player:          "local",
				Oracle:          ai.Config{Provider: ai.ProviderGemini},
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"CASEBOOK_ADDR":            ":0",
				"CASEBOOK_SQLITE_URL":      ":memory:",
				"CASEBOOK_PPROF_ADDR":      "[::1]:6060",
				"CASEBOOK_HISTORY_LIMIT":   "3",
				"CASEBOOK_REQUEST_TIMEOUT": "15s",
				"CASEBOOK_PLAYER":          "conan",
				"CASEBOOK_ORACLE":          "openai",
				"CASEBOOK_MODEL":           "gpt-4o",
				"OPENAI_API_KEY":           "sk-test",
			},
			want: config.Config{
				Addr:            ":0",
				SqliteURL:       ":memory:",
				PprofAddr:       "[::1]:6060",
				HistoryLimit:    3,
				RequestTimeout:  15 * time.Second,
				SessionLifetime: 12 * time.Hour,
				Player:          "conan",
				Oracle:          ai.Config{Provider: "openai", Model: "gpt-4o", OpenAIAPIKey: "sk-test"},
			},
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"CASEBOOK_REQUEST_TIMEOUT": "soon"},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "request timeout below the handler margin",
			env:     map[string]string{"CASEBOOK_REQUEST_TIMEOUT": "300ms"},
			wantErr: config.ErrRequestTimeoutTooShort,
		},
		{
			name:    "negative request timeout",
			env:     map[string]string{"CASEBOOK_REQUEST_TIMEOUT": "-5s"},
			wantErr: config.ErrRequestTimeoutTooShort,
		},
		{
			name: "minimum request timeout",
			env:  map[string]string{"CASEBOOK_REQUEST_TIMEOUT": "1s"},
			want: config.Config{
				Addr:            "localhost:4000",
				SqliteURL:       "./casebook.sqlite",
				HistoryLimit:    10,
				RequestTimeout:  time.Second,
				SessionLifetime: 12 * time.Hour,
				Player:          "local",
				Oracle:          ai.Config{Provider: ai.ProviderGemini},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := config.Load(lookup(tt.env))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
