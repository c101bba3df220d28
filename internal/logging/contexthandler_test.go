package logging_test

import (
	"bytes"
	"context"
	"github.com/myrjola/casebook/internal/logging"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil))).With("source", "test")

	ctx := logging.WithAttrs(context.Background(), slog.String("player_id", "p1"))
	sibling := logging.WithAttrs(ctx, slog.String("case_id", "c1"))
	other := logging.WithAttrs(ctx, slog.String("case_id", "c2"))

	logger.LogAttrs(sibling, slog.LevelInfo, "first")
	logger.LogAttrs(other, slog.LevelInfo, "second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.Contains(t, string(lines[0]), "source=test")
	require.Contains(t, string(lines[0]), "player_id=p1")
	require.Contains(t, string(lines[0]), "case_id=c1")
	require.NotContains(t, string(lines[0]), "case_id=c2")
	require.Contains(t, string(lines[1]), "case_id=c2")
}
