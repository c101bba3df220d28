package main

import (
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func TestPlayers(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	created := 0
	p := newPlayers(time.Hour, func(string) *game.Controller {
		created++
		return game.NewController(&testhelpers.Oracle{}, nil, testhelpers.NewLogger(io.Discard)) //nolint:exhaustruct // unused
	})
	p.now = func() time.Time { return now }

	first := p.controller("player-1")
	require.Same(t, first, p.controller("player-1"))
	p.controller("player-2")
	require.Equal(t, 2, created)

	now = now.Add(45 * time.Minute)
	p.controller("player-2")
	now = now.Add(30 * time.Minute)
	require.Equal(t, 1, p.sweep(), "player-1 has been idle for over an hour")
	require.Equal(t, 1, p.len())

	require.NotSame(t, first, p.controller("player-1"), "a swept player starts over")
	require.Equal(t, 3, created)
}
