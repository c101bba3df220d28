package main

import (
	"context"
	"github.com/myrjola/casebook/internal/game"
	"log/slog"
	"sync"
	"time"
)

type playerEntry struct {
	controller *game.Controller
	lastSeen   time.Time
}

// players keeps one game controller per player in memory. Controllers idle for longer than the session lifetime are
// dropped by the sweeper; the case history survives in the database.
type players struct {
	mu            sync.Mutex
	entries       map[string]*playerEntry
	idle          time.Duration
	now           func() time.Time
	newController func(playerID string) *game.Controller
}

func newPlayers(idle time.Duration, newController func(playerID string) *game.Controller) *players {
	return &players{
		mu:            sync.Mutex{},
		entries:       make(map[string]*playerEntry),
		idle:          idle,
		now:           time.Now,
		newController: newController,
	}
}

// controller returns the player's controller, creating it on first use.
func (p *players) controller(playerID string) *game.Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[playerID]
	if !ok {
		entry = &playerEntry{controller: p.newController(playerID), lastSeen: time.Time{}}
		p.entries[playerID] = entry
	}
	entry.lastSeen = p.now()
	return entry.controller
}

// sweep drops idle controllers and returns how many were dropped.
func (p *players) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.idle)
	dropped := 0
	for playerID, entry := range p.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(p.entries, playerID)
			dropped++
		}
	}
	return dropped
}

func (p *players) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *players) runSweeper(ctx context.Context, logger *slog.Logger) {
	interval := p.idle / 4 //nolint:mnd // sweep a few times per lifetime
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := p.sweep(); dropped > 0 {
				logger.LogAttrs(ctx, slog.LevelDebug, "dropped idle game sessions",
					slog.Int("dropped", dropped), slog.Int("remaining", p.len()))
			}
		}
	}
}
