package repositories_test

import (
	"context"
	"fmt"
	"github.com/myrjola/casebook/internal/repositories"
	"github.com/myrjola/casebook/internal/sqlite"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	return dbs
}

func newTestRepository(t *testing.T, limit int) *repositories.HistoryRepository {
	t.Helper()
	return repositories.NewHistoryRepository(newTestDB(t), testhelpers.NewLogger(io.Discard), limit)
}

func TestHistoryRepository_Record(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t, repositories.DefaultHistoryLimit)

	details := testhelpers.SampleCase("The Locked Shop")
	entry, err := repo.Record(ctx, "player-1", details)
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.RecordedAt.IsZero())

	entries, err := repo.List(ctx, "player-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entry.ID, entries[0].ID)
	require.Equal(t, details, entries[0].Details, "details including the solution must round-trip")
	require.True(t, entry.RecordedAt.Equal(entries[0].RecordedAt))

	got, err := repo.Get(ctx, "player-1", entry.ID)
	require.NoError(t, err)
	require.Equal(t, details, got.Details)
}

func TestHistoryRepository_Eviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t, repositories.DefaultHistoryLimit)

	for i := 1; i <= 11; i++ {
		_, err := repo.Record(ctx, "player-1", testhelpers.SampleCase(fmt.Sprintf("Case %d", i)))
		require.NoError(t, err)

		entries, err := repo.List(ctx, "player-1")
		require.NoError(t, err)
		require.LessOrEqual(t, len(entries), repositories.DefaultHistoryLimit)
	}

	entries, err := repo.List(ctx, "player-1")
	require.NoError(t, err)
	require.Len(t, entries, repositories.DefaultHistoryLimit)
	require.Equal(t, "Case 11", entries[0].Details.Case.Title, "newest first")
	require.Equal(t, "Case 2", entries[len(entries)-1].Details.Case.Title, "oldest evicted")
}

func TestHistoryRepository_PlayersAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t, 2)

	for i := range 3 {
		_, err := repo.Record(ctx, "player-1", testhelpers.SampleCase(fmt.Sprintf("Mine %d", i)))
		require.NoError(t, err)
	}
	theirs, err := repo.Record(ctx, "player-2", testhelpers.SampleCase("Theirs"))
	require.NoError(t, err)

	entries, err := repo.List(ctx, "player-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, "player-2")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = repo.Get(ctx, "player-1", theirs.ID)
	require.ErrorIs(t, err, repositories.ErrNotFound)
	require.ErrorIs(t, repo.Remove(ctx, "player-1", theirs.ID), repositories.ErrNotFound)
}

func TestHistoryRepository_RemoveWithDuplicateTitles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	history := newTestRepository(t, repositories.DefaultHistoryLimit).ForPlayer("player-1")

	first, err := history.Record(ctx, testhelpers.SampleCase("Death on the Nile"))
	require.NoError(t, err)
	second, err := history.Record(ctx, testhelpers.SampleCase("Death on the Nile"))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, history.Remove(ctx, first.ID))

	entries, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, second.ID, entries[0].ID, "only the addressed entry is removed")

	require.ErrorIs(t, history.Remove(ctx, first.ID), repositories.ErrNotFound)
	_, err = history.Get(ctx, "nonexistent")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestHistoryRepository_EmptyList(t *testing.T) {
	t.Parallel()
	entries, err := newTestRepository(t, 0).List(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, entries)
}
