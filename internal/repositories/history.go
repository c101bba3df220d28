package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/sqlite"
	"log/slog"
	"time"
)

// DefaultHistoryLimit is the number of cases kept per player.
const DefaultHistoryLimit = 10

var ErrNotFound = errors.NewSentinel("history entry not found")

type HistoryRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
	limit  int
	now    func() time.Time
}

// NewHistoryRepository creates a repository keeping at most limit cases per player. A non-positive limit falls back
// to DefaultHistoryLimit.
func NewHistoryRepository(dbs *sqlite.Database, logger *slog.Logger, limit int) *HistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryRepository{
		dbs:    dbs,
		logger: logger.With("source", "HistoryRepository"),
		limit:  limit,
		now:    time.Now,
	}
}

type historyRow struct {
	ID         string `db:"id"`
	Details    string `db:"details"`
	RecordedAt string `db:"recorded_at"`
}

func (row historyRow) entry() (models.HistoryEntry, error) {
	var (
		entry = models.HistoryEntry{ID: row.ID}
		err   error
	)
	if err = json.Unmarshal([]byte(row.Details), &entry.Details); err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "unmarshal details", slog.String("id", row.ID))
	}
	if entry.RecordedAt, err = time.Parse(time.RFC3339Nano, row.RecordedAt); err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "parse recorded at", slog.String("id", row.ID))
	}
	return entry, nil
}

// Record prepends details to the player's history and evicts the oldest entries beyond the limit.
func (r *HistoryRepository) Record(
	ctx context.Context,
	playerID string,
	details models.CaseDetails,
) (models.HistoryEntry, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "marshal details")
	}
	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		RecordedAt: r.now().UTC(),
		Details:    details,
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := `INSERT INTO case_history (id, player_id, title, details, recorded_at)
VALUES (:id, :player_id, :title, :details, :recorded_at)`
	if _, err = tx.NamedExecContext(ctx, stmt, map[string]any{
		"id":          entry.ID,
		"player_id":   playerID,
		"title":       details.Case.Title,
		"details":     string(payload),
		"recorded_at": entry.RecordedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "insert history entry")
	}

	stmt = `DELETE FROM case_history
WHERE player_id = @player_id
  AND seq NOT IN (SELECT seq FROM case_history WHERE player_id = @player_id ORDER BY seq DESC LIMIT @limit)`
	var res sql.Result
	if res, err = tx.ExecContext(ctx, stmt,
		sql.Named("player_id", playerID),
		sql.Named("limit", r.limit),
	); err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "evict old entries")
	}

	if err = tx.Commit(); err != nil {
		return models.HistoryEntry{}, errors.Wrap(err, "commit transaction")
	}

	if evicted, _ := res.RowsAffected(); evicted > 0 {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "evicted history entries",
			slog.String("player_id", playerID), slog.Int64("count", evicted))
	}
	return entry, nil
}

// List returns the player's history, most recent first.
func (r *HistoryRepository) List(ctx context.Context, playerID string) ([]models.HistoryEntry, error) {
	var rows []historyRow
	stmt := `SELECT id, details, recorded_at FROM case_history WHERE player_id = ? ORDER BY seq DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, playerID); err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Get returns a single entry of the player's history.
func (r *HistoryRepository) Get(ctx context.Context, playerID string, id string) (models.HistoryEntry, error) {
	var row historyRow
	stmt := `SELECT id, details, recorded_at FROM case_history WHERE player_id = ? AND id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &row, stmt, playerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HistoryEntry{}, errors.Wrap(ErrNotFound, "get history entry", slog.String("id", id))
		}
		return models.HistoryEntry{}, errors.Wrap(err, "get history entry", slog.String("id", id))
	}
	return row.entry()
}

// Remove deletes an entry from the player's history.
func (r *HistoryRepository) Remove(ctx context.Context, playerID string, id string) error {
	res, err := r.dbs.ReadWrite.ExecContext(ctx,
		`DELETE FROM case_history WHERE player_id = ? AND id = ?`, playerID, id)
	if err != nil {
		return errors.Wrap(err, "delete history entry", slog.String("id", id))
	}
	var affected int64
	if affected, err = res.RowsAffected(); err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "delete history entry", slog.String("id", id))
	}
	return nil
}

// ForPlayer binds the repository to one player.
func (r *HistoryRepository) ForPlayer(playerID string) PlayerHistory {
	return PlayerHistory{repo: r, playerID: playerID}
}

// PlayerHistory is the history of a single player.
type PlayerHistory struct {
	repo     *HistoryRepository
	playerID string
}

func (h PlayerHistory) Record(ctx context.Context, details models.CaseDetails) (models.HistoryEntry, error) {
	return h.repo.Record(ctx, h.playerID, details)
}

func (h PlayerHistory) List(ctx context.Context) ([]models.HistoryEntry, error) {
	return h.repo.List(ctx, h.playerID)
}

func (h PlayerHistory) Get(ctx context.Context, id string) (models.HistoryEntry, error) {
	return h.repo.Get(ctx, h.playerID, id)
}

func (h PlayerHistory) Remove(ctx context.Context, id string) error {
	return h.repo.Remove(ctx, h.playerID, id)
}
