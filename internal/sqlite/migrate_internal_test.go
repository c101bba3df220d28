package sqlite

import (
	"context"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := connect(":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries:       []string{"INSERT INTO test (name) VALUES ('test')", "SELECT * FROM test"},
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "index survives table rebuild",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, age INT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT);
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE (FAIL, 'fail'); END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT);
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE (FAIL, 'fail'); END;`,
				`CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT);
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			db := newTestDatabase(t)
			for _, schemaDefinition := range tt.schemaDefinitions {
				require.NoError(t, db.migrate(ctx, schemaDefinition))
			}
			for _, query := range tt.testQueries {
				_, err := db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr {
					require.Error(t, err, query)
				} else {
					require.NoError(t, err, query)
				}
			}
		})
	}
}

func TestDatabase_migrate_rebuildKeepsRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.migrate(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, obsolete TEXT)"))
	_, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO test (name, obsolete) VALUES ('Conan', 'x')")
	require.NoError(t, err)

	rebuilt := "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT NOT NULL, role TEXT NOT NULL DEFAULT 'detective')"
	require.NoError(t, db.migrate(ctx, rebuilt))

	var rows []struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
		Role string `db:"role"`
	}
	require.NoError(t, db.ReadOnly.SelectContext(ctx, &rows, "SELECT id, name, role FROM test"))
	require.Len(t, rows, 1)
	require.Equal(t, "Conan", rows[0].Name)
	require.Equal(t, "detective", rows[0].Role)

	var sql string
	require.NoError(t, db.ReadOnly.GetContext(ctx, &sql, "SELECT sql FROM sqlite_schema WHERE name = 'test'"))
	require.Equal(t, rebuilt, sql, "the rebuilt table keeps the definition verbatim")

	var leftovers int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &leftovers,
		"SELECT COUNT(*) FROM sqlite_schema WHERE name LIKE '%_migration_old'"))
	require.Zero(t, leftovers)
}

func TestDatabase_migrate_invalidDefinition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDatabase(t)
	require.NoError(t, db.migrate(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY)"))

	require.Error(t, db.migrate(ctx, "CREATE TABLE broken ("))

	_, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO test (id) VALUES (1)")
	require.NoError(t, err, "a failed sync leaves the schema alone")
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	var objects []string
	require.NoError(t, db.ReadOnly.SelectContext(ctx, &objects,
		"SELECT type || ' ' || name FROM sqlite_schema WHERE name NOT LIKE 'sqlite_%' ORDER BY type, name"))
	require.Equal(t, []string{
		"index case_history_player_idx",
		"index sessions_expiry_idx",
		"table case_history",
		"table sessions",
	}, objects)

	_, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO case_history (id, player_id, title, details, recorded_at)
		VALUES ('a', 'p', 't', '{}', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	// Synchronizing an up-to-date database changes nothing.
	require.NoError(t, db.migrate(ctx, schemaDefinition))
	var count int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM case_history"))
	require.Equal(t, 1, count)

	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM sessions")
	require.Error(t, err, "read-only pool must reject writes")

	db.optimize(ctx)
}
