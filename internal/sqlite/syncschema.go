package sqlite

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/casebook/internal/errors"
	"log/slog"
	"os"
	"slices"
	"strings"
	"syscall"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// schemaObject is a row of sqlite_schema.
type schemaObject struct {
	Type      string `db:"type"`
	Name      string `db:"name"`
	TableName string `db:"tbl_name"`
	SQL       string `db:"sql"`
}

// targetSchema is the schema definition applied to an empty database.
type targetSchema struct {
	objects []schemaObject
	columns map[string][]string
}

func (s targetSchema) object(typ string, name string) (schemaObject, bool) {
	i := slices.IndexFunc(s.objects, func(o schemaObject) bool { return o.Type == typ && o.Name == name })
	if i < 0 {
		return schemaObject{}, false
	}
	return s.objects[i], true
}

const objectsQuery = `SELECT type, name, tbl_name, sql
FROM sqlite_schema
WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
ORDER BY rowid`

// migrate synchronizes the database schema with schemaDefinition.
//
// The migration is declarative:
//
// 1. Tables missing from the definition are dropped,
// 2. New tables are created,
// 3. Changed tables are rebuilt following the 12-step procedure https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Indexes, triggers and views are recreated when their definition changed.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrate(ctx context.Context, schemaDefinition string) error {
	target, err := loadTargetSchema(ctx, schemaDefinition)
	if err != nil {
		return errors.Wrap(err, "load target schema")
	}

	// The PRAGMAs below are per connection, so everything runs on the one read-write connection.
	var conn *sqlx.Conn
	if conn, err = db.ReadWrite.Connx(ctx); err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() {
		_ = conn.Close()
	}()

	// Step 1: Disable foreign key validation temporarily. Legacy renames leave references in other tables pointing to
	// the original name, which the rebuilt table takes over.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		ctx := context.WithoutCancel(ctx)
		if _, resetErr := conn.ExecContext(ctx, "PRAGMA legacy_alter_table = OFF; PRAGMA foreign_keys = ON"); resetErr != nil {
			resetErr = errors.Wrap(resetErr, "re-enable foreign key validation")
			db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption", errors.SlogError(resetErr))
			if killErr := syscall.Kill(syscall.Getpid(), syscall.SIGINT); killErr != nil {
				os.Exit(1)
			}
		}
	}()
	if _, err = conn.ExecContext(ctx, "PRAGMA legacy_alter_table = ON"); err != nil {
		return errors.Wrap(err, "enable legacy alter table")
	}

	// Step 2: Start transaction.
	var tx *sqlx.Tx
	if tx, err = conn.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		// Rollback after a successful commit returns sql.ErrTxDone which is expected.
		_ = tx.Rollback()
	}()

	// Steps 3-7.
	if err = db.migrateTables(ctx, tx, target); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Steps 8-9: Recreate indexes, triggers and views.
	if err = db.migrateObjects(ctx, tx, target); err != nil {
		return errors.Wrap(err, "migrate indexes, triggers and views")
	}

	// Step 10: Check foreign key constraints.
	var violations int
	if err = tx.GetContext(ctx, &violations, "SELECT COUNT(*) FROM pragma_foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if violations > 0 {
		return errors.New("foreign key violations after migration", slog.Int("violations", violations))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// loadTargetSchema applies schemaDefinition to a private in-memory database and reads back the resulting objects.
func loadTargetSchema(ctx context.Context, schemaDefinition string) (targetSchema, error) {
	target := targetSchema{objects: nil, columns: make(map[string][]string)}
	schemaDB, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return target, errors.Wrap(err, "open schema target database")
	}
	defer func() {
		_ = schemaDB.Close()
	}()
	// Every connection to :memory: is a separate database.
	schemaDB.SetMaxOpenConns(1)

	if strings.TrimSpace(schemaDefinition) != "" {
		if _, err = schemaDB.ExecContext(ctx, schemaDefinition); err != nil {
			return target, errors.Wrap(err, "apply schema definition")
		}
	}
	if err = schemaDB.SelectContext(ctx, &target.objects, objectsQuery); err != nil {
		return target, errors.Wrap(err, "query schema objects")
	}
	for _, o := range target.objects {
		if o.Type != "table" {
			continue
		}
		var columns []string
		if err = schemaDB.SelectContext(ctx, &columns, "SELECT name FROM pragma_table_info(?)", o.Name); err != nil {
			return target, errors.Wrap(err, "query columns", slog.String("table", o.Name))
		}
		target.columns[o.Name] = columns
	}
	return target, nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sqlx.Tx, target targetSchema) error {
	var current []schemaObject
	if err := tx.SelectContext(ctx, &current, objectsQuery); err != nil {
		return errors.Wrap(err, "query current schema")
	}

	// Step 3: Drop deleted tables.
	for _, o := range current {
		if o.Type != "table" {
			continue
		}
		if _, ok := target.object("table", o.Name); ok {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", o.Name))
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quote(o.Name)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", o.Name))
		}
	}

	for _, want := range target.objects {
		if want.Type != "table" {
			continue
		}
		i := slices.IndexFunc(current, func(o schemaObject) bool { return o.Type == "table" && o.Name == want.Name })
		switch {
		case i < 0:
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("table", want.Name))
			if _, err := tx.ExecContext(ctx, want.SQL); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", want.Name))
			}
		case current[i].SQL != want.SQL:
			if err := db.rebuildTable(ctx, tx, current[i], want, target.columns[want.Name]); err != nil {
				return errors.Wrap(err, "rebuild table", slog.String("table", want.Name))
			}
		}
	}
	return nil
}

// rebuildTable moves the rows of a changed table into a table created from the new definition.
func (db *Database) rebuildTable(
	ctx context.Context,
	tx *sqlx.Tx,
	current schemaObject,
	want schemaObject,
	wantColumns []string,
) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table", slog.String("table", want.Name),
		slog.String("current_sql", current.SQL), slog.String("new_sql", want.SQL))

	var currentColumns []string
	if err := tx.SelectContext(ctx, &currentColumns, "SELECT name FROM pragma_table_info(?)", current.Name); err != nil {
		return errors.Wrap(err, "query columns")
	}
	var common []string
	for _, column := range wantColumns {
		if slices.Contains(currentColumns, column) {
			common = append(common, quote(column))
		}
	}

	// Step 4: Move the old table out of the way so the new one is created from its definition verbatim. Its indexes
	// and triggers go with it.
	oldName := want.Name + "_migration_old"
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(current.Name),
		quote(oldName))); err != nil {
		return errors.Wrap(err, "rename old table")
	}
	if _, err := tx.ExecContext(ctx, want.SQL); err != nil {
		return errors.Wrap(err, "create new table")
	}

	// Step 5: Copy common columns.
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", //nolint:gosec // identifiers are quoted
			quote(want.Name), columns, columns, quote(oldName))
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data", slog.String("query", copySQL))
		}
	}

	// Steps 6-7: Drop the old table. The new one already has the right name.
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+quote(oldName)); err != nil {
		return errors.Wrap(err, "drop old table")
	}
	return nil
}

// migrateObjects drops indexes, triggers and views that are gone or changed, then creates the missing ones.
func (db *Database) migrateObjects(ctx context.Context, tx *sqlx.Tx, target targetSchema) error {
	var current []schemaObject
	if err := tx.SelectContext(ctx, &current, objectsQuery); err != nil {
		return errors.Wrap(err, "query current schema")
	}

	kept := make(map[string]bool)
	for _, o := range current {
		if o.Type == "table" {
			continue
		}
		if want, ok := target.object(o.Type, o.Name); ok && want.SQL == o.SQL {
			kept[o.Type+"/"+o.Name] = true
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping schema object",
			slog.String("type", o.Type), slog.String("name", o.Name))
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(o.Type),
			quote(o.Name))); err != nil {
			return errors.Wrap(err, "drop schema object", slog.String("name", o.Name))
		}
	}

	for _, want := range target.objects {
		if want.Type == "table" || kept[want.Type+"/"+want.Name] {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating schema object",
			slog.String("type", want.Type), slog.String("name", want.Name))
		if _, err := tx.ExecContext(ctx, want.SQL); err != nil {
			return errors.Wrap(err, "create schema object", slog.String("name", want.Name))
		}
	}
	return nil
}

// quote wraps an identifier in double quotes so that names that are SQLite keywords work too.
func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
