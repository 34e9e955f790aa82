package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// ExportTables reads every table in store.Tables inside one read
// transaction, so the result is a consistent point-in-time copy.
func (s *Store) ExportTables(ctx context.Context) (map[string][]store.Row, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return exportTables(ctx, s.db)
}

// LoadDatabaseFile reads the tables of another HobbyShelf database file,
// such as a safety backup, without opening it for writing.
func LoadDatabaseFile(ctx context.Context, path string) (map[string][]store.Row, int, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()
	return exportTables(ctx, db)
}

func exportTables(ctx context.Context, db *sql.DB) (map[string][]store.Row, int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("read schema version: %w", err)
	}

	tables := make(map[string][]store.Row, len(store.Tables))
	for _, table := range store.Tables {
		rows, err := dumpTable(ctx, tx, table)
		if err != nil {
			return nil, 0, fmt.Errorf("export %s: %w", table, err)
		}
		tables[table] = rows
	}
	return tables, version, nil
}

func dumpTable(ctx context.Context, tx *sql.Tx, table string) ([]store.Row, error) {
	rows, err := tx.QueryContext(ctx, `SELECT * FROM `+quoteIdent(table)+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []store.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func vacuumInto(ctx context.Context, db *sql.DB, path string) error {
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}

// column describes one destination column for restore checks.
type column struct {
	name     string
	required bool // NOT NULL without a default and not the rowid alias
}

// ReplaceAll swaps the contents of the given tables for the supplied rows in
// one transaction while holding the store exclusively. Only tables listed in
// opts.Only are touched when it is non-empty. Tables the store does not know
// are reported as skipped. The safety copy, if requested, is taken under the
// same hold.
//
// Foreign keys are switched off on the restore connection so rows can be
// written table by table, then checked with foreign_key_check before commit.
// Tag usage counts and tag strings are recomputed from entry_tags and the
// search index is rebuilt inside the same transaction.
func (s *Store) ReplaceAll(ctx context.Context, tables map[string][]store.Row, opts store.ReplaceOptions) (*store.ReplaceResult, error) {
	only := opts.Only
	for _, name := range only {
		if !slices.Contains(store.Tables, name) {
			return nil, store.ErrUnknownTable.WithMessage(name)
		}
	}

	result := &store.ReplaceResult{Imported: make(map[string]int)}
	var selected []string
	for _, name := range store.Tables {
		if _, ok := tables[name]; !ok {
			continue
		}
		if len(only) > 0 && !slices.Contains(only, name) {
			continue
		}
		selected = append(selected, name)
	}
	for _, name := range slices.Sorted(maps.Keys(tables)) {
		if !slices.Contains(store.Tables, name) {
			result.Skipped = append(result.Skipped, name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.SafetyCopy != "" {
		if err := vacuumInto(ctx, s.db, opts.SafetyCopy); err != nil {
			return nil, fmt.Errorf("safety copy: %w", err)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire restore connection: %w", err)
	}
	defer conn.Close()

	schemas := make(map[string][]column, len(selected))
	for _, name := range selected {
		cols, err := tableColumns(ctx, conn, name)
		if err != nil {
			return nil, err
		}
		if err := checkRows(name, cols, tables[name]); err != nil {
			return nil, err
		}
		schemas[name] = cols
	}

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `PRAGMA foreign_keys = ON`); err != nil {
			s.logger.Error("re-enable foreign keys after restore, discarding connection", "error", err)
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin restore: %w", err)
	}
	tx := store.NewTx(sqlTx)
	defer func() { _ = tx.Rollback() }()

	for _, name := range slices.Backward(selected) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(name)); err != nil {
			return nil, fmt.Errorf("clear %s: %w", name, err)
		}
	}
	for _, name := range selected {
		n, err := insertRows(ctx, tx, name, schemas[name], tables[name])
		if err != nil {
			return nil, err
		}
		result.Imported[name] = n
	}

	if err := foreignKeyCheck(ctx, tx); err != nil {
		return nil, err
	}
	if _, err := recountTags(ctx, tx); err != nil {
		return nil, err
	}
	if _, err := rewriteTagStrings(ctx, tx); err != nil {
		return nil, err
	}
	if result.Indexed, err = s.reindexAll(ctx, tx); err != nil {
		return nil, fmt.Errorf("rebuild search index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	return result, nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]column, error) {
	rows, err := conn.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			name, typ string
			notNull   bool
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		rowidAlias := pk == 1 && strings.EqualFold(typ, "INTEGER")
		cols = append(cols, column{name: name, required: notNull && !dflt.Valid && !rowidAlias})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, store.ErrUnknownTable.WithMessage(table)
	}
	return cols, nil
}

// checkRows rejects rows carrying columns the table lacks or missing
// required ones.
func checkRows(table string, cols []column, rows []store.Row) error {
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.name] = true
	}
	for i, row := range rows {
		for _, key := range slices.Sorted(maps.Keys(row)) {
			if !known[key] {
				return store.ErrSchemaMismatch.WithMessage(
					fmt.Sprintf("table %s row %d: unknown column %q", table, i, key))
			}
		}
		for _, c := range cols {
			if _, ok := row[c.name]; c.required && !ok {
				return store.ErrSchemaMismatch.WithMessage(
					fmt.Sprintf("table %s row %d: missing column %q", table, i, c.name))
			}
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *store.Tx, table string, cols []column, rows []store.Row) (int, error) {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			st.Close()
		}
	}()

	for i, row := range rows {
		names := make([]string, 0, len(cols))
		args := make([]any, 0, len(cols))
		for _, c := range cols {
			v, ok := row[c.name]
			if !ok {
				continue
			}
			arg, err := sqlValue(v)
			if err != nil {
				return 0, store.ErrSchemaMismatch.WithMessage(
					fmt.Sprintf("table %s row %d column %q: %v", table, i, c.name, err))
			}
			names = append(names, c.name)
			args = append(args, arg)
		}

		key := strings.Join(names, ",")
		st, ok := stmts[key]
		if !ok {
			quoted := make([]string, len(names))
			for j, n := range names {
				quoted[j] = quoteIdent(n)
			}
			var err error
			st, err = tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+
				` (`+strings.Join(quoted, ", ")+`) VALUES (`+placeholders(len(names))+`)`)
			if err != nil {
				return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
			}
			stmts[key] = st
		}
		if _, err := st.ExecContext(ctx, args...); err != nil {
			if isUniqueViolation(err) || strings.Contains(err.Error(), "constraint failed") {
				return 0, store.ErrIntegrity.WithMessage(fmt.Sprintf("table %s row %d: %v", table, i, err))
			}
			return 0, fmt.Errorf("insert into %s row %d: %w", table, i, err)
		}
	}
	return len(rows), nil
}

// sqlValue converts a decoded snapshot value to a driver argument. Whole
// numbers decoded as float64 go back to integers.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int64, []byte:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func foreignKeyCheck(ctx context.Context, tx *store.Tx) error {
	rows, err := tx.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		violations = append(violations, fmt.Sprintf("%s row %d references missing %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(violations) > 0 {
		msg := strings.Join(violations[:min(len(violations), 5)], "; ")
		if len(violations) > 5 {
			msg += fmt.Sprintf(" (and %d more)", len(violations)-5)
		}
		return store.ErrIntegrity.WithMessage(msg)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
