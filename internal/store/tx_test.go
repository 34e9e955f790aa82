package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestTx_HooksRunInOrder(t *testing.T) {
	db := openTestDB(t)
	sqlTx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx := NewTx(sqlTx)
	defer tx.Rollback()

	var calls []string
	tx.BeforeCommit(func() error { calls = append(calls, "first"); return nil })
	tx.BeforeCommit(func() error { calls = append(calls, "second"); return nil })
	tx.OnFailure(func() { calls = append(calls, "failure") })

	if _, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("unexpected hook calls: %v", calls)
	}
	if count(t, db) != 1 {
		t.Errorf("row not committed")
	}
	if err := tx.Rollback(); !errors.Is(err, sql.ErrTxDone) {
		t.Errorf("rollback after commit = %v", err)
	}
}

func TestTx_FailingHookRollsBack(t *testing.T) {
	db := openTestDB(t)
	sqlTx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx := NewTx(sqlTx)
	defer tx.Rollback()

	failed := false
	tx.BeforeCommit(func() error { return errors.New("index unavailable") })
	tx.OnFailure(func() { failed = true })
	tx.SetValue("k", 42)

	if _, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit error")
	}
	if !failed {
		t.Errorf("failure hook not called")
	}
	if tx.Value("k") != 42 {
		t.Errorf("value lost")
	}
	if count(t, db) != 0 {
		t.Errorf("row should have been rolled back")
	}
}
