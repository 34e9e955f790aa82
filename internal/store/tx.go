package store

import "database/sql"

// Tx is a write transaction that side indexes can attach work to. Work that
// cannot join the SQL transaction registers a BeforeCommit hook to apply it
// and an OnFailure hook to repair it if the commit does not go through.
type Tx struct {
	*sql.Tx
	beforeCommit []func() error
	onFailure    []func()
	values       map[any]any
	done         bool
}

// NewTx wraps an open transaction.
func NewTx(tx *sql.Tx) *Tx {
	return &Tx{Tx: tx}
}

// BeforeCommit registers fn to run, in order, just before COMMIT.
// An error aborts the commit.
func (t *Tx) BeforeCommit(fn func() error) {
	t.beforeCommit = append(t.beforeCommit, fn)
}

// OnFailure registers fn to run if a before-commit hook or COMMIT fails.
func (t *Tx) OnFailure(fn func()) {
	t.onFailure = append(t.onFailure, fn)
}

// Commit runs the before-commit hooks and commits.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true

	for _, fn := range t.beforeCommit {
		if err := fn(); err != nil {
			_ = t.Tx.Rollback()
			t.fail()
			return err
		}
	}
	if err := t.Tx.Commit(); err != nil {
		t.fail()
		return err
	}
	return nil
}

// Rollback aborts the transaction. Safe to defer after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.Tx.Rollback()
}

func (t *Tx) fail() {
	for _, fn := range t.onFailure {
		fn()
	}
}

// Value returns state stored on the transaction by SetValue.
func (t *Tx) Value(key any) any {
	return t.values[key]
}

// SetValue stores per-transaction state, typically a pending index batch.
func (t *Tx) SetValue(key, value any) {
	if t.values == nil {
		t.values = make(map[any]any)
	}
	t.values[key] = value
}
