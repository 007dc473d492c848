// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"sync"
	"sync/atomic"
)

// TxAppender wraps an Appender in a transaction so a bulk load lands
// atomically: every appended row becomes visible on Commit, or none on
// Rollback. The transaction spans the appender's whole life, so the
// connection must not start another transaction until Commit or Rollback.
type TxAppender struct {
	app    *Appender
	conn   *Connection
	closed int32
	mu     sync.Mutex
}

// NewTxAppender begins a transaction on conn and creates an appender for
// the given table inside it. An empty schema selects the default "main"
// schema.
func NewTxAppender(conn *Connection, schema, table string) (*TxAppender, error) {
	if conn == nil {
		return nil, NewError(ErrGeneric, "connection is nil")
	}

	if _, err := conn.Exec("BEGIN TRANSACTION"); err != nil {
		return nil, err
	}

	app, err := NewAppender(conn, schema, table)
	if err != nil {
		conn.Exec("ROLLBACK")
		return nil, err
	}

	return &TxAppender{app: app, conn: conn}, nil
}

// ColumnCount returns the number of columns in the target table.
func (a *TxAppender) ColumnCount() int {
	return a.app.ColumnCount()
}

// AppendRow appends one row inside the transaction.
func (a *TxAppender) AppendRow(values ...any) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}
	return a.app.AppendRow(values...)
}

// AppendRows appends multiple rows inside the transaction.
func (a *TxAppender) AppendRows(rows [][]any) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}
	return a.app.AppendRows(rows)
}

// Flush writes buffered rows into the transaction without ending it. The
// rows stay invisible to other transactions until Commit.
func (a *TxAppender) Flush() error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}
	return a.app.Flush()
}

// Commit writes out the appender and commits the transaction. On a write
// failure the transaction is rolled back and the write error returned.
func (a *TxAppender) Commit() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return NewError(ErrClosed, "appender is closed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Closing flushes remaining rows; everything must be written into the
	// transaction before COMMIT.
	if err := a.app.Close(); err != nil {
		a.conn.Exec("ROLLBACK")
		return err
	}

	if _, err := a.conn.Exec("COMMIT"); err != nil {
		return err
	}
	return nil
}

// Rollback closes the appender and discards everything appended since the
// transaction began.
func (a *TxAppender) Rollback() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return NewError(ErrClosed, "appender is closed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.discard()
}

// Close rolls the transaction back when it was never committed, so a
// deferred Close after a successful Commit is a no-op. It is safe to call
// multiple times.
func (a *TxAppender) Close() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.discard()
}

func (a *TxAppender) discard() error {
	err := a.app.Close()
	if _, rbErr := a.conn.Exec("ROLLBACK"); err == nil {
		err = rbErr
	}
	return err
}
