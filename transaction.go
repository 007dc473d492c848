package quackdb

import (
	"database/sql/driver"
	"sync"
	"sync/atomic"
)

// tx implements database/sql/driver.Tx. The engine keeps transaction state
// on the connection itself, so commit and rollback are plain statements
// executed there.
type tx struct {
	db       *Connection
	finished atomic.Bool
	mu       sync.Mutex
}

func (tx *tx) Commit() error {
	return tx.finish("COMMIT")
}

func (tx *tx) Rollback() error {
	return tx.finish("ROLLBACK")
}

// finish runs the closing statement exactly once; later calls are no-ops.
func (tx *tx) finish(query string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.finished.Load() {
		return nil
	}
	tx.finished.Store(true)

	_, err := tx.db.Exec(query)
	return err
}

var _ driver.Tx = (*tx)(nil)
