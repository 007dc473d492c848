// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// Appender streams rows into a table, bypassing SQL parsing and binding.
// It is the fastest way to bulk-load data. Rows are buffered natively and
// written out on Flush or Close.
type Appender struct {
	conn    *Connection
	app     nativeAppender
	columns int
	closed  int32
	mu      sync.Mutex
}

// NewAppender creates an appender for the given table. An empty schema
// selects the default "main" schema.
func NewAppender(conn *Connection, schema, table string) (*Appender, error) {
	if conn == nil {
		return nil, NewError(ErrGeneric, "connection is nil")
	}
	if atomic.LoadInt32(&conn.closed) != 0 {
		return nil, ErrConnectionClosed
	}
	if schema == "" {
		schema = "main"
	}

	var app nativeAppender
	if state := duckdbAppenderCreate(conn.conn, schema, table, &app); state == stateError {
		errMsg := goString(duckdbAppenderError(app))
		duckdbAppenderDestroy(&app)
		return nil, Errorf(ErrGeneric, "failed to create appender: %s", errMsg)
	}

	a := &Appender{
		conn:    conn,
		app:     app,
		columns: int(duckdbAppenderColumnCount(app)),
	}

	runtime.SetFinalizer(a, (*Appender).Close)
	return a, nil
}

// ColumnCount returns the number of columns in the target table.
func (a *Appender) ColumnCount() int {
	return a.columns
}

// AppendRow appends one row. The number of values must match the table's
// column count.
func (a *Appender) AppendRow(values ...any) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}

	if len(values) != a.columns {
		return Errorf(ErrGeneric, "wrong number of values: got %d, expected %d", len(values), a.columns)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, value := range values {
		if err := a.appendValue(value); err != nil {
			return Errorf(ErrGeneric, "failed to append value at index %d: %v", i, err)
		}
	}

	if state := duckdbAppenderEndRow(a.app); state == stateError {
		return Errorf(ErrGeneric, "failed to end row: %s", goString(duckdbAppenderError(a.app)))
	}
	return nil
}

// AppendRows appends multiple rows under a single lock acquisition. On
// failure the rows appended so far are flushed and the error reported.
func (a *Appender) AppendRows(rows [][]any) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}

	if len(rows) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for rowIdx, row := range rows {
		if len(row) != a.columns {
			a.flushLocked()
			return Errorf(ErrGeneric, "row %d has wrong number of values: got %d, expected %d", rowIdx, len(row), a.columns)
		}

		for colIdx, value := range row {
			if err := a.appendValue(value); err != nil {
				a.flushLocked()
				return Errorf(ErrGeneric, "failed to append value at row %d, column %d: %v", rowIdx, colIdx, err)
			}
		}

		if state := duckdbAppenderEndRow(a.app); state == stateError {
			errMsg := goString(duckdbAppenderError(a.app))
			a.flushLocked()
			return Errorf(ErrGeneric, "failed to end row %d: %s", rowIdx, errMsg)
		}
	}

	return nil
}

// appendValue appends a single value of the current row.
func (a *Appender) appendValue(value any) error {
	var state nativeState

	switch v := value.(type) {
	case nil:
		state = duckdbAppendNull(a.app)
	case bool:
		state = duckdbAppendBool(a.app, v)
	case int8:
		state = duckdbAppendInt8(a.app, v)
	case int16:
		state = duckdbAppendInt16(a.app, v)
	case int32:
		state = duckdbAppendInt32(a.app, v)
	case int64:
		state = duckdbAppendInt64(a.app, v)
	case int:
		state = duckdbAppendInt64(a.app, int64(v))
	case uint8:
		state = duckdbAppendUint8(a.app, v)
	case uint16:
		state = duckdbAppendUint16(a.app, v)
	case uint32:
		state = duckdbAppendUint32(a.app, v)
	case uint64:
		state = duckdbAppendUint64(a.app, v)
	case uint:
		state = duckdbAppendUint64(a.app, uint64(v))
	case float32:
		state = duckdbAppendFloat(a.app, v)
	case float64:
		state = duckdbAppendDouble(a.app, v)
	case string:
		state = duckdbAppendVarchar(a.app, v)
	case []byte:
		if len(v) == 0 {
			state = duckdbAppendBlob(a.app, unsafe.Pointer(&emptyBlob[0]), 0)
		} else {
			state = duckdbAppendBlob(a.app, unsafe.Pointer(&v[0]), uint64(len(v)))
		}
	case time.Time:
		state = duckdbAppendTimestamp(a.app, microsFromTime(v))
	case time.Duration:
		state = duckdbAppendInterval(a.app, interval{micros: v.Microseconds()})
	case uuid.UUID:
		state = duckdbAppendVarchar(a.app, v.String())
	case *big.Int:
		hv, err := hugeintFromBig(v)
		if err != nil {
			return err
		}
		state = duckdbAppendHugeint(a.app, hv)
	default:
		return Errorf(ErrType, "unsupported type for appender: %T", v)
	}

	if state == stateError {
		return NewError(ErrGeneric, goString(duckdbAppenderError(a.app)))
	}
	return nil
}

// Flush writes all buffered rows to the table.
func (a *Appender) Flush() error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return NewError(ErrClosed, "appender is closed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if state := duckdbAppenderFlush(a.app); state == stateError {
		return Errorf(ErrGeneric, "failed to flush appender: %s", goString(duckdbAppenderError(a.app)))
	}
	return nil
}

// flushLocked is a best-effort flush on error paths; the caller already
// holds the lock and keeps its original error.
func (a *Appender) flushLocked() {
	duckdbAppenderFlush(a.app)
}

// Close flushes remaining rows and destroys the appender. It is safe to
// call multiple times and safe to race with the finalizer.
func (a *Appender) Close() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.app != 0 {
		// Destroy flushes and closes in one call
		if state := duckdbAppenderDestroy(&a.app); state == stateError {
			err = NewError(ErrGeneric, "failed to close appender")
		}
		a.app = 0
	}

	runtime.SetFinalizer(a, nil)
	return err
}
