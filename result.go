// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Result holds a materialized query result. Column metadata is captured
// eagerly at construction so it stays readable for the lifetime of the
// value; row data is consumed chunk by chunk through FetchChunk.
//
// A Result owns its native handle exclusively. Its accessors never touch
// the connection or statement that produced it.
type Result struct {
	res         nativeResult
	columnNames []string
	columnTypes []Type
	rowsChanged int64
	closed      int32
	mu          sync.Mutex
	log         zerolog.Logger
}

// newResult takes ownership of a native result. Column names are owned by
// the native result and copied into Go memory here, so nothing needs
// freeing besides the result itself.
func newResult(res *nativeResult, log zerolog.Logger) *Result {
	r := &Result{res: *res, log: log}

	count := int(duckdbColumnCount(&r.res))
	r.columnNames = make([]string, count)
	r.columnTypes = make([]Type, count)
	for i := 0; i < count; i++ {
		r.columnNames[i] = goString(duckdbColumnName(&r.res, uint64(i)))
		r.columnTypes[i] = duckdbColumnType(&r.res, uint64(i))
	}
	r.rowsChanged = int64(duckdbRowsChanged(&r.res))

	runtime.SetFinalizer(r, (*Result).Close)
	return r
}

// Close frees the native result. It is safe to call multiple times and
// safe to race with the finalizer.
func (r *Result) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	duckdbDestroyResult(&r.res)
	runtime.SetFinalizer(r, nil)
	return nil
}

// ColumnCount returns the number of columns in the result.
func (r *Result) ColumnCount() int {
	return len(r.columnNames)
}

// Columns returns the column names in projection order.
func (r *Result) Columns() []string {
	return r.columnNames
}

// ColumnTypes returns the declared column types in projection order.
func (r *Result) ColumnTypes() []Type {
	return r.columnTypes
}

// ColumnName returns the name of the column at the given 0-based index.
func (r *Result) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(r.columnNames) {
		return "", Errorf(ErrIndexRange, "column index %d out of range [0, %d)", col, len(r.columnNames))
	}
	return r.columnNames[col], nil
}

// ColumnType returns the declared type of the column at the given 0-based
// index.
func (r *Result) ColumnType(col int) (Type, error) {
	if col < 0 || col >= len(r.columnTypes) {
		return TypeInvalid, Errorf(ErrIndexRange, "column index %d out of range [0, %d)", col, len(r.columnTypes))
	}
	return r.columnTypes[col], nil
}

// RowsChanged returns the engine-reported changed-row count captured when
// the result was created. SELECT results report zero.
func (r *Result) RowsChanged() int64 {
	return r.rowsChanged
}

// FetchChunk returns the next chunk of rows, or io.EOF once the result is
// exhausted. The caller owns the returned chunk and should close it when
// done with its vectors.
func (r *Result) FetchChunk() (*DataChunk, error) {
	if atomic.LoadInt32(&r.closed) != 0 {
		return nil, ErrResultClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.closed) != 0 {
		return nil, ErrResultClosed
	}

	chunk := duckdbFetchChunk(r.res)
	if chunk == 0 {
		return nil, io.EOF
	}
	return newDataChunk(chunk), nil
}

// DataChunk is one horizontal slice of a result, up to the engine's vector
// size in rows. Vectors handed out by a chunk point into native memory and
// stay valid only until the chunk is closed.
type DataChunk struct {
	chunk   nativeDataChunk
	size    int
	columns int
	closed  int32
	mu      sync.Mutex
}

func newDataChunk(chunk nativeDataChunk) *DataChunk {
	dc := &DataChunk{
		chunk:   chunk,
		size:    int(duckdbDataChunkGetSize(chunk)),
		columns: int(duckdbDataChunkGetColumnCount(chunk)),
	}
	runtime.SetFinalizer(dc, (*DataChunk).Close)
	return dc
}

// Size returns the number of rows in the chunk.
func (dc *DataChunk) Size() int {
	return dc.size
}

// ColumnCount returns the number of columns in the chunk.
func (dc *DataChunk) ColumnCount() int {
	return dc.columns
}

// Vector returns the column vector at the given 0-based column index.
func (dc *DataChunk) Vector(col int) (*Vector, error) {
	if atomic.LoadInt32(&dc.closed) != 0 {
		return nil, ErrChunkClosed
	}
	if col < 0 || col >= dc.columns {
		return nil, Errorf(ErrIndexRange, "column index %d out of range [0, %d)", col, dc.columns)
	}
	return newVector(duckdbDataChunkGetVector(dc.chunk, uint64(col)), dc.size), nil
}

// Close destroys the chunk and invalidates every vector read from it. It
// is safe to call multiple times and safe to race with the finalizer.
func (dc *DataChunk) Close() error {
	if !atomic.CompareAndSwapInt32(&dc.closed, 0, 1) {
		return nil
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.chunk != 0 {
		duckdbDestroyDataChunk(&dc.chunk)
		dc.chunk = 0
	}

	runtime.SetFinalizer(dc, nil)
	return nil
}
