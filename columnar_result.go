package quackdb

import (
	"io"
	"math/big"
	"sync"
	"time"
)

// ColumnarResult holds a fully materialized result in column-major form:
// one typed Go slice per column plus a null mask. Analytics code that wants
// whole columns gets them in a single pass instead of row-by-row scanning.
//
// Slice types follow the driver widening rules: signed integers land in
// []int64, unsigned in []uint64, FLOAT/DOUBLE/DECIMAL in []float64,
// VARCHAR/ENUM/UUID in []string, HUGEINT in []*big.Int.
type ColumnarResult struct {
	RowCount    int
	ColumnNames []string
	ColumnTypes []Type
	Columns     []any    // one typed slice per column
	NullMasks   [][]bool // true marks a NULL slot
}

// QueryColumnar executes query and extracts every column of its result.
func (c *Connection) QueryColumnar(query string) (*ColumnarResult, error) {
	res, err := c.Query(query)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return res.Columnar()
}

// ForEachChunk invokes fn for every remaining chunk of the result, closing
// each chunk before fetching the next. It stops at the first error.
func (r *Result) ForEachChunk(fn func(*DataChunk) error) error {
	for {
		chunk, err := r.FetchChunk()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = fn(chunk)
		chunk.Close()
		if err != nil {
			return err
		}
	}
}

// Chunks with at least this many columns fan their per-column copies out to
// one goroutine per column.
const columnarFanoutThreshold = 4

// Columnar drains the remaining chunks of the result into a ColumnarResult.
// Native handles are only touched on the calling goroutine; the per-column
// copies are pure memory reads and may run concurrently.
func (r *Result) Columnar() (*ColumnarResult, error) {
	cols := r.ColumnCount()
	builders := make([]columnBuilder, cols)
	for i, t := range r.ColumnTypes() {
		b, err := columnBuilderFor(t)
		if err != nil {
			return nil, err
		}
		builders[i] = b
	}

	rows := 0
	err := r.ForEachChunk(func(chunk *DataChunk) error {
		size := chunk.Size()
		vecs := make([]*Vector, cols)
		for i := range vecs {
			vec, err := chunk.Vector(i)
			if err != nil {
				return err
			}
			vecs[i] = vec
		}

		if cols < columnarFanoutThreshold {
			for i, b := range builders {
				if err := b.appendChunk(vecs[i], size); err != nil {
					return err
				}
			}
		} else {
			var wg sync.WaitGroup
			errs := make([]error, cols)
			for i := range builders {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = builders[i].appendChunk(vecs[i], size)
				}()
			}
			wg.Wait()
			for _, err := range errs {
				if err != nil {
					return err
				}
			}
		}

		rows += size
		return nil
	})
	if err != nil {
		return nil, err
	}

	cr := &ColumnarResult{
		RowCount:    rows,
		ColumnNames: append([]string(nil), r.Columns()...),
		ColumnTypes: append([]Type(nil), r.ColumnTypes()...),
		Columns:     make([]any, cols),
		NullMasks:   make([][]bool, cols),
	}
	for i, b := range builders {
		cr.Columns[i], cr.NullMasks[i] = b.finish()
	}
	return cr, nil
}

// ColumnIndex returns the index of the named column.
func (cr *ColumnarResult) ColumnIndex(name string) (int, error) {
	for i, n := range cr.ColumnNames {
		if n == name {
			return i, nil
		}
	}
	return -1, Errorf(ErrNotFound, "no column named %q", name)
}

// ColumnAs returns column col as its typed slice plus null mask. T must be
// the slice element type the extraction produced for that column.
func ColumnAs[T any](cr *ColumnarResult, col int) ([]T, []bool, error) {
	if col < 0 || col >= len(cr.Columns) {
		return nil, nil, Errorf(ErrIndexRange, "column index %d out of range [0, %d)", col, len(cr.Columns))
	}
	values, ok := cr.Columns[col].([]T)
	if !ok {
		var want T
		return nil, nil, Errorf(ErrIncompatibleType, "column %q holds %s values, not %T", cr.ColumnNames[col], cr.ColumnTypes[col], want)
	}
	return values, cr.NullMasks[col], nil
}

type columnBuilder interface {
	appendChunk(vec *Vector, size int) error
	finish() (any, []bool)
}

type typedColumn[T any] struct {
	values []T
	nulls  []bool
}

func (b *typedColumn[T]) appendChunk(vec *Vector, size int) error {
	rd, err := NewVectorReader[T](vec)
	if err != nil {
		return err
	}
	for row := 0; row < size; row++ {
		v, ok := rd.TryGet(row)
		b.values = append(b.values, v)
		b.nulls = append(b.nulls, !ok)
	}
	return nil
}

func (b *typedColumn[T]) finish() (any, []bool) {
	return b.values, b.nulls
}

func columnBuilderFor(t Type) (columnBuilder, error) {
	switch t {
	case TypeBoolean:
		return &typedColumn[bool]{}, nil
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		return &typedColumn[int64]{}, nil
	case TypeUTinyInt, TypeUSmallInt, TypeUInteger, TypeUBigInt:
		return &typedColumn[uint64]{}, nil
	case TypeFloat, TypeDouble, TypeDecimal:
		return &typedColumn[float64]{}, nil
	case TypeVarchar, TypeEnum, TypeUUID:
		return &typedColumn[string]{}, nil
	case TypeBlob:
		return &typedColumn[[]byte]{}, nil
	case TypeDate, TypeTime, TypeTimestamp, TypeTimestampS, TypeTimestampMS, TypeTimestampNS, TypeTimestampTZ:
		return &typedColumn[time.Time]{}, nil
	case TypeHugeInt:
		return &typedColumn[*big.Int]{}, nil
	default:
		return nil, Errorf(ErrIncompatibleType, "no columnar extraction for %s columns", t)
	}
}
