// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"database/sql/driver"
	"math/big"
	"reflect"
	"time"
)

// rows implements database/sql/driver.Rows on top of a Result, walking its
// data chunks in order. Column getters are resolved once per chunk; every
// NULL surfaces as a nil driver.Value.
type rows struct {
	res  *Result
	stmt *PreparedStatement // non-nil when the rows own the statement

	chunk   *DataChunk
	getters []func(row int) driver.Value
	row     int
}

func (r *rows) Columns() []string {
	return r.res.Columns()
}

func (r *rows) Close() error {
	if r.chunk != nil {
		r.chunk.Close()
		r.chunk = nil
		r.getters = nil
	}
	err := r.res.Close()
	if r.stmt != nil {
		if cerr := r.stmt.Close(); err == nil {
			err = cerr
		}
		r.stmt = nil
	}
	return err
}

func (r *rows) Next(dest []driver.Value) error {
	for {
		if r.chunk == nil {
			chunk, err := r.res.FetchChunk()
			if err != nil {
				return err // io.EOF once the result is drained
			}
			if chunk.Size() == 0 {
				chunk.Close()
				continue
			}
			getters, err := chunkGetters(chunk)
			if err != nil {
				chunk.Close()
				return err
			}
			r.chunk = chunk
			r.getters = getters
			r.row = 0
		}
		if r.row >= r.chunk.Size() {
			r.chunk.Close()
			r.chunk = nil
			r.getters = nil
			continue
		}
		for i := range r.getters {
			dest[i] = r.getters[i](r.row)
		}
		r.row++
		return nil
	}
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	t, err := r.res.ColumnType(index)
	if err != nil {
		return ""
	}
	return t.String()
}

// Every engine column is nullable.
func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return true, true
}

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	t, err := r.res.ColumnType(index)
	if err != nil {
		return scanTypeAny
	}
	return scanType(t)
}

func chunkGetters(chunk *DataChunk) ([]func(int) driver.Value, error) {
	getters := make([]func(int) driver.Value, chunk.ColumnCount())
	for i := range getters {
		vec, err := chunk.Vector(i)
		if err != nil {
			return nil, err
		}
		get, err := columnGetter(vec)
		if err != nil {
			return nil, err
		}
		getters[i] = get
	}
	return getters, nil
}

// columnGetter maps a column vector to driver.Value production. Integers
// widen to int64 (unsigned to uint64), HUGEINT is rendered as its decimal
// string so no value is truncated.
func columnGetter(vec *Vector) (func(int) driver.Value, error) {
	switch vec.Type() {
	case TypeBoolean:
		return valueGetter[bool](vec)
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		return valueGetter[int64](vec)
	case TypeUTinyInt, TypeUSmallInt, TypeUInteger, TypeUBigInt:
		return valueGetter[uint64](vec)
	case TypeFloat, TypeDouble, TypeDecimal:
		return valueGetter[float64](vec)
	case TypeVarchar, TypeEnum, TypeUUID:
		return valueGetter[string](vec)
	case TypeBlob:
		return valueGetter[[]byte](vec)
	case TypeDate, TypeTime, TypeTimestamp, TypeTimestampS, TypeTimestampMS, TypeTimestampNS, TypeTimestampTZ:
		return valueGetter[time.Time](vec)
	case TypeHugeInt:
		rd, err := NewVectorReader[*big.Int](vec)
		if err != nil {
			return nil, err
		}
		return func(row int) driver.Value {
			v, ok := rd.TryGet(row)
			if !ok {
				return nil
			}
			return v.String()
		}, nil
	default:
		return nil, Errorf(ErrIncompatibleType, "no scan support for %s columns", vec.Type())
	}
}

func valueGetter[T any](vec *Vector) (func(int) driver.Value, error) {
	rd, err := NewVectorReader[T](vec)
	if err != nil {
		return nil, err
	}
	return func(row int) driver.Value {
		v, ok := rd.TryGet(row)
		if !ok {
			return nil
		}
		return v
	}, nil
}

var (
	scanTypeAny    = reflect.TypeOf((*any)(nil)).Elem()
	scanTypeBool   = reflect.TypeOf(false)
	scanTypeInt    = reflect.TypeOf(int64(0))
	scanTypeUint   = reflect.TypeOf(uint64(0))
	scanTypeFloat  = reflect.TypeOf(float64(0))
	scanTypeString = reflect.TypeOf("")
	scanTypeBytes  = reflect.TypeOf([]byte(nil))
	scanTypeTime   = reflect.TypeOf(time.Time{})
)

func scanType(t Type) reflect.Type {
	switch t {
	case TypeBoolean:
		return scanTypeBool
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		return scanTypeInt
	case TypeUTinyInt, TypeUSmallInt, TypeUInteger, TypeUBigInt:
		return scanTypeUint
	case TypeFloat, TypeDouble, TypeDecimal:
		return scanTypeFloat
	case TypeVarchar, TypeEnum, TypeUUID, TypeHugeInt:
		return scanTypeString
	case TypeBlob:
		return scanTypeBytes
	case TypeDate, TypeTime, TypeTimestamp, TypeTimestampS, TypeTimestampMS, TypeTimestampNS, TypeTimestampTZ:
		return scanTypeTime
	default:
		return scanTypeAny
	}
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
)
