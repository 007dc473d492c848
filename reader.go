package quackdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// VectorReader provides typed access to one vector. The conversion from
// the column's physical representation to T is resolved once, when the
// reader is built; element access after that is a plain bounds-and-validity
// check plus a direct memory read.
//
// The supported pairings are fixed. Widening within the same signedness is
// allowed for integers (for example TINYINT can be read as int8 through
// int64), FLOAT can be read as float64, DECIMAL columns read as float64
// with the scale applied, ENUM columns read as their dictionary string, and
// UUID columns read as uuid.UUID or their canonical string form. Anything
// else fails at construction with ErrIncompatibleType.
type VectorReader[T any] struct {
	vec *Vector
	get func(row int) T
}

// NewVectorReader builds a typed reader over vec. It fails with an
// ErrIncompatibleType error when T cannot represent the column; element
// access never re-checks the pairing.
func NewVectorReader[T any](vec *Vector) (*VectorReader[T], error) {
	get, err := resolveGetter[T](vec)
	if err != nil {
		return nil, err
	}
	return &VectorReader[T]{vec: vec, get: get}, nil
}

// Len returns the number of rows in the underlying vector.
func (r *VectorReader[T]) Len() int {
	return r.vec.length
}

// Valid reports whether the row holds a non-NULL value. Rows outside the
// vector are reported as not valid.
func (r *VectorReader[T]) Valid(row int) bool {
	return r.vec.Valid(row)
}

// Get returns the value at row. NULL elements and rows outside the vector
// both fail with an ErrNullElement error.
func (r *VectorReader[T]) Get(row int) (T, error) {
	var zero T
	if row < 0 || row >= r.vec.length {
		return zero, Errorf(ErrNullElement, "element index %d out of range [0, %d)", row, r.vec.length)
	}
	if !r.vec.Valid(row) {
		return zero, ErrElementNull
	}
	return r.get(row), nil
}

// TryGet returns the value at row and true, or the zero value and false
// when the element is NULL. Like slice indexing, it panics when row is
// outside the vector.
func (r *VectorReader[T]) TryGet(row int) (T, bool) {
	if row < 0 || row >= r.vec.length {
		panic(fmt.Sprintf("quackdb: element index %d out of range [0, %d)", row, r.vec.length))
	}
	var zero T
	if !r.vec.Valid(row) {
		return zero, false
	}
	return r.get(row), true
}

// GetOrNil returns a pointer to the value at row, or nil when the element
// is NULL. Like slice indexing, it panics when row is outside the vector.
func (r *VectorReader[T]) GetOrNil(row int) *T {
	v, ok := r.TryGet(row)
	if !ok {
		return nil
	}
	return &v
}

// resolveGetter picks the conversion for the (column type, T) pairing. The
// returned closure captures the typed data slice, the decimal scale divisor
// and the enum dictionary up front, so per-element work stays minimal.
func resolveGetter[T any](v *Vector) (func(int) T, error) {
	var target T
	var fn any

	switch any(target).(type) {
	case bool:
		if v.colType == TypeBoolean {
			data := vectorData[bool](v)
			fn = func(row int) bool { return data[row] }
		}

	case int8:
		if v.colType == TypeTinyInt {
			data := vectorData[int8](v)
			fn = func(row int) int8 { return data[row] }
		}

	case int16:
		switch v.colType {
		case TypeTinyInt:
			data := vectorData[int8](v)
			fn = func(row int) int16 { return int16(data[row]) }
		case TypeSmallInt:
			data := vectorData[int16](v)
			fn = func(row int) int16 { return data[row] }
		}

	case int32:
		switch v.colType {
		case TypeTinyInt:
			data := vectorData[int8](v)
			fn = func(row int) int32 { return int32(data[row]) }
		case TypeSmallInt:
			data := vectorData[int16](v)
			fn = func(row int) int32 { return int32(data[row]) }
		case TypeInteger:
			data := vectorData[int32](v)
			fn = func(row int) int32 { return data[row] }
		}

	case int64:
		switch v.colType {
		case TypeTinyInt:
			data := vectorData[int8](v)
			fn = func(row int) int64 { return int64(data[row]) }
		case TypeSmallInt:
			data := vectorData[int16](v)
			fn = func(row int) int64 { return int64(data[row]) }
		case TypeInteger:
			data := vectorData[int32](v)
			fn = func(row int) int64 { return int64(data[row]) }
		case TypeBigInt:
			data := vectorData[int64](v)
			fn = func(row int) int64 { return data[row] }
		}

	case uint8:
		if v.colType == TypeUTinyInt {
			data := vectorData[uint8](v)
			fn = func(row int) uint8 { return data[row] }
		}

	case uint16:
		switch v.colType {
		case TypeUTinyInt:
			data := vectorData[uint8](v)
			fn = func(row int) uint16 { return uint16(data[row]) }
		case TypeUSmallInt:
			data := vectorData[uint16](v)
			fn = func(row int) uint16 { return data[row] }
		}

	case uint32:
		switch v.colType {
		case TypeUTinyInt:
			data := vectorData[uint8](v)
			fn = func(row int) uint32 { return uint32(data[row]) }
		case TypeUSmallInt:
			data := vectorData[uint16](v)
			fn = func(row int) uint32 { return uint32(data[row]) }
		case TypeUInteger:
			data := vectorData[uint32](v)
			fn = func(row int) uint32 { return data[row] }
		}

	case uint64:
		switch v.colType {
		case TypeUTinyInt:
			data := vectorData[uint8](v)
			fn = func(row int) uint64 { return uint64(data[row]) }
		case TypeUSmallInt:
			data := vectorData[uint16](v)
			fn = func(row int) uint64 { return uint64(data[row]) }
		case TypeUInteger:
			data := vectorData[uint32](v)
			fn = func(row int) uint64 { return uint64(data[row]) }
		case TypeUBigInt:
			data := vectorData[uint64](v)
			fn = func(row int) uint64 { return data[row] }
		}

	case float32:
		if v.colType == TypeFloat {
			data := vectorData[float32](v)
			fn = func(row int) float32 { return data[row] }
		}

	case float64:
		switch v.colType {
		case TypeFloat:
			data := vectorData[float32](v)
			fn = func(row int) float64 { return float64(data[row]) }
		case TypeDouble:
			data := vectorData[float64](v)
			fn = func(row int) float64 { return data[row] }
		case TypeDecimal:
			if g := decimalGetter(v); g != nil {
				fn = g
			}
		}

	case string:
		switch v.colType {
		case TypeVarchar:
			data := vectorData[stringT](v)
			fn = func(row int) string { return string(data[row].bytes()) }
		case TypeEnum:
			if g := enumGetter(v); g != nil {
				fn = g
			}
		case TypeUUID:
			data := vectorData[hugeint](v)
			fn = func(row int) string { return uuidFromHugeint(data[row]).String() }
		}

	case []byte:
		switch v.colType {
		case TypeVarchar, TypeBlob:
			data := vectorData[stringT](v)
			fn = func(row int) []byte { return data[row].bytes() }
		}

	case time.Time:
		switch v.colType {
		case TypeDate:
			data := vectorData[int32](v)
			fn = func(row int) time.Time { return dateFromDays(data[row]) }
		case TypeTime:
			data := vectorData[int64](v)
			fn = func(row int) time.Time { return timeFromMicros(data[row]) }
		case TypeTimestamp, TypeTimestampTZ:
			data := vectorData[int64](v)
			fn = func(row int) time.Time { return timestampFromMicros(data[row]) }
		case TypeTimestampS:
			data := vectorData[int64](v)
			fn = func(row int) time.Time { return time.Unix(data[row], 0).UTC() }
		case TypeTimestampMS:
			data := vectorData[int64](v)
			fn = func(row int) time.Time { return time.UnixMilli(data[row]).UTC() }
		case TypeTimestampNS:
			data := vectorData[int64](v)
			fn = func(row int) time.Time { return time.Unix(0, data[row]).UTC() }
		}

	case *big.Int:
		if v.colType == TypeHugeInt {
			data := vectorData[hugeint](v)
			fn = func(row int) *big.Int { return bigFromHugeint(data[row]) }
		}

	case uuid.UUID:
		if v.colType == TypeUUID {
			data := vectorData[hugeint](v)
			fn = func(row int) uuid.UUID { return uuidFromHugeint(data[row]) }
		}
	}

	if fn == nil {
		return nil, Errorf(ErrIncompatibleType, "cannot read %s column as %T", v.colType, target)
	}
	return fn.(func(int) T), nil
}

// decimalGetter scales the column's integer storage by 10^-scale. The
// divisor is computed once here.
func decimalGetter(v *Vector) func(int) float64 {
	div := math.Pow10(int(v.scale))

	switch v.storage {
	case TypeSmallInt:
		data := vectorData[int16](v)
		return func(row int) float64 { return float64(data[row]) / div }
	case TypeInteger:
		data := vectorData[int32](v)
		return func(row int) float64 { return float64(data[row]) / div }
	case TypeBigInt:
		data := vectorData[int64](v)
		return func(row int) float64 { return float64(data[row]) / div }
	case TypeHugeInt:
		data := vectorData[hugeint](v)
		return func(row int) float64 {
			f, _ := new(big.Float).SetInt(bigFromHugeint(data[row])).Float64()
			return f / div
		}
	default:
		return nil
	}
}

// enumGetter maps the column's index storage through the dictionary fetched
// when the vector was built.
func enumGetter(v *Vector) func(int) string {
	dict := v.enumDict

	switch v.storage {
	case TypeUTinyInt:
		data := vectorData[uint8](v)
		return func(row int) string { return dict[data[row]] }
	case TypeUSmallInt:
		data := vectorData[uint16](v)
		return func(row int) string { return dict[data[row]] }
	case TypeUInteger:
		data := vectorData[uint32](v)
		return func(row int) string { return dict[data[row]] }
	default:
		return nil
	}
}

// uuidFromHugeint undoes the sign-bit flip the engine applies so UUIDs sort
// correctly as 128-bit integers.
func uuidFromHugeint(h hugeint) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], uint64(h.upper)^(1<<63))
	binary.BigEndian.PutUint64(u[8:], h.lower)
	return u
}
