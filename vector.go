package quackdb

import "unsafe"

// Vector is a read-only view over one column of a data chunk. It records
// the declared column type, the physical storage type (these differ for
// DECIMAL and ENUM columns), the row count, the raw data pointer, and the
// validity bitmask. The view points into native memory owned by the chunk,
// so it must not be used after the chunk is closed.
type Vector struct {
	colType Type
	storage Type
	length  int

	data     unsafe.Pointer
	validity unsafe.Pointer // packed uint64 words, one bit per row, nil means all valid

	// DECIMAL metadata
	width uint8
	scale uint8

	// ENUM dictionary, fetched eagerly so reads never call into the engine
	enumDict []string
}

// newVector captures everything the readers need from a native vector. The
// logical type handle is released before returning; only plain Go data and
// raw pointers are retained.
func newVector(vec nativeVector, size int) *Vector {
	lt := duckdbVectorGetColumnType(vec)
	defer duckdbDestroyLogicalType(&lt)

	typeID := duckdbGetTypeID(lt)

	v := &Vector{
		colType:  typeID,
		storage:  typeID,
		length:   size,
		data:     duckdbVectorGetData(vec),
		validity: duckdbVectorGetValidity(vec),
	}

	switch typeID {
	case TypeDecimal:
		v.storage = duckdbDecimalInternalType(lt)
		v.width = duckdbDecimalWidth(lt)
		v.scale = duckdbDecimalScale(lt)
	case TypeEnum:
		v.storage = duckdbEnumInternalType(lt)
		dict := make([]string, int(duckdbEnumDictionarySize(lt)))
		for i := range dict {
			dict[i] = goStringFree(duckdbEnumDictionaryValue(lt, uint64(i)))
		}
		v.enumDict = dict
	}

	return v
}

// newVectorView builds a vector over caller-provided memory. Used by tests
// to exercise the readers without a live engine.
func newVectorView(colType, storage Type, length int, data unsafe.Pointer, validity unsafe.Pointer) *Vector {
	return &Vector{
		colType:  colType,
		storage:  storage,
		length:   length,
		data:     data,
		validity: validity,
	}
}

// Type returns the declared column type.
func (v *Vector) Type() Type {
	return v.colType
}

// StorageType returns the physical element type backing the vector.
func (v *Vector) StorageType() Type {
	return v.storage
}

// Len returns the number of rows in the vector.
func (v *Vector) Len() int {
	return v.length
}

// DecimalWidth returns the precision of a DECIMAL vector, zero otherwise.
func (v *Vector) DecimalWidth() uint8 {
	return v.width
}

// DecimalScale returns the scale of a DECIMAL vector, zero otherwise.
func (v *Vector) DecimalScale() uint8 {
	return v.scale
}

// Valid reports whether the row holds a non-NULL value. Rows outside the
// vector are reported as not valid.
func (v *Vector) Valid(row int) bool {
	if row < 0 || row >= v.length {
		return false
	}
	if v.validity == nil {
		// A missing mask means the column has no NULLs
		return true
	}
	word := *(*uint64)(unsafe.Pointer(uintptr(v.validity) + uintptr(row>>6)*8))
	return word&(1<<(uint(row)&63)) != 0
}

// vectorData reinterprets the vector's raw data pointer as a slice of the
// physical element type. The caller is responsible for matching T to the
// storage type.
func vectorData[T any](v *Vector) []T {
	if v.data == nil || v.length == 0 {
		return nil
	}
	return unsafe.Slice((*T)(v.data), v.length)
}
