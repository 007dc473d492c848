package quackdb

import (
	"database/sql/driver"
	"math/big"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// emptyBlob backs zero-length blob binds, keeping the data pointer non-nil.
var emptyBlob = [1]byte{}

// unwrapValuer resolves driver.Valuer arguments (sql.NullString and friends)
// to their underlying value before conversion. Non-valuers pass through.
func unwrapValuer(value any) (any, error) {
	v, ok := value.(driver.Valuer)
	if !ok {
		return value, nil
	}
	inner, err := v.Value()
	if err != nil {
		return nil, Errorf(ErrType, "valuer %T: %v", value, err)
	}
	return inner, nil
}

// newNativeValue boxes a Go value into a transient native value for
// duckdb_bind_value. The native side copies the payload, so the value only
// has to stay alive for the duration of the call. The caller must destroy
// the returned value with duckdbDestroyValue on every path.
//
// Unsupported Go types are rejected here, before any native call.
func newNativeValue(value any) (nativeValue, error) {
	switch v := value.(type) {
	case bool:
		return duckdbCreateBool(v), nil
	case int8:
		return duckdbCreateInt8(v), nil
	case int16:
		return duckdbCreateInt16(v), nil
	case int32:
		return duckdbCreateInt32(v), nil
	case int64:
		return duckdbCreateInt64(v), nil
	case int:
		return duckdbCreateInt64(int64(v)), nil
	case uint8:
		return duckdbCreateUint8(v), nil
	case uint16:
		return duckdbCreateUint16(v), nil
	case uint32:
		return duckdbCreateUint32(v), nil
	case uint64:
		return duckdbCreateUint64(v), nil
	case uint:
		return duckdbCreateUint64(uint64(v)), nil
	case float32:
		return duckdbCreateFloat(v), nil
	case float64:
		return duckdbCreateDouble(v), nil
	case string:
		return duckdbCreateVarcharLength(v, uint64(len(v))), nil
	case []byte:
		if len(v) == 0 {
			return duckdbCreateBlob(unsafe.Pointer(&emptyBlob[0]), 0), nil
		}
		return duckdbCreateBlob(unsafe.Pointer(&v[0]), uint64(len(v))), nil
	case time.Time:
		return duckdbCreateTimestamp(microsFromTime(v)), nil
	case time.Duration:
		return duckdbCreateInterval(interval{micros: v.Microseconds()}), nil
	case uuid.UUID:
		// Bound as text; the engine casts to UUID at execution time.
		s := v.String()
		return duckdbCreateVarcharLength(s, uint64(len(s))), nil
	case *big.Int:
		hv, err := hugeintFromBig(v)
		if err != nil {
			return 0, err
		}
		return duckdbCreateHugeint(hv), nil
	default:
		return 0, Errorf(ErrType, "unsupported parameter type %T", value)
	}
}

// hugeintFromBig converts a big.Int into the 128-bit two's complement
// representation the engine uses. Values outside the 128-bit range are
// rejected.
func hugeintFromBig(v *big.Int) (hugeint, error) {
	if v == nil {
		return hugeint{}, Errorf(ErrType, "cannot convert a nil *big.Int")
	}
	d := new(big.Int).Lsh(big.NewInt(1), 64)
	q := new(big.Int)
	r := new(big.Int)
	q.DivMod(v, d, r)
	if !q.IsInt64() {
		return hugeint{}, Errorf(ErrType, "value %s does not fit into a 128-bit integer", v.String())
	}
	return hugeint{lower: r.Uint64(), upper: q.Int64()}, nil
}

// bigFromHugeint converts the engine's 128-bit representation back into a
// big.Int.
func bigFromHugeint(h hugeint) *big.Int {
	v := big.NewInt(h.upper)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(h.lower))
}
