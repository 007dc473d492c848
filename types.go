package quackdb

import "unsafe"

// Opaque DuckDB handles. Each one is a pointer on the native side and is
// owned by exactly one Go wrapper object.
type (
	nativeDatabase          uintptr
	nativeConnection        uintptr
	nativePreparedStatement uintptr
	nativeDataChunk         uintptr
	nativeVector            uintptr
	nativeValue             uintptr
	nativeLogicalType       uintptr
	nativeConfig            uintptr
	nativeAppender          uintptr
)

// nativeState is the duckdb_state return code.
type nativeState int32

const (
	stateSuccess nativeState = 0
	stateError   nativeState = 1
)

// nativeResult mirrors the duckdb_result struct layout. The deprecated
// fields are never read directly; the struct only exists so the engine has
// caller-provided storage to fill in.
type nativeResult struct {
	deprecatedColumnCount  uint64
	deprecatedRowCount     uint64
	deprecatedRowsChanged  uint64
	deprecatedColumns      uintptr
	deprecatedErrorMessage uintptr
	internalData           uintptr
}

// Type identifies a DuckDB column or parameter type. Values match the
// duckdb_type enum of the C API.
type Type int32

const (
	TypeInvalid Type = iota
	TypeBoolean
	TypeTinyInt
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeUTinyInt
	TypeUSmallInt
	TypeUInteger
	TypeUBigInt
	TypeFloat
	TypeDouble
	TypeTimestamp
	TypeDate
	TypeTime
	TypeInterval
	TypeHugeInt
	TypeVarchar
	TypeBlob
	TypeDecimal
	TypeTimestampS
	TypeTimestampMS
	TypeTimestampNS
	TypeEnum
	TypeList
	TypeStruct
	TypeMap
	TypeUUID
	TypeUnion
	TypeBit
	TypeTimeTZ
	TypeTimestampTZ
	TypeUHugeInt // 32
	TypeArray
	TypeAny
	TypeVarInt
	TypeSQLNull
)

var typeNames = map[Type]string{
	TypeInvalid:     "INVALID",
	TypeBoolean:     "BOOLEAN",
	TypeTinyInt:     "TINYINT",
	TypeSmallInt:    "SMALLINT",
	TypeInteger:     "INTEGER",
	TypeBigInt:      "BIGINT",
	TypeUTinyInt:    "UTINYINT",
	TypeUSmallInt:   "USMALLINT",
	TypeUInteger:    "UINTEGER",
	TypeUBigInt:     "UBIGINT",
	TypeFloat:       "FLOAT",
	TypeDouble:      "DOUBLE",
	TypeTimestamp:   "TIMESTAMP",
	TypeDate:        "DATE",
	TypeTime:        "TIME",
	TypeInterval:    "INTERVAL",
	TypeHugeInt:     "HUGEINT",
	TypeVarchar:     "VARCHAR",
	TypeBlob:        "BLOB",
	TypeDecimal:     "DECIMAL",
	TypeTimestampS:  "TIMESTAMP_S",
	TypeTimestampMS: "TIMESTAMP_MS",
	TypeTimestampNS: "TIMESTAMP_NS",
	TypeEnum:        "ENUM",
	TypeList:        "LIST",
	TypeStruct:      "STRUCT",
	TypeMap:         "MAP",
	TypeUUID:        "UUID",
	TypeUnion:       "UNION",
	TypeBit:         "BIT",
	TypeTimeTZ:      "TIME WITH TIME ZONE",
	TypeTimestampTZ: "TIMESTAMP WITH TIME ZONE",
	TypeUHugeInt:    "UHUGEINT",
	TypeArray:       "ARRAY",
	TypeAny:         "ANY",
	TypeVarInt:      "VARINT",
	TypeSQLNull:     "SQLNULL",
}

// String returns the SQL name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// StatementType identifies the kind of a prepared statement. Values match
// the duckdb_statement_type enum of the C API.
type StatementType int32

const (
	StatementTypeInvalid StatementType = iota
	StatementTypeSelect
	StatementTypeInsert
	StatementTypeUpdate
	StatementTypeExplain
	StatementTypeDelete
	StatementTypePrepare
	StatementTypeCreate
	StatementTypeExecute
	StatementTypeAlter
	StatementTypeTransaction
	StatementTypeCopy
	StatementTypeAnalyze
	StatementTypeVariableSet
	StatementTypeCreateFunc
	StatementTypeDrop
	StatementTypeExport
	StatementTypePragma
	StatementTypeVacuum
	StatementTypeCall
	StatementTypeSet
	StatementTypeLoad
	StatementTypeRelation
	StatementTypeExtension
	StatementTypeLogicalPlan
	StatementTypeAttach
	StatementTypeDetach
	StatementTypeMulti
)

// reportsChangedRows reports whether executing a statement of this kind
// produces a meaningful changed-row count.
func (st StatementType) reportsChangedRows() bool {
	switch st {
	case StatementTypeInsert, StatementTypeUpdate, StatementTypeDelete:
		return true
	default:
		return false
	}
}

// hugeint mirrors duckdb_hugeint: a 128-bit signed integer split into
// lower/upper halves.
type hugeint struct {
	lower uint64
	upper int64
}

// interval mirrors duckdb_interval.
type interval struct {
	months int32
	days   int32
	micros int64
}

// stringTInlineLimit is the longest string duckdb_string_t stores inline.
const stringTInlineLimit = 12

// stringT mirrors duckdb_string_t. Strings up to 12 bytes live inline in
// the prefix+ptr area; longer strings keep a 4-byte prefix and a pointer
// to the full data.
type stringT struct {
	length uint32
	prefix [4]byte
	ptr    *byte
}

// bytes copies the string content into Go-owned memory.
func (s *stringT) bytes() []byte {
	n := int(s.length)
	if n == 0 {
		return []byte{}
	}
	var src []byte
	if n <= stringTInlineLimit {
		src = unsafe.Slice((*byte)(unsafe.Pointer(&s.prefix[0])), n)
	} else {
		src = unsafe.Slice(s.ptr, n)
	}
	out := make([]byte, n)
	copy(out, src)
	return out
}
