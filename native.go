// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Library loader
var (
	nativeLibOnce sync.Once
	nativeLibErr  error
	nativeLibPath string
	nativeLib     uintptr
)

// DuckDB C API function pointers - populated by purego
var (
	// Database and connection
	duckdbOpenExt        func(path string, outDB *nativeDatabase, config nativeConfig, outError *unsafe.Pointer) nativeState
	duckdbClose          func(db *nativeDatabase)
	duckdbConnect        func(db nativeDatabase, outConn *nativeConnection) nativeState
	duckdbDisconnect     func(conn *nativeConnection)
	duckdbLibraryVersion func() unsafe.Pointer

	// Configuration
	duckdbCreateConfig  func(outConfig *nativeConfig) nativeState
	duckdbSetConfig     func(config nativeConfig, name string, option string) nativeState
	duckdbDestroyConfig func(config *nativeConfig)

	// Query execution and results
	duckdbQuery         func(conn nativeConnection, query string, outResult *nativeResult) nativeState
	duckdbDestroyResult func(result *nativeResult)
	duckdbResultError   func(result *nativeResult) unsafe.Pointer
	duckdbColumnCount   func(result *nativeResult) uint64
	duckdbColumnName    func(result *nativeResult, col uint64) unsafe.Pointer
	duckdbColumnType    func(result *nativeResult, col uint64) Type
	duckdbRowsChanged   func(result *nativeResult) uint64
	duckdbFetchChunk    func(result nativeResult) nativeDataChunk

	// Prepared statements
	duckdbPrepare               func(conn nativeConnection, query string, outStmt *nativePreparedStatement) nativeState
	duckdbPrepareError          func(stmt nativePreparedStatement) unsafe.Pointer
	duckdbDestroyPrepare        func(stmt *nativePreparedStatement)
	duckdbNParams               func(stmt nativePreparedStatement) uint64
	duckdbParameterName         func(stmt nativePreparedStatement, index uint64) unsafe.Pointer
	duckdbParamType             func(stmt nativePreparedStatement, index uint64) Type
	duckdbBindParameterIndex    func(stmt nativePreparedStatement, outIndex *uint64, name string) nativeState
	duckdbClearBindings         func(stmt nativePreparedStatement) nativeState
	duckdbBindValue             func(stmt nativePreparedStatement, index uint64, value nativeValue) nativeState
	duckdbBindNull              func(stmt nativePreparedStatement, index uint64) nativeState
	duckdbExecutePrepared       func(stmt nativePreparedStatement, outResult *nativeResult) nativeState
	duckdbPreparedStatementType func(stmt nativePreparedStatement) StatementType

	// Value construction and destruction
	duckdbDestroyValue        func(value *nativeValue)
	duckdbCreateBool          func(input bool) nativeValue
	duckdbCreateInt8          func(input int8) nativeValue
	duckdbCreateInt16         func(input int16) nativeValue
	duckdbCreateInt32         func(input int32) nativeValue
	duckdbCreateInt64         func(input int64) nativeValue
	duckdbCreateUint8         func(input uint8) nativeValue
	duckdbCreateUint16        func(input uint16) nativeValue
	duckdbCreateUint32        func(input uint32) nativeValue
	duckdbCreateUint64        func(input uint64) nativeValue
	duckdbCreateFloat         func(input float32) nativeValue
	duckdbCreateDouble        func(input float64) nativeValue
	duckdbCreateVarcharLength func(text string, length uint64) nativeValue
	duckdbCreateBlob          func(data unsafe.Pointer, length uint64) nativeValue
	duckdbCreateTimestamp     func(micros int64) nativeValue
	duckdbCreateInterval      func(input interval) nativeValue
	duckdbCreateHugeint       func(input hugeint) nativeValue

	// Data chunks and vectors
	duckdbDataChunkGetSize        func(chunk nativeDataChunk) uint64
	duckdbDataChunkGetColumnCount func(chunk nativeDataChunk) uint64
	duckdbDataChunkGetVector      func(chunk nativeDataChunk, col uint64) nativeVector
	duckdbDestroyDataChunk        func(chunk *nativeDataChunk)
	duckdbVectorGetColumnType     func(vec nativeVector) nativeLogicalType
	duckdbVectorGetData           func(vec nativeVector) unsafe.Pointer
	duckdbVectorGetValidity       func(vec nativeVector) unsafe.Pointer

	// Logical type introspection
	duckdbGetTypeID           func(lt nativeLogicalType) Type
	duckdbDestroyLogicalType  func(lt *nativeLogicalType)
	duckdbDecimalWidth        func(lt nativeLogicalType) uint8
	duckdbDecimalScale        func(lt nativeLogicalType) uint8
	duckdbDecimalInternalType func(lt nativeLogicalType) Type
	duckdbEnumInternalType    func(lt nativeLogicalType) Type
	duckdbEnumDictionarySize  func(lt nativeLogicalType) uint32
	duckdbEnumDictionaryValue func(lt nativeLogicalType, index uint64) unsafe.Pointer

	// Appender
	duckdbAppenderCreate      func(conn nativeConnection, schema string, table string, outAppender *nativeAppender) nativeState
	duckdbAppenderError       func(appender nativeAppender) unsafe.Pointer
	duckdbAppenderFlush       func(appender nativeAppender) nativeState
	duckdbAppenderDestroy     func(appender *nativeAppender) nativeState
	duckdbAppenderColumnCount func(appender nativeAppender) uint64
	duckdbAppenderEndRow      func(appender nativeAppender) nativeState
	duckdbAppendBool          func(appender nativeAppender, value bool) nativeState
	duckdbAppendInt8          func(appender nativeAppender, value int8) nativeState
	duckdbAppendInt16         func(appender nativeAppender, value int16) nativeState
	duckdbAppendInt32         func(appender nativeAppender, value int32) nativeState
	duckdbAppendInt64         func(appender nativeAppender, value int64) nativeState
	duckdbAppendUint8         func(appender nativeAppender, value uint8) nativeState
	duckdbAppendUint16        func(appender nativeAppender, value uint16) nativeState
	duckdbAppendUint32        func(appender nativeAppender, value uint32) nativeState
	duckdbAppendUint64        func(appender nativeAppender, value uint64) nativeState
	duckdbAppendFloat         func(appender nativeAppender, value float32) nativeState
	duckdbAppendDouble        func(appender nativeAppender, value float64) nativeState
	duckdbAppendVarchar       func(appender nativeAppender, value string) nativeState
	duckdbAppendBlob          func(appender nativeAppender, data unsafe.Pointer, length uint64) nativeState
	duckdbAppendNull          func(appender nativeAppender) nativeState
	duckdbAppendTimestamp     func(appender nativeAppender, micros int64) nativeState
	duckdbAppendInterval      func(appender nativeAppender, value interval) nativeState
	duckdbAppendHugeint       func(appender nativeAppender, value hugeint) nativeState

	// Memory management
	duckdbFree func(ptr unsafe.Pointer)
)

// findLibraryPath locates the DuckDB shared library. The
// QUACKDB_LIBRARY_PATH environment variable overrides all search logic.
func findLibraryPath() string {
	if path := os.Getenv("QUACKDB_LIBRARY_PATH"); path != "" {
		return path
	}

	var libName string
	switch runtime.GOOS {
	case "windows":
		libName = "duckdb.dll"
	case "darwin":
		libName = "libduckdb.dylib"
	default:
		libName = "libduckdb.so"
	}

	// Check several well-known locations before falling back to the
	// system loader's own search path.
	var searchPaths []string
	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), libName))
	}
	searchPaths = append(searchPaths, filepath.Join(".", libName))
	switch runtime.GOOS {
	case "darwin":
		searchPaths = append(searchPaths,
			filepath.Join("/opt/homebrew/lib", libName),
			filepath.Join("/usr/local/lib", libName),
		)
	case "linux":
		searchPaths = append(searchPaths,
			filepath.Join("/usr/local/lib", libName),
			filepath.Join("/usr/lib", libName),
			filepath.Join("/usr/lib/x86_64-linux-gnu", libName),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// Bare name lets dlopen/LoadLibrary consult LD_LIBRARY_PATH and friends.
	return libName
}

// loadNativeLibrary loads the DuckDB shared library and registers every C
// API function the driver uses. Safe to call from multiple goroutines; the
// work happens once.
func loadNativeLibrary() error {
	nativeLibOnce.Do(func() {
		nativeLibPath = findLibraryPath()

		lib, err := loadDynamicLibrary(nativeLibPath)
		if err != nil {
			nativeLibErr = fmt.Errorf("quackdb: failed to load DuckDB library %q: %w (set QUACKDB_LIBRARY_PATH to override)", nativeLibPath, err)
			return
		}
		nativeLib = lib

		registerNativeFunctions()
	})
	return nativeLibErr
}

// NativeLibraryAvailable reports whether the DuckDB shared library could be
// loaded on this system.
func NativeLibraryAvailable() bool {
	return loadNativeLibrary() == nil
}

// NativeLibraryError returns the error from loading the DuckDB shared
// library, or nil if loading succeeded.
func NativeLibraryError() error {
	return loadNativeLibrary()
}

func registerNativeFunctions() {
	// Database and connection
	purego.RegisterLibFunc(&duckdbOpenExt, nativeLib, "duckdb_open_ext")
	purego.RegisterLibFunc(&duckdbClose, nativeLib, "duckdb_close")
	purego.RegisterLibFunc(&duckdbConnect, nativeLib, "duckdb_connect")
	purego.RegisterLibFunc(&duckdbDisconnect, nativeLib, "duckdb_disconnect")
	purego.RegisterLibFunc(&duckdbLibraryVersion, nativeLib, "duckdb_library_version")

	// Configuration
	purego.RegisterLibFunc(&duckdbCreateConfig, nativeLib, "duckdb_create_config")
	purego.RegisterLibFunc(&duckdbSetConfig, nativeLib, "duckdb_set_config")
	purego.RegisterLibFunc(&duckdbDestroyConfig, nativeLib, "duckdb_destroy_config")

	// Query execution and results
	purego.RegisterLibFunc(&duckdbQuery, nativeLib, "duckdb_query")
	purego.RegisterLibFunc(&duckdbDestroyResult, nativeLib, "duckdb_destroy_result")
	purego.RegisterLibFunc(&duckdbResultError, nativeLib, "duckdb_result_error")
	purego.RegisterLibFunc(&duckdbColumnCount, nativeLib, "duckdb_column_count")
	purego.RegisterLibFunc(&duckdbColumnName, nativeLib, "duckdb_column_name")
	purego.RegisterLibFunc(&duckdbColumnType, nativeLib, "duckdb_column_type")
	purego.RegisterLibFunc(&duckdbRowsChanged, nativeLib, "duckdb_rows_changed")
	purego.RegisterLibFunc(&duckdbFetchChunk, nativeLib, "duckdb_fetch_chunk")

	// Prepared statements
	purego.RegisterLibFunc(&duckdbPrepare, nativeLib, "duckdb_prepare")
	purego.RegisterLibFunc(&duckdbPrepareError, nativeLib, "duckdb_prepare_error")
	purego.RegisterLibFunc(&duckdbDestroyPrepare, nativeLib, "duckdb_destroy_prepare")
	purego.RegisterLibFunc(&duckdbNParams, nativeLib, "duckdb_nparams")
	purego.RegisterLibFunc(&duckdbParameterName, nativeLib, "duckdb_parameter_name")
	purego.RegisterLibFunc(&duckdbParamType, nativeLib, "duckdb_param_type")
	purego.RegisterLibFunc(&duckdbBindParameterIndex, nativeLib, "duckdb_bind_parameter_index")
	purego.RegisterLibFunc(&duckdbClearBindings, nativeLib, "duckdb_clear_bindings")
	purego.RegisterLibFunc(&duckdbBindValue, nativeLib, "duckdb_bind_value")
	purego.RegisterLibFunc(&duckdbBindNull, nativeLib, "duckdb_bind_null")
	purego.RegisterLibFunc(&duckdbExecutePrepared, nativeLib, "duckdb_execute_prepared")
	purego.RegisterLibFunc(&duckdbPreparedStatementType, nativeLib, "duckdb_prepared_statement_type")

	// Value construction and destruction
	purego.RegisterLibFunc(&duckdbDestroyValue, nativeLib, "duckdb_destroy_value")
	purego.RegisterLibFunc(&duckdbCreateBool, nativeLib, "duckdb_create_bool")
	purego.RegisterLibFunc(&duckdbCreateInt8, nativeLib, "duckdb_create_int8")
	purego.RegisterLibFunc(&duckdbCreateInt16, nativeLib, "duckdb_create_int16")
	purego.RegisterLibFunc(&duckdbCreateInt32, nativeLib, "duckdb_create_int32")
	purego.RegisterLibFunc(&duckdbCreateInt64, nativeLib, "duckdb_create_int64")
	purego.RegisterLibFunc(&duckdbCreateUint8, nativeLib, "duckdb_create_uint8")
	purego.RegisterLibFunc(&duckdbCreateUint16, nativeLib, "duckdb_create_uint16")
	purego.RegisterLibFunc(&duckdbCreateUint32, nativeLib, "duckdb_create_uint32")
	purego.RegisterLibFunc(&duckdbCreateUint64, nativeLib, "duckdb_create_uint64")
	purego.RegisterLibFunc(&duckdbCreateFloat, nativeLib, "duckdb_create_float")
	purego.RegisterLibFunc(&duckdbCreateDouble, nativeLib, "duckdb_create_double")
	purego.RegisterLibFunc(&duckdbCreateVarcharLength, nativeLib, "duckdb_create_varchar_length")
	purego.RegisterLibFunc(&duckdbCreateBlob, nativeLib, "duckdb_create_blob")
	purego.RegisterLibFunc(&duckdbCreateTimestamp, nativeLib, "duckdb_create_timestamp")
	purego.RegisterLibFunc(&duckdbCreateInterval, nativeLib, "duckdb_create_interval")
	purego.RegisterLibFunc(&duckdbCreateHugeint, nativeLib, "duckdb_create_hugeint")

	// Data chunks and vectors
	purego.RegisterLibFunc(&duckdbDataChunkGetSize, nativeLib, "duckdb_data_chunk_get_size")
	purego.RegisterLibFunc(&duckdbDataChunkGetColumnCount, nativeLib, "duckdb_data_chunk_get_column_count")
	purego.RegisterLibFunc(&duckdbDataChunkGetVector, nativeLib, "duckdb_data_chunk_get_vector")
	purego.RegisterLibFunc(&duckdbDestroyDataChunk, nativeLib, "duckdb_destroy_data_chunk")
	purego.RegisterLibFunc(&duckdbVectorGetColumnType, nativeLib, "duckdb_vector_get_column_type")
	purego.RegisterLibFunc(&duckdbVectorGetData, nativeLib, "duckdb_vector_get_data")
	purego.RegisterLibFunc(&duckdbVectorGetValidity, nativeLib, "duckdb_vector_get_validity")

	// Logical type introspection
	purego.RegisterLibFunc(&duckdbGetTypeID, nativeLib, "duckdb_get_type_id")
	purego.RegisterLibFunc(&duckdbDestroyLogicalType, nativeLib, "duckdb_destroy_logical_type")
	purego.RegisterLibFunc(&duckdbDecimalWidth, nativeLib, "duckdb_decimal_width")
	purego.RegisterLibFunc(&duckdbDecimalScale, nativeLib, "duckdb_decimal_scale")
	purego.RegisterLibFunc(&duckdbDecimalInternalType, nativeLib, "duckdb_decimal_internal_type")
	purego.RegisterLibFunc(&duckdbEnumInternalType, nativeLib, "duckdb_enum_internal_type")
	purego.RegisterLibFunc(&duckdbEnumDictionarySize, nativeLib, "duckdb_enum_dictionary_size")
	purego.RegisterLibFunc(&duckdbEnumDictionaryValue, nativeLib, "duckdb_enum_dictionary_value")

	// Appender
	purego.RegisterLibFunc(&duckdbAppenderCreate, nativeLib, "duckdb_appender_create")
	purego.RegisterLibFunc(&duckdbAppenderError, nativeLib, "duckdb_appender_error")
	purego.RegisterLibFunc(&duckdbAppenderFlush, nativeLib, "duckdb_appender_flush")
	purego.RegisterLibFunc(&duckdbAppenderDestroy, nativeLib, "duckdb_appender_destroy")
	purego.RegisterLibFunc(&duckdbAppenderColumnCount, nativeLib, "duckdb_appender_column_count")
	purego.RegisterLibFunc(&duckdbAppenderEndRow, nativeLib, "duckdb_appender_end_row")
	purego.RegisterLibFunc(&duckdbAppendBool, nativeLib, "duckdb_append_bool")
	purego.RegisterLibFunc(&duckdbAppendInt8, nativeLib, "duckdb_append_int8")
	purego.RegisterLibFunc(&duckdbAppendInt16, nativeLib, "duckdb_append_int16")
	purego.RegisterLibFunc(&duckdbAppendInt32, nativeLib, "duckdb_append_int32")
	purego.RegisterLibFunc(&duckdbAppendInt64, nativeLib, "duckdb_append_int64")
	purego.RegisterLibFunc(&duckdbAppendUint8, nativeLib, "duckdb_append_uint8")
	purego.RegisterLibFunc(&duckdbAppendUint16, nativeLib, "duckdb_append_uint16")
	purego.RegisterLibFunc(&duckdbAppendUint32, nativeLib, "duckdb_append_uint32")
	purego.RegisterLibFunc(&duckdbAppendUint64, nativeLib, "duckdb_append_uint64")
	purego.RegisterLibFunc(&duckdbAppendFloat, nativeLib, "duckdb_append_float")
	purego.RegisterLibFunc(&duckdbAppendDouble, nativeLib, "duckdb_append_double")
	purego.RegisterLibFunc(&duckdbAppendVarchar, nativeLib, "duckdb_append_varchar")
	purego.RegisterLibFunc(&duckdbAppendBlob, nativeLib, "duckdb_append_blob")
	purego.RegisterLibFunc(&duckdbAppendNull, nativeLib, "duckdb_append_null")
	purego.RegisterLibFunc(&duckdbAppendTimestamp, nativeLib, "duckdb_append_timestamp")
	purego.RegisterLibFunc(&duckdbAppendInterval, nativeLib, "duckdb_append_interval")
	purego.RegisterLibFunc(&duckdbAppendHugeint, nativeLib, "duckdb_append_hugeint")

	// Memory management
	purego.RegisterLibFunc(&duckdbFree, nativeLib, "duckdb_free")
}

// goString copies a NUL-terminated C string into Go-owned memory.
func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	b := make([]byte, n)
	copy(b, unsafe.Slice((*byte)(p), n))
	return string(b)
}

// goStringFree copies a C string the engine allocated for the caller, then
// releases the native allocation with duckdb_free.
func goStringFree(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	s := goString(p)
	duckdbFree(p)
	return s
}
