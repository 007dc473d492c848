// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog"
)

// Connection represents a connection to a DuckDB database. A connection is
// safe for concurrent use; native calls through it are serialized.
type Connection struct {
	db     nativeDatabase
	conn   nativeConnection
	closed int32
	mu     sync.Mutex
	log    zerolog.Logger
}

// connectionSettings collects option values before the database is opened.
type connectionSettings struct {
	config map[string]string
	logger zerolog.Logger
}

// ConnectionOption configures a Connection before it is opened.
type ConnectionOption func(*connectionSettings)

// WithConfig sets a DuckDB configuration option by name, for example
// "access_mode" or "default_order".
func WithConfig(name, value string) ConnectionOption {
	return func(s *connectionSettings) {
		s.config[name] = value
	}
}

// WithReadOnly opens the database in read-only mode.
func WithReadOnly() ConnectionOption {
	return WithConfig("access_mode", "READ_ONLY")
}

// WithMaxMemory limits the engine's memory usage, for example "2GB".
func WithMaxMemory(limit string) ConnectionOption {
	return WithConfig("max_memory", limit)
}

// WithThreads sets the number of threads the engine may use.
func WithThreads(n int) ConnectionOption {
	return WithConfig("threads", strconv.Itoa(n))
}

// WithLogger installs a logger for debug tracing. The default connection is
// silent.
func WithLogger(logger zerolog.Logger) ConnectionOption {
	return func(s *connectionSettings) {
		s.logger = logger
	}
}

// NewConnection opens a DuckDB database at path and connects to it. Use
// ":memory:" for an in-memory database.
func NewConnection(path string, options ...ConnectionOption) (*Connection, error) {
	if err := loadNativeLibrary(); err != nil {
		return nil, err
	}

	settings := &connectionSettings{
		config: make(map[string]string),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(settings)
	}

	var config nativeConfig
	if len(settings.config) > 0 {
		if state := duckdbCreateConfig(&config); state == stateError {
			return nil, NewError(ErrConnection, "failed to create database config")
		}
		for name, value := range settings.config {
			if state := duckdbSetConfig(config, name, value); state == stateError {
				duckdbDestroyConfig(&config)
				return nil, Errorf(ErrConnection, "invalid config option %q", name)
			}
		}
	}

	var db nativeDatabase
	var openErr unsafe.Pointer
	state := duckdbOpenExt(path, &db, config, &openErr)
	if config != 0 {
		duckdbDestroyConfig(&config)
	}
	if state == stateError {
		errMsg := goStringFree(openErr)
		if errMsg == "" {
			errMsg = "failed to open database"
		}
		return nil, NewError(ErrConnection, errMsg)
	}

	var conn nativeConnection
	if state := duckdbConnect(db, &conn); state == stateError {
		duckdbClose(&db)
		return nil, NewError(ErrConnection, "failed to connect to database")
	}

	c := &Connection{
		db:   db,
		conn: conn,
		log:  settings.logger,
	}

	c.log.Debug().Str("path", path).Msg("database opened")

	// Ensure native resources are released even if the caller forgets Close.
	runtime.SetFinalizer(c, (*Connection).Close)

	return c, nil
}

// Close closes the connection and the underlying database. It is safe to
// call multiple times and safe to race with the finalizer.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != 0 {
		duckdbDisconnect(&c.conn)
		c.conn = 0
	}

	if c.db != 0 {
		duckdbClose(&c.db)
		c.db = 0
	}

	runtime.SetFinalizer(c, nil)
	c.log.Debug().Msg("connection closed")
	return nil
}

// Prepare compiles a SQL statement for repeated execution. On failure the
// partially created native statement is destroyed before the error is
// returned, carrying the engine's diagnostic text.
func (c *Connection) Prepare(query string) (*PreparedStatement, error) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return nil, ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check again after lock acquisition
	if atomic.LoadInt32(&c.closed) != 0 {
		return nil, ErrConnectionClosed
	}

	var stmt nativePreparedStatement
	if state := duckdbPrepare(c.conn, query, &stmt); state == stateError {
		errMsg := goString(duckdbPrepareError(stmt))
		duckdbDestroyPrepare(&stmt)
		return nil, NewError(ErrPrepare, errMsg)
	}

	ps := &PreparedStatement{
		conn:   c,
		stmt:   stmt,
		query:  query,
		params: int(duckdbNParams(stmt)),
		log:    c.log,
	}

	ps.log.Debug().Str("query", query).Int("params", ps.params).Msg("statement prepared")

	runtime.SetFinalizer(ps, (*PreparedStatement).Close)

	return ps, nil
}

// Query executes a SQL statement directly and returns its result.
func (c *Connection) Query(query string) (*Result, error) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return nil, ErrConnectionClosed
	}

	c.mu.Lock()

	if atomic.LoadInt32(&c.closed) != 0 {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	var res nativeResult
	state := duckdbQuery(c.conn, query, &res)

	// Release the lock before result projection; the result struct is
	// exclusively ours and its accessors do not touch the connection.
	c.mu.Unlock()

	if state == stateError {
		errMsg := goString(duckdbResultError(&res))
		duckdbDestroyResult(&res)
		return nil, NewError(ErrQuery, errMsg)
	}

	return newResult(&res, c.log), nil
}

// Exec executes a SQL statement directly and returns the number of rows
// changed. Statements that produce a result set report zero.
func (c *Connection) Exec(query string) (int64, error) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return 0, ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if atomic.LoadInt32(&c.closed) != 0 {
		return 0, ErrConnectionClosed
	}

	var res nativeResult
	if state := duckdbQuery(c.conn, query, &res); state == stateError {
		errMsg := goString(duckdbResultError(&res))
		duckdbDestroyResult(&res)
		return 0, NewError(ErrExec, errMsg)
	}

	changed := int64(duckdbRowsChanged(&res))
	duckdbDestroyResult(&res)
	return changed, nil
}
