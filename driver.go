// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

func init() {
	sql.Register("quackdb", &Driver{})
}

// Driver implements database/sql/driver.Driver for the embedded engine.
//
// The data source name is a database path, optionally followed by
// configuration options in URL query form:
//
//	sql.Open("quackdb", "")                                  // in-memory
//	sql.Open("quackdb", "stats.db")                          // file-backed
//	sql.Open("quackdb", "stats.db?access_mode=READ_ONLY&threads=4")
type Driver struct{}

// Open opens a new connection to the database at name.
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector parses name once and returns a connector that can open
// connections with the same settings repeatedly.
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	path, options, err := parseDSN(name)
	if err != nil {
		return nil, err
	}
	return &Connector{path: path, options: options, driver: d}, nil
}

// parseDSN splits a data source name into a database path and the
// connection options encoded in its query string. Every key=value pair is
// passed to the engine as a configuration option.
func parseDSN(dsn string) (string, []ConnectionOption, error) {
	path, query, found := strings.Cut(dsn, "?")
	if path == "" {
		path = ":memory:"
	}
	if !found || query == "" {
		return path, nil, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", nil, Errorf(ErrConnection, "invalid connection string %q: %v", dsn, err)
	}
	options := make([]ConnectionOption, 0, len(values))
	for key, vals := range values {
		options = append(options, WithConfig(key, vals[len(vals)-1]))
	}
	return path, options, nil
}

// Connector implements driver.Connector. NewConnector is the way to pass
// typed options such as WithLogger through database/sql:
//
//	db := sql.OpenDB(quackdb.NewConnector("stats.db", quackdb.WithThreads(4)))
type Connector struct {
	path    string
	options []ConnectionOption
	driver  *Driver
}

// NewConnector returns a connector for sql.OpenDB.
func NewConnector(path string, options ...ConnectionOption) *Connector {
	return &Connector{path: path, options: options, driver: &Driver{}}
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := NewConnection(c.path, c.options...)
	if err != nil {
		return nil, err
	}
	return &conn{db: db}, nil
}

func (c *Connector) Driver() driver.Driver {
	if c.driver == nil {
		return &Driver{}
	}
	return c.driver
}

// conn adapts a Connection to database/sql/driver.Conn.
type conn struct {
	db *Connection
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	ps, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &stmt{ps: ps}, nil
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Prepare(query)
}

func (c *conn) Close() error {
	return c.db.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx starts a transaction on the connection. The engine runs every
// transaction at its single snapshot isolation level, so any explicit
// isolation request other than the default is rejected.
func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		return nil, Errorf(ErrTransaction, "isolation level %s is not supported", sql.IsolationLevel(opts.Isolation))
	}
	if opts.ReadOnly {
		return nil, Errorf(ErrTransaction, "read-only transactions are not supported")
	}
	if _, err := c.db.Exec("BEGIN TRANSACTION"); err != nil {
		return nil, err
	}
	return &tx{db: c.db}, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer ps.Close()
	if err := bindNamedValues(ps, args); err != nil {
		return nil, err
	}
	changed, err := ps.Exec()
	if err != nil {
		return nil, err
	}
	return execResult{changed: changed}, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	if err := bindNamedValues(ps, args); err != nil {
		ps.Close()
		return nil, err
	}
	res, err := ps.Execute()
	if err != nil {
		ps.Close()
		return nil, err
	}
	// The statement travels with the rows and is closed together with them.
	return &rows{res: res, stmt: ps}, nil
}

func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	return checkNamedValue(nv)
}

// Ping verifies the connection still answers queries.
func (c *conn) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := c.db.Query("SELECT 1")
	if err != nil {
		return driver.ErrBadConn
	}
	return res.Close()
}

// stmt adapts a PreparedStatement to database/sql/driver.Stmt.
type stmt struct {
	ps *PreparedStatement
}

func (s *stmt) Close() error {
	return s.ps.Close()
}

func (s *stmt) NumInput() int {
	return s.ps.ParameterCount()
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.exec(valuesToNamed(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.exec(args)
}

func (s *stmt) exec(args []driver.NamedValue) (driver.Result, error) {
	if err := bindNamedValues(s.ps, args); err != nil {
		return nil, err
	}
	changed, err := s.ps.Exec()
	if err != nil {
		return nil, err
	}
	return execResult{changed: changed}, nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.query(valuesToNamed(args))
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.query(args)
}

func (s *stmt) query(args []driver.NamedValue) (driver.Rows, error) {
	if err := bindNamedValues(s.ps, args); err != nil {
		return nil, err
	}
	res, err := s.ps.Execute()
	if err != nil {
		return nil, err
	}
	return &rows{res: res}, nil
}

func (s *stmt) CheckNamedValue(nv *driver.NamedValue) error {
	return checkNamedValue(nv)
}

// checkNamedValue accepts everything Bind can convert, so uuid.UUID,
// *big.Int and time.Duration arguments reach the binder intact instead of
// being rejected by the default converter.
func checkNamedValue(nv *driver.NamedValue) error {
	switch nv.Value.(type) {
	case nil, bool,
		int8, int16, int32, int64, int,
		uint8, uint16, uint32, uint64, uint,
		float32, float64, string, []byte,
		time.Time, time.Duration, *big.Int, uuid.UUID:
		return nil
	}
	v, err := driver.DefaultParameterConverter.ConvertValue(nv.Value)
	if err != nil {
		return Errorf(ErrType, "unsupported parameter type %T", nv.Value)
	}
	nv.Value = v
	return nil
}

func bindNamedValues(ps *PreparedStatement, args []driver.NamedValue) error {
	if len(args) != ps.ParameterCount() {
		return Errorf(ErrBind, "wrong number of parameters: expected %d, got %d", ps.ParameterCount(), len(args))
	}
	if err := ps.ClearBindings(); err != nil {
		return err
	}
	for _, arg := range args {
		var err error
		if arg.Name != "" {
			err = ps.BindNamed(arg.Name, arg.Value)
		} else {
			err = ps.Bind(arg.Ordinal, arg.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

// execResult implements driver.Result. The engine has no row IDs, so
// LastInsertId always reports zero.
type execResult struct {
	changed int64
}

func (r execResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r execResult) RowsAffected() (int64, error) {
	return r.changed, nil
}

var (
	_ driver.Driver             = (*Driver)(nil)
	_ driver.DriverContext      = (*Driver)(nil)
	_ driver.Connector          = (*Connector)(nil)
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.Stmt               = (*stmt)(nil)
	_ driver.StmtExecContext    = (*stmt)(nil)
	_ driver.StmtQueryContext   = (*stmt)(nil)
	_ driver.NamedValueChecker  = (*stmt)(nil)
	_ driver.Result             = execResult{}
)
