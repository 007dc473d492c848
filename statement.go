// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// PreparedStatement wraps one native prepared-statement handle. The handle
// is not safe for unsynchronized concurrent use, so every native call is
// serialized through an internal mutex held only for the duration of the
// call itself. A finalizer releases the handle if the caller never does;
// explicit Close remains the primary cleanup path.
type PreparedStatement struct {
	conn   *Connection
	stmt   nativePreparedStatement
	query  string
	params int
	closed int32
	mu     sync.Mutex
	log    zerolog.Logger
}

// Close frees resources associated with the prepared statement. It is safe
// to call multiple times and safe to race with the finalizer.
func (ps *PreparedStatement) Close() error {
	if !atomic.CompareAndSwapInt32(&ps.closed, 0, 1) {
		return nil // Already closed
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.stmt != 0 {
		duckdbDestroyPrepare(&ps.stmt)
		ps.stmt = 0
	}

	runtime.SetFinalizer(ps, nil)
	return nil
}

// Query returns the SQL text the statement was prepared from.
func (ps *PreparedStatement) Query() string {
	return ps.query
}

// ParameterCount returns the number of placeholders in the statement. The
// count is fixed at prepare time, so no locking is needed.
func (ps *PreparedStatement) ParameterCount() int {
	return ps.params
}

// checkParamIndex validates a 1-based parameter index before any native
// call is made with it.
func (ps *PreparedStatement) checkParamIndex(index int) error {
	if index < 1 || index > ps.params {
		return Errorf(ErrIndexRange, "parameter index %d out of range [1, %d]", index, ps.params)
	}
	return nil
}

// ParameterName returns the name of the parameter at the given 1-based
// index. Positional placeholders report their ordinal as the name.
func (ps *PreparedStatement) ParameterName(index int) (string, error) {
	if err := ps.checkParamIndex(index); err != nil {
		return "", err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		return "", ErrStatementClosed
	}

	return goStringFree(duckdbParameterName(ps.stmt, uint64(index))), nil
}

// ParameterType returns the inferred type of the parameter at the given
// 1-based index.
func (ps *PreparedStatement) ParameterType(index int) (Type, error) {
	if err := ps.checkParamIndex(index); err != nil {
		return TypeInvalid, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		return TypeInvalid, ErrStatementClosed
	}

	return duckdbParamType(ps.stmt, uint64(index)), nil
}

// ParameterIndex resolves a named parameter to its 1-based index.
func (ps *PreparedStatement) ParameterIndex(name string) (int, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		return 0, ErrStatementClosed
	}

	var index uint64
	if state := duckdbBindParameterIndex(ps.stmt, &index, name); state == stateError {
		return 0, Errorf(ErrNotFound, "no parameter named %q", name)
	}

	return int(index), nil
}

// StatementType reports the kind of statement that was prepared, or
// StatementTypeInvalid after Close.
func (ps *PreparedStatement) StatementType() StatementType {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		return StatementTypeInvalid
	}

	return duckdbPreparedStatementType(ps.stmt)
}

// Bind binds a value to the parameter at the given 1-based index. The value
// is boxed into a transient native value which is destroyed after the bind
// call on every path, success or failure.
func (ps *PreparedStatement) Bind(index int, value any) error {
	if atomic.LoadInt32(&ps.closed) != 0 {
		return ErrStatementClosed
	}

	if err := ps.checkParamIndex(index); err != nil {
		return err
	}

	value, err := unwrapValuer(value)
	if err != nil {
		return err
	}

	if value == nil {
		ps.mu.Lock()
		defer ps.mu.Unlock()

		if atomic.LoadInt32(&ps.closed) != 0 {
			return ErrStatementClosed
		}
		if state := duckdbBindNull(ps.stmt, uint64(index)); state == stateError {
			return NewError(ErrBind, goString(duckdbPrepareError(ps.stmt)))
		}
		return nil
	}

	// Unsupported Go types fail here, before any native bind call.
	nv, err := newNativeValue(value)
	if err != nil {
		return err
	}
	defer duckdbDestroyValue(&nv)

	ps.mu.Lock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		ps.mu.Unlock()
		return ErrStatementClosed
	}

	state := duckdbBindValue(ps.stmt, uint64(index), nv)
	var errMsg string
	if state == stateError {
		errMsg = goString(duckdbPrepareError(ps.stmt))
	}
	ps.mu.Unlock()

	if state == stateError {
		return NewError(ErrBind, errMsg)
	}
	return nil
}

// BindNamed binds a value to a named parameter.
func (ps *PreparedStatement) BindNamed(name string, value any) error {
	index, err := ps.ParameterIndex(name)
	if err != nil {
		return err
	}
	return ps.Bind(index, value)
}

// BindAll clears any existing bindings and binds one value per placeholder,
// in query order.
func (ps *PreparedStatement) BindAll(args ...any) error {
	if atomic.LoadInt32(&ps.closed) != 0 {
		return ErrStatementClosed
	}

	if len(args) != ps.params {
		return Errorf(ErrBind, "wrong number of parameters: expected %d, got %d", ps.params, len(args))
	}

	if err := ps.ClearBindings(); err != nil {
		return err
	}

	for i, arg := range args {
		if err := ps.Bind(i+1, arg); err != nil {
			return err
		}
	}
	return nil
}

// ClearBindings removes all currently bound parameter values.
func (ps *PreparedStatement) ClearBindings() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		return ErrStatementClosed
	}

	if state := duckdbClearBindings(ps.stmt); state == stateError {
		return NewError(ErrBind, goString(duckdbPrepareError(ps.stmt)))
	}
	return nil
}

// Execute runs the statement with the currently bound parameters. The
// statement lock is held only for the native execute call and released
// before the result projection is built, so reading one result does not
// block another execute.
func (ps *PreparedStatement) Execute() (*Result, error) {
	if atomic.LoadInt32(&ps.closed) != 0 {
		return nil, ErrStatementClosed
	}

	ps.mu.Lock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		ps.mu.Unlock()
		return nil, ErrStatementClosed
	}

	var res nativeResult
	state := duckdbExecutePrepared(ps.stmt, &res)
	ps.mu.Unlock()

	if state == stateError {
		errMsg := goString(duckdbResultError(&res))
		duckdbDestroyResult(&res)
		return nil, NewError(ErrQuery, errMsg)
	}

	ps.log.Debug().Str("query", ps.query).Msg("statement executed")

	return newResult(&res, ps.log), nil
}

// Exec runs the statement and returns the engine-reported changed-row
// count. Statement kinds that do not report one, such as SELECT, return -1.
func (ps *PreparedStatement) Exec() (int64, error) {
	if atomic.LoadInt32(&ps.closed) != 0 {
		return 0, ErrStatementClosed
	}

	ps.mu.Lock()

	if atomic.LoadInt32(&ps.closed) != 0 {
		ps.mu.Unlock()
		return 0, ErrStatementClosed
	}

	stmtType := duckdbPreparedStatementType(ps.stmt)

	var res nativeResult
	state := duckdbExecutePrepared(ps.stmt, &res)
	ps.mu.Unlock()

	if state == stateError {
		errMsg := goString(duckdbResultError(&res))
		duckdbDestroyResult(&res)
		return 0, NewError(ErrQuery, errMsg)
	}
	defer duckdbDestroyResult(&res)

	if !stmtType.reportsChangedRows() {
		return -1, nil
	}
	return int64(duckdbRowsChanged(&res)), nil
}
