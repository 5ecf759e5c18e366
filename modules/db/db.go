// Package db is the concrete "a native handler that chooses to await
// an external future" illustration: db.query runs on a background
// goroutine and hands the VM a Future it Awaits, rather than blocking
// the calling goroutine for the length of the round trip. Grounded on
// pkg/pdo/{mysql,pgsql,sqlite}_driver.go's per-driver Open/Conn shape,
// re-homed as a plain host-extension module (four free functions, no
// PDO object system) since full PDO parity is the explicit
// std-module-wrapper the runtime core stays out of.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

// connTypeHash tags the KindAny value db.open returns, so a TypeCheck
// against it or a later protocol dispatch can tell a connection handle
// apart from any other host-defined Any value sharing the same
// RuntimeContext.
var connTypeHash = hash.Of("db::conn")

type conn struct {
	db *sql.DB
}

// Module returns the db module: open/query/exec/close as plain
// functions (not associated methods — a connection handle is an
// opaque Any, not a type bytecode dispatches methods against).
func Module() *runtimectx.Module {
	m := runtimectx.NewModule("db")
	m.Function(hash.Of("db::open"), open)
	m.Function(hash.Of("db::query"), query)
	m.Function(hash.Of("db::exec"), exec)
	m.Function(hash.Of("db::close"), closeConn)
	return m
}

// open(driverName, dsn) pops dsn then driverName (last-pushed-first
// convention) and pushes a KindAny connection handle. sql.Open itself
// rarely fails — the driver only validates the DSN shape — so most
// connectivity failures surface later, on the first query or exec.
func open(stack *vmstack.Stack) error {
	dsn := stack.Pop()
	driverName := stack.Pop()
	if driverName.Kind() != values.KindString || dsn.Kind() != values.KindString {
		return fmt.Errorf("db.open: driver and dsn must be strings")
	}
	sdb, err := sql.Open(driverName.AsString(), dsn.AsString())
	if err != nil {
		return fmt.Errorf("db.open: %w", err)
	}
	stack.Push(values.NewAny(connTypeHash, &conn{db: sdb}))
	return nil
}

// closeConn(handle) closes the underlying *sql.DB pool.
func closeConn(stack *vmstack.Stack) error {
	handle := stack.Pop()
	c, err := asConn(handle)
	if err != nil {
		return err
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("db.close: %w", err)
	}
	stack.Push(values.Unit)
	return nil
}

// query(handle, sqlText, paramsVec) pops paramsVec, sqlText, then
// handle, and pushes a Future resolving to a Vec of row Maps (column
// name -> Value). Arguments are collected into one Vec rather than a
// true variadic call, since a direct Call's FunctionHandler has no
// arity operand of its own to read a variable count from (vm's
// operand-packing notes in DESIGN.md) — the compiler is expected to
// build that Vec the same way it builds one for a Tuple literal.
func query(stack *vmstack.Stack) error {
	params := stack.Pop()
	sqlText := stack.Pop()
	handle := stack.Pop()
	c, err := asConn(handle)
	if err != nil {
		return err
	}
	if sqlText.Kind() != values.KindString {
		return fmt.Errorf("db.query: sql text must be a string")
	}
	args, err := toDriverArgs(params)
	if err != nil {
		return err
	}

	result := make(chan queryOutcome, 1)
	go func() {
		rows, err := c.db.QueryContext(context.Background(), sqlText.AsString(), args...)
		if err != nil {
			result <- queryOutcome{err: fmt.Errorf("db.query: %w", err)}
			return
		}
		defer rows.Close()
		v, err := scanRows(rows)
		result <- queryOutcome{value: v, err: err}
	}()

	stack.Push(values.NewFuture(&values.FutureState{Exec: &resultFuture{ch: result}}))
	return nil
}

// exec(handle, sqlText, paramsVec) behaves like query but runs a
// statement expected to mutate rows, resolving the Future to a Tuple
// of (rowsAffected, lastInsertId) instead of a row set.
func exec(stack *vmstack.Stack) error {
	params := stack.Pop()
	sqlText := stack.Pop()
	handle := stack.Pop()
	c, err := asConn(handle)
	if err != nil {
		return err
	}
	if sqlText.Kind() != values.KindString {
		return fmt.Errorf("db.exec: sql text must be a string")
	}
	args, err := toDriverArgs(params)
	if err != nil {
		return err
	}

	result := make(chan queryOutcome, 1)
	go func() {
		res, err := c.db.ExecContext(context.Background(), sqlText.AsString(), args...)
		if err != nil {
			result <- queryOutcome{err: fmt.Errorf("db.exec: %w", err)}
			return
		}
		affected, _ := res.RowsAffected()
		lastID, _ := res.LastInsertId()
		v := values.NewTuple([]values.Value{values.NewInt(affected), values.NewInt(lastID)})
		result <- queryOutcome{value: v}
	}()

	stack.Push(values.NewFuture(&values.FutureState{Exec: &resultFuture{ch: result}}))
	return nil
}

func asConn(v values.Value) (*conn, error) {
	if v.Kind() != values.KindAny {
		return nil, fmt.Errorf("db: expected a connection handle, got %s", v.Kind())
	}
	th, data := v.AsAny()
	if th != connTypeHash {
		return nil, fmt.Errorf("db: Any value is not a connection handle")
	}
	return data.(*conn), nil
}

func toDriverArgs(params values.Value) ([]any, error) {
	if params.Kind() != values.KindVec {
		return nil, fmt.Errorf("db: params must be a vec")
	}
	elems := params.VecSlice()
	args := make([]any, len(elems))
	for i, e := range elems {
		a, err := toDriverValue(e)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return args, nil
}

func toDriverValue(v values.Value) (any, error) {
	switch v.Kind() {
	case values.KindUnit:
		return nil, nil
	case values.KindBool:
		return v.AsBool(), nil
	case values.KindInt:
		return v.AsInt(), nil
	case values.KindFloat:
		return v.AsFloat(), nil
	case values.KindString:
		return v.AsString(), nil
	case values.KindBytes:
		return v.AsBytes(), nil
	default:
		return nil, fmt.Errorf("db: %s is not a bindable query parameter", v.Kind())
	}
}

// scanRows drains a *sql.Rows into a Vec of Maps, one per row, each
// keyed by column name.
func scanRows(rows *sql.Rows) (values.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return values.Value{}, fmt.Errorf("db.query: %w", err)
	}
	var out []values.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return values.Value{}, fmt.Errorf("db.query: %w", err)
		}
		row := values.NewMap()
		for i, col := range cols {
			k, err := values.NewKey(values.NewString(col))
			if err != nil {
				return values.Value{}, err
			}
			if err := row.MapSet(k, fromDriverValue(raw[i])); err != nil {
				return values.Value{}, err
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return values.Value{}, fmt.Errorf("db.query: %w", err)
	}
	return values.NewVec(out), nil
}

func fromDriverValue(raw any) values.Value {
	switch v := raw.(type) {
	case nil:
		return values.Unit
	case bool:
		return values.NewBool(v)
	case int64:
		return values.NewInt(v)
	case float64:
		return values.NewFloat(v)
	case string:
		return values.NewString(v)
	case []byte:
		return values.NewBytes(append([]byte(nil), v...))
	default:
		return values.NewString(fmt.Sprintf("%v", v))
	}
}

type queryOutcome struct {
	value values.Value
	err   error
}

// resultFuture adapts a one-shot result channel to values.Resumable:
// ResumeValue polls the channel without blocking, reporting not-done
// until the background query finishes, so Await only ever suspends
// the VM rather than blocking its goroutine on I/O.
type resultFuture struct {
	ch chan queryOutcome
}

func (f *resultFuture) ResumeValue(uint64) (values.Value, bool, error) {
	select {
	case out := <-f.ch:
		if out.err != nil {
			return values.Value{}, true, out.err
		}
		return out.value, true, nil
	default:
		return values.Unit, false, nil
	}
}
