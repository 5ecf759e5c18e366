package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

// drain polls a Resumable until it reports done, the way vm.execAwait
// repeatedly calls ResumeValue across VM steps — the db package never
// blocks its own handler goroutine waiting on the result channel.
func drain(t *testing.T, f values.Resumable) (values.Value, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, done, err := f.ResumeValue(^uint64(0))
		if done {
			return v, err
		}
		if time.Now().After(deadline) {
			t.Fatal("future never resolved")
		}
		time.Sleep(time.Millisecond)
	}
}

func openMemoryConn(t *testing.T) values.Value {
	t.Helper()
	stack := vmstack.New(16)
	stack.Push(values.NewString("sqlite"))
	stack.Push(values.NewString(":memory:"))
	require.NoError(t, open(stack))
	return stack.Pop()
}

func TestExecThenQueryRoundTrip(t *testing.T) {
	handle := openMemoryConn(t)

	stack := vmstack.New(16)
	stack.Push(handle)
	stack.Push(values.NewString("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"))
	stack.Push(values.NewVec(nil))
	require.NoError(t, exec(stack))
	_, err := drain(t, stack.Pop().AsFuture().Exec)
	require.NoError(t, err)

	stack.Push(handle)
	stack.Push(values.NewString("INSERT INTO items (name) VALUES (?)"))
	stack.Push(values.NewVec([]values.Value{values.NewString("widget")}))
	require.NoError(t, exec(stack))
	execResult, err := drain(t, stack.Pop().AsFuture().Exec)
	require.NoError(t, err)
	affected, ok := execResult.TupleGet(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), affected.AsInt())

	stack.Push(handle)
	stack.Push(values.NewString("SELECT id, name FROM items"))
	stack.Push(values.NewVec(nil))
	require.NoError(t, query(stack))
	rows, err := drain(t, stack.Pop().AsFuture().Exec)
	require.NoError(t, err)
	require.Equal(t, values.KindVec, rows.Kind())
	require.Equal(t, 1, rows.VecLen())

	row, ok := rows.VecGet(0)
	require.True(t, ok)
	nameKey, err := values.NewKey(values.NewString("name"))
	require.NoError(t, err)
	name, ok := row.MapGet(nameKey)
	require.True(t, ok)
	assert.Equal(t, "widget", name.AsString())
}

func TestOpenRejectsNonStringArgs(t *testing.T) {
	stack := vmstack.New(16)
	stack.Push(values.NewInt(1))
	stack.Push(values.NewString(":memory:"))
	err := open(stack)
	assert.Error(t, err)
}

func TestQueryRejectsNonVecParams(t *testing.T) {
	handle := openMemoryConn(t)
	stack := vmstack.New(16)
	stack.Push(handle)
	stack.Push(values.NewString("SELECT 1"))
	stack.Push(values.NewInt(0))
	err := query(stack)
	assert.Error(t, err)
}
