package query_test

import (
	"context"
	"testing"

	"github.com/quillsql/quill/src/query"
	"github.com/quillsql/quill/src/query/compile"
)

// recorded is one statement a fake connection saw.
type recorded struct {
	kind     string // "select" or "exec"
	sql      string
	bindings []any
}

// fakeConn records every statement and answers selects from a queue of
// canned result sets. An exhausted queue yields no rows.
type fakeConn struct {
	dialect    string
	log        []recorded
	selectRows [][]query.Row
	selectErr  error
	execResult query.Result
	execErr    error
}

func (f *fakeConn) Dialect() string {
	if f.dialect == "" {
		return "sqlite"
	}
	return f.dialect
}

func (f *fakeConn) Select(_ context.Context, sql string, bindings []any) ([]query.Row, error) {
	f.log = append(f.log, recorded{kind: "select", sql: sql, bindings: bindings})
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if len(f.selectRows) == 0 {
		return nil, nil
	}
	rows := f.selectRows[0]
	f.selectRows = f.selectRows[1:]
	return rows, nil
}

func (f *fakeConn) Exec(_ context.Context, sql string, bindings []any) (query.Result, error) {
	f.log = append(f.log, recorded{kind: "exec", sql: sql, bindings: bindings})
	return f.execResult, f.execErr
}

func grammarFor(t *testing.T, dialect string) query.Grammar {
	t.Helper()
	g, err := compile.For(dialect)
	if err != nil {
		t.Fatalf("compile.For(%q) failed: %v", dialect, err)
	}
	return g
}

// newBuilder returns a builder bound to the generic dialect with no
// connection; for tests that only compile.
func newBuilder(t *testing.T) *query.Builder {
	t.Helper()
	return query.NewBuilder(nil, grammarFor(t, "sqlite"))
}

// newConnBuilder returns a builder bound to a fake connection.
func newConnBuilder(t *testing.T, conn *fakeConn) *query.Builder {
	t.Helper()
	return query.NewBuilder(conn, grammarFor(t, conn.Dialect()))
}

// expectSQL compiles the builder and compares SQL and bindings.
func expectSQL(t *testing.T, b *query.Builder, wantSQL string, wantBindings ...any) {
	t.Helper()
	sql, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if sql != wantSQL {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, wantSQL)
	}
	got := b.GetBindings()
	if len(got) != len(wantBindings) {
		t.Fatalf("bindings: got %v, want %v", got, wantBindings)
	}
	for i := range wantBindings {
		if got[i] != wantBindings[i] {
			t.Errorf("binding %d: got %v, want %v", i, got[i], wantBindings[i])
		}
	}
}

// lastStatement returns the most recent statement the connection saw.
func lastStatement(t *testing.T, conn *fakeConn) recorded {
	t.Helper()
	if len(conn.log) == 0 {
		t.Fatal("no statements recorded")
	}
	return conn.log[len(conn.log)-1]
}
