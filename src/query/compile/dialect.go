// Package compile translates builder query state into dialect-specific
// SQL. One Compiler walks the state in a fixed component order; the
// Dialect interface carries only the points where the targets diverge.
package compile

import (
	"fmt"

	"github.com/quillsql/quill/src/query"
)

// Dialect is the per-database syntax profile. Implementations are
// stateless; everything mutable during a compilation lives in the
// compile state threaded through the call stack.
type Dialect interface {
	// Name returns the dialect identifier ("postgres", "mysql", "sqlite").
	Name() string

	// QuoteIdentifier quotes one identifier segment, escaping embedded
	// quote characters.
	QuoteIdentifier(segment string) string

	// Placeholder returns the parameter token for the 1-based ordinal n.
	// Positional dialects ignore n and return "?".
	Placeholder(n int) string

	// SupportsReturning reports whether inserted ids come back as result
	// rows via a RETURNING clause.
	SupportsReturning() bool

	// CompileLike renders a pattern-match predicate. Dialects whose
	// columns may be non-text cast both sides.
	CompileLike(column, placeholder string, not bool) string

	// CompileDatePart renders a date-part comparison for part in
	// {date, time, day, month, year}.
	CompileDatePart(part, column, operator, placeholder string) string

	// CompileJSONContains renders a containment probe over a JSON column.
	CompileJSONContains(column, placeholder string) (string, error)

	// CompileJSONLength renders a length comparison over a JSON array.
	CompileJSONLength(column, operator, placeholder string) (string, error)

	// CompileFullText renders a native full-text predicate over the
	// pre-wrapped columns, or errors when the dialect has none.
	CompileFullText(columns []string, placeholder string) (string, error)

	// CompileRandom renders the random ordering function.
	CompileRandom(seed string) string

	// CompileLock renders the row-lock suffix, or "" when unsupported.
	CompileLock(mode query.LockMode) string

	// WrapUnion wraps one side of a union chain when the dialect
	// requires parentheses around unioned selects.
	WrapUnion(sql string) string

	// InsertIgnoreClauses returns the statement prefix and suffix that
	// turn a plain insert into a conflict-ignoring one.
	InsertIgnoreClauses() (prefix, suffix string)

	// UpsertSuffix renders the on-conflict/on-duplicate clause updating
	// the given columns. wrap quotes identifiers in this dialect.
	UpsertSuffix(wrap func(string) string, uniqueBy, update []string) string

	// CompileTruncate returns the statements that empty the table.
	// wrappedTable is quoted; rawTable is the bare name for dialects that
	// bind it as a value.
	CompileTruncate(wrappedTable, rawTable string) []query.Statement
}

// For returns a compiler for the named dialect.
func For(dialect string) (*Compiler, error) {
	switch dialect {
	case "postgres", "postgresql", "pgsql":
		return New(Postgres), nil
	case "mysql", "mariadb":
		return New(MySQL), nil
	case "sqlite", "sqlite3":
		return New(SQLite), nil
	default:
		return nil, fmt.Errorf("compile: unknown dialect %q", dialect)
	}
}

// state is the mutable compilation context: the running placeholder
// ordinal. It is created fresh at every top-level compile entry point
// and threaded through recursion, so subquery placeholders continue the
// outer numbering without any text renumbering, and nothing leaks
// between compilations sharing one Compiler.
type state struct {
	n int
}

func (s *state) next() int {
	s.n++
	return s.n
}
