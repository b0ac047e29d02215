package query

import "context"

// Row is one result row keyed by column name.
type Row map[string]any

// Result reports the outcome of a write statement. LastInsertID is only
// meaningful on dialects whose driver exposes it; dialects with RETURNING
// retrieve inserted ids through the Select path instead.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Connection is the execution port the builder drives. Implementations
// own pooling, cancellation and transport; the builder only hands over
// compiled SQL with its ordered bindings.
type Connection interface {
	Select(ctx context.Context, query string, bindings []any) ([]Row, error)
	Exec(ctx context.Context, query string, bindings []any) (Result, error)
	Dialect() string
}

// Statement is one compiled statement paired with its bindings. Truncate
// compiles to more than one statement on some dialects.
type Statement struct {
	SQL      string
	Bindings []any
}

// Grammar compiles query state into dialect SQL. Select-shaped entry
// points draw bindings from the builder's buckets; write-shaped entry
// points return the full ordered binding list because column values are
// interleaved with where-bucket values.
type Grammar interface {
	// CompileSelect compiles the full select, including unions.
	CompileSelect(b *Builder) (string, error)
	// CompileExists wraps the select in an existence probe.
	CompileExists(b *Builder) (string, error)
	// CompileInsert compiles a multi-row insert.
	CompileInsert(b *Builder, values []map[string]any) (string, []any, error)
	// CompileInsertOrIgnore compiles an insert that skips conflicting rows.
	CompileInsertOrIgnore(b *Builder, values []map[string]any) (string, []any, error)
	// CompileInsertGetID compiles a single-row insert arranged so the new
	// id is retrievable: plain insert for side-channel dialects, RETURNING
	// for the rest.
	CompileInsertGetID(b *Builder, values map[string]any, sequence string) (string, []any, error)
	// CompileUpsert compiles an insert that updates the named columns on
	// conflict with uniqueBy.
	CompileUpsert(b *Builder, values []map[string]any, uniqueBy, update []string) (string, []any, error)
	// CompileUpdate compiles an update constrained by the builder's wheres.
	CompileUpdate(b *Builder, values map[string]any) (string, []any, error)
	// CompileDelete compiles a delete constrained by the builder's wheres.
	CompileDelete(b *Builder) (string, []any, error)
	// CompileTruncate returns the ordered statements that empty the table.
	CompileTruncate(b *Builder) []Statement
	// SupportsReturning reports whether insert ids come back as rows.
	SupportsReturning() bool
	// Wrap quotes an identifier (dotted and aliased forms included) in
	// the dialect's quoting style. Raw expressions pass through verbatim.
	Wrap(value any) string
	// Dialect returns the dialect name.
	Dialect() string
}
