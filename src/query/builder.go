package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Builder accumulates the structure of a single SQL statement through
// fluent clause-adding calls, then hands it to a Grammar for compilation
// and to a Connection for execution.
//
// A Builder is not safe for concurrent mutation. Clone yields an
// independently mutable copy; nested subquery builders attached to
// predicate nodes are shared by reference since they are treated as
// immutable once attached.
type Builder struct {
	conn    Connection
	grammar Grammar

	Columns      []any // string, Expr, or *SubSelect
	IsDistinct   bool
	Aggregate    *AggregateExpr
	FromTable    any // string, Expr, or *SubSelect
	Joins        []*JoinClause
	Wheres       []Where
	Groups       []any // string or Expr
	Havings      []Having
	Orders       []Order
	LimitN       int // -1 when unset
	OffsetN      int // -1 when unset
	Unions       []Union
	UnionOrders  []Order
	UnionLimitN  int // -1 when unset
	UnionOffsetN int // -1 when unset
	LockMode     LockMode

	bindings   map[string][]any
	rawAliases map[string]string // alias -> expression, recorded by SelectRaw
}

// AggregateExpr describes a synthetic aggregate projection installed by
// Count, Min, Max, Sum and Avg.
type AggregateExpr struct {
	Function string
	Columns  []any
}

// Union is one entry of a UNION / UNION ALL chain.
type Union struct {
	Query *Builder
	All   bool
}

// LockMode selects the row-locking clause appended to a SELECT.
type LockMode int

const (
	LockNone LockMode = iota
	LockForUpdate
	LockShared
)

// Order is a single ORDER BY entry: a column with a direction, a seeded
// random ordering, or a raw fragment.
type Order struct {
	Column    any // string or Expr
	Direction string
	Random    bool
	Seed      string
	SQL       string // raw entry when non-empty
}

// NewBuilder returns an empty query state bound to the given connection
// and grammar. The connection may be nil for compile-only use.
func NewBuilder(conn Connection, grammar Grammar) *Builder {
	return &Builder{
		conn:         conn,
		grammar:      grammar,
		LimitN:       -1,
		OffsetN:      -1,
		UnionLimitN:  -1,
		UnionOffsetN: -1,
		bindings:     newBindings(),
		rawAliases:   map[string]string{},
	}
}

// NewQuery returns a fresh empty builder sharing this builder's
// connection and grammar.
func (b *Builder) NewQuery() *Builder {
	return NewBuilder(b.conn, b.grammar)
}

// forNestedWhere returns a child builder used to compile a grouped
// predicate. It inherits the parent's table so column resolution behaves
// the same inside the group.
func (b *Builder) forNestedWhere() *Builder {
	nb := b.NewQuery()
	nb.FromTable = b.FromTable
	return nb
}

// Grammar returns the grammar this builder compiles with.
func (b *Builder) Grammar() Grammar { return b.grammar }

// Connection returns the execution port, which may be nil.
func (b *Builder) Connection() Connection { return b.conn }

// --- Projection ---

// Select replaces the projected column list. Accepts column names,
// dotted and aliased identifiers, and Raw expressions.
func (b *Builder) Select(columns ...any) *Builder {
	b.Columns = nil
	b.setBindings(BindingSelect, nil)
	return b.AddSelect(columns...)
}

// AddSelect appends to the projected column list.
func (b *Builder) AddSelect(columns ...any) *Builder {
	b.Columns = append(b.Columns, columns...)
	return b
}

// Distinct marks the select as DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.IsDistinct = true
	return b
}

var selectAliasRe = regexp.MustCompile("(?is)^(.*\\S)\\s+as\\s+[`\"']?(\\w+)[`\"']?\\s*$")

// SelectRaw appends a raw projection fragment with optional bindings.
// Trailing "AS alias" forms are recorded so a later Having on the alias
// resolves back to the original expression.
func (b *Builder) SelectRaw(sql string, bindings ...any) *Builder {
	b.Columns = append(b.Columns, Raw(sql))
	if len(bindings) > 0 {
		b.AddBinding(bindings, BindingSelect)
	}
	for _, part := range splitTopLevel(sql, ',') {
		if m := selectAliasRe.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
			// An expression with a placeholder cannot be replayed in a
			// having clause; its binding lives in the select bucket.
			if strings.ContainsRune(m[1], '?') {
				continue
			}
			b.rawAliases[m[2]] = m[1]
		}
	}
	return b
}

// SelectSub projects a subquery as a derived column under the given alias.
func (b *Builder) SelectSub(sub any, alias string) *Builder {
	q := b.createSub(sub)
	b.Columns = append(b.Columns, &SubSelect{Query: q, Alias: alias})
	b.AddBinding(q.GetBindings(), BindingSelect)
	return b
}

// ResolveColumnAlias maps a raw-select alias back to its expression. It
// returns the input unchanged when no alias was recorded.
func (b *Builder) ResolveColumnAlias(column string) (string, bool) {
	expr, ok := b.rawAliases[column]
	if !ok {
		return column, false
	}
	return expr, true
}

// --- Source ---

// From sets the source table, with an optional alias.
func (b *Builder) From(table string, alias ...string) *Builder {
	if len(alias) > 0 && alias[0] != "" {
		b.FromTable = table + " as " + alias[0]
	} else {
		b.FromTable = table
	}
	return b
}

// FromRaw sets the source to a raw fragment with optional bindings.
func (b *Builder) FromRaw(sql string, bindings ...any) *Builder {
	b.FromTable = Raw(sql)
	if len(bindings) > 0 {
		b.AddBinding(bindings, BindingFrom)
	}
	return b
}

// FromSub selects from a derived table built by the given subquery.
func (b *Builder) FromSub(sub any, alias string) *Builder {
	q := b.createSub(sub)
	b.FromTable = &SubSelect{Query: q, Alias: alias}
	b.AddBinding(q.GetBindings(), BindingFrom)
	return b
}

// createSub normalizes the accepted subquery forms: a closure over a
// fresh builder, or an already-built *Builder.
func (b *Builder) createSub(sub any) *Builder {
	switch s := sub.(type) {
	case *Builder:
		return s
	case func(*Builder):
		q := b.NewQuery()
		s(q)
		return q
	default:
		panic(fmt.Sprintf("query: subquery must be *Builder or func(*Builder), got %T", sub))
	}
}

// --- Grouping ---

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...any) *Builder {
	b.Groups = append(b.Groups, columns...)
	return b
}

// GroupByRaw appends a raw grouping fragment with optional bindings.
func (b *Builder) GroupByRaw(sql string, bindings ...any) *Builder {
	b.Groups = append(b.Groups, Raw(sql))
	if len(bindings) > 0 {
		b.AddBinding(bindings, BindingGroupBy)
	}
	return b
}

// --- Ordering ---

// OrderBy appends an ascending order on the column unless a direction is
// given. Direction must be "asc" or "desc".
func (b *Builder) OrderBy(column any, direction ...string) *Builder {
	dir := "asc"
	if len(direction) > 0 {
		dir = strings.ToLower(direction[0])
	}
	if dir != "asc" && dir != "desc" {
		panic(fmt.Sprintf("query: order direction must be asc or desc, got %q", dir))
	}
	b.appendOrder(Order{Column: column, Direction: dir})
	return b
}

// OrderByDesc orders by the column descending.
func (b *Builder) OrderByDesc(column any) *Builder {
	return b.OrderBy(column, "desc")
}

// Latest orders by the column (default created_at) descending.
func (b *Builder) Latest(column ...string) *Builder {
	col := "created_at"
	if len(column) > 0 {
		col = column[0]
	}
	return b.OrderBy(col, "desc")
}

// Oldest orders by the column (default created_at) ascending.
func (b *Builder) Oldest(column ...string) *Builder {
	col := "created_at"
	if len(column) > 0 {
		col = column[0]
	}
	return b.OrderBy(col, "asc")
}

// InRandomOrder orders rows randomly, with an optional dialect seed.
func (b *Builder) InRandomOrder(seed ...string) *Builder {
	o := Order{Random: true}
	if len(seed) > 0 {
		o.Seed = seed[0]
	}
	b.appendOrder(o)
	return b
}

// OrderByRaw appends a raw ORDER BY fragment with optional bindings.
func (b *Builder) OrderByRaw(sql string, bindings ...any) *Builder {
	b.appendOrder(Order{SQL: sql})
	bucket := BindingOrder
	if len(b.Unions) > 0 {
		bucket = BindingUnionOrder
	}
	if len(bindings) > 0 {
		b.AddBinding(bindings, bucket)
	}
	return b
}

// Reorder drops all accumulated orderings (and their bindings), then
// optionally installs a new one.
func (b *Builder) Reorder(column ...any) *Builder {
	b.Orders = nil
	b.UnionOrders = nil
	b.setBindings(BindingOrder, nil)
	b.setBindings(BindingUnionOrder, nil)
	if len(column) > 0 {
		dir := "asc"
		if len(column) > 1 {
			dir, _ = column[1].(string)
		}
		return b.OrderBy(column[0], dir)
	}
	return b
}

// appendOrder routes orderings added after a union to the union order
// list, which compiles after all unioned queries.
func (b *Builder) appendOrder(o Order) {
	if len(b.Unions) > 0 {
		b.UnionOrders = append(b.UnionOrders, o)
		return
	}
	b.Orders = append(b.Orders, o)
}

// --- Limit / offset ---

// Limit caps the number of returned rows. Negative values clear the cap.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		n = -1
	}
	if len(b.Unions) > 0 {
		b.UnionLimitN = n
	} else {
		b.LimitN = n
	}
	return b
}

// Take is an alias for Limit.
func (b *Builder) Take(n int) *Builder { return b.Limit(n) }

// Offset skips the given number of rows. Negative values are clamped to 0.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		n = 0
	}
	if len(b.Unions) > 0 {
		b.UnionOffsetN = n
	} else {
		b.OffsetN = n
	}
	return b
}

// Skip is an alias for Offset.
func (b *Builder) Skip(n int) *Builder { return b.Offset(n) }

// ForPage constrains the query to the given 1-based page.
func (b *Builder) ForPage(page, perPage int) *Builder {
	if page < 1 {
		page = 1
	}
	return b.Offset((page - 1) * perPage).Limit(perPage)
}

// --- Unions ---

// Union appends a UNION with the given query or closure.
func (b *Builder) Union(sub any) *Builder { return b.union(sub, false) }

// UnionAll appends a UNION ALL with the given query or closure.
func (b *Builder) UnionAll(sub any) *Builder { return b.union(sub, true) }

func (b *Builder) union(sub any, all bool) *Builder {
	q := b.createSub(sub)
	b.Unions = append(b.Unions, Union{Query: q, All: all})
	b.AddBinding(q.GetBindings(), BindingUnion)
	return b
}

// --- Locks ---

// LockForUpdate requests an exclusive row lock on the selected rows.
func (b *Builder) LockForUpdate() *Builder {
	b.LockMode = LockForUpdate
	return b
}

// SharedLock requests a shared row lock on the selected rows.
func (b *Builder) SharedLock() *Builder {
	b.LockMode = LockShared
	return b
}

// --- Introspection ---

// ToSQL compiles the current state into dialect SQL. Compilation is a
// read-only operation; it may be repeated.
func (b *Builder) ToSQL() (string, error) {
	if b.grammar == nil {
		return "", ErrNoGrammar
	}
	return b.grammar.CompileSelect(b)
}

// ToRawSQL compiles the query and interpolates the bindings as literals.
// Debug aid only: the result must never be executed.
func (b *Builder) ToRawSQL() (string, error) {
	sql, err := b.ToSQL()
	if err != nil {
		return "", err
	}
	return interpolate(sql, b.GetBindings())
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// parentheses or single-quoted strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start, quoted := 0, 0, false
	for i := 0; i < len(s); i++ {
		switch {
		case quoted:
			if s[i] == '\'' {
				quoted = false
			}
		case s[i] == '\'':
			quoted = true
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		case s[i] == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
