package query

import "fmt"

// WhereType tags a predicate node. The compiler switches exhaustively
// over these; an unhandled kind is a compile error, never a silent no-op.
type WhereType int

const (
	WhereBasic WhereType = iota
	WhereNot
	WhereNested
	WhereIn
	WhereNotIn
	WhereNull
	WhereNotNull
	WhereBetween
	WhereNotBetween
	WhereExists
	WhereNotExists
	WhereSub
	WhereInSub
	WhereNotInSub
	WhereColumn
	WhereRaw
	WhereDate
	WhereTime
	WhereDay
	WhereMonth
	WhereYear
	WhereJSONContains
	WhereJSONDoesntContain
	WhereJSONLength
	WhereLike
	WhereNotLike
	WhereFullText
)

// Where is one node of a predicate tree. The same shape serves WHERE
// clauses and JOIN ON conditions. Boolean is "and" or "or"; the boolean
// of the first node in any compiled list is elided, the clause keyword is
// chosen by position.
type Where struct {
	Type     WhereType
	Column   any // string or Expr
	Operator string
	Value    any
	Values   []any    // In/NotIn/Between/FullText value lists
	Second   string   // right-hand column of a Column comparison
	Query    *Builder // nested group or subquery
	SQL      string   // raw fragment
	Boolean  string
}

const (
	boolAnd = "and"
	boolOr  = "or"
)

// Where adds a basic predicate. Forms:
//
//	Where(func(*Builder))              grouped (nested) predicate
//	Where(column, value)               operator inferred as "="
//	Where(column, operator, value)
//
// A nil value compiles to IS NULL (IS NOT NULL for "!=" / "<>"). A
// closure or *Builder value compiles as a subquery comparison. Raw
// expression values are rendered verbatim and never bound.
func (b *Builder) Where(column any, args ...any) *Builder {
	return b.where(column, boolAnd, false, args)
}

// OrWhere adds a basic predicate joined with OR.
func (b *Builder) OrWhere(column any, args ...any) *Builder {
	return b.where(column, boolOr, false, args)
}

// WhereNot adds a negated predicate (or negated group for closures).
func (b *Builder) WhereNot(column any, args ...any) *Builder {
	return b.where(column, boolAnd, true, args)
}

// OrWhereNot adds a negated predicate joined with OR.
func (b *Builder) OrWhereNot(column any, args ...any) *Builder {
	return b.where(column, boolOr, true, args)
}

func (b *Builder) where(column any, boolean string, negate bool, args []any) *Builder {
	if fn, ok := column.(func(*Builder)); ok {
		return b.whereNested(fn, boolean, negate)
	}
	operator, value := prepareOperatorValue(args)
	if negate {
		// A negated scalar comparison wraps a single-node group so the
		// rendered form is "not (...)".
		nested := b.forNestedWhere()
		nested.Where(column, operator, value)
		b.Wheres = append(b.Wheres, Where{Type: WhereNot, Query: nested, Boolean: boolean})
		b.AddBinding(nested.BindingsFor(BindingWhere), BindingWhere)
		return b
	}
	switch v := value.(type) {
	case nil:
		if operator == "!=" || operator == "<>" {
			return b.whereNull(column, boolean, true)
		}
		return b.whereNull(column, boolean, false)
	case func(*Builder):
		return b.whereSub(column, operator, v, boolean)
	case *Builder:
		return b.whereSub(column, operator, v, boolean)
	}
	b.Wheres = append(b.Wheres, Where{
		Type:     WhereBasic,
		Column:   column,
		Operator: operator,
		Value:    value,
		Boolean:  boolean,
	})
	b.AddBinding(value, BindingWhere)
	return b
}

// prepareOperatorValue implements two-argument operator inference.
func prepareOperatorValue(args []any) (string, any) {
	switch len(args) {
	case 1:
		return "=", args[0]
	case 2:
		op, ok := args[0].(string)
		if !ok {
			panic(fmt.Sprintf("query: operator must be a string, got %T", args[0]))
		}
		return op, args[1]
	default:
		panic(fmt.Sprintf("query: where expects (column, value) or (column, operator, value), got %d extra args", len(args)))
	}
}

// whereNested compiles the closure against a fresh child builder and
// splices the child's entire where list into the parent as one node,
// preserving internal order.
func (b *Builder) whereNested(fn func(*Builder), boolean string, negate bool) *Builder {
	nested := b.forNestedWhere()
	fn(nested)
	if len(nested.Wheres) == 0 {
		return b
	}
	typ := WhereNested
	if negate {
		typ = WhereNot
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Query: nested, Boolean: boolean})
	b.AddBinding(nested.BindingsFor(BindingWhere), BindingWhere)
	return b
}

// whereSub attaches "column <op> (subquery)". The subquery's own
// flattened bindings substitute for a literal binding.
func (b *Builder) whereSub(column any, operator string, sub any, boolean string) *Builder {
	q := b.createSub(sub)
	b.Wheres = append(b.Wheres, Where{
		Type:     WhereSub,
		Column:   column,
		Operator: operator,
		Query:    q,
		Boolean:  boolean,
	})
	b.AddBinding(q.GetBindings(), BindingWhere)
	return b
}

// --- Null ---

// WhereNull adds "column IS NULL".
func (b *Builder) WhereNull(column any) *Builder { return b.whereNull(column, boolAnd, false) }

// OrWhereNull adds "column IS NULL" joined with OR.
func (b *Builder) OrWhereNull(column any) *Builder { return b.whereNull(column, boolOr, false) }

// WhereNotNull adds "column IS NOT NULL".
func (b *Builder) WhereNotNull(column any) *Builder { return b.whereNull(column, boolAnd, true) }

// OrWhereNotNull adds "column IS NOT NULL" joined with OR.
func (b *Builder) OrWhereNotNull(column any) *Builder { return b.whereNull(column, boolOr, true) }

func (b *Builder) whereNull(column any, boolean string, not bool) *Builder {
	typ := WhereNull
	if not {
		typ = WhereNotNull
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Boolean: boolean})
	return b
}

// --- In ---

// WhereIn adds "column IN (...)". The values argument accepts any slice,
// a *Builder, or a closure building a subquery; subquery bindings are
// spliced recursively.
func (b *Builder) WhereIn(column any, values any) *Builder {
	return b.whereIn(column, values, boolAnd, false)
}

// OrWhereIn adds an IN predicate joined with OR.
func (b *Builder) OrWhereIn(column any, values any) *Builder {
	return b.whereIn(column, values, boolOr, false)
}

// WhereNotIn adds "column NOT IN (...)".
func (b *Builder) WhereNotIn(column any, values any) *Builder {
	return b.whereIn(column, values, boolAnd, true)
}

// OrWhereNotIn adds a NOT IN predicate joined with OR.
func (b *Builder) OrWhereNotIn(column any, values any) *Builder {
	return b.whereIn(column, values, boolOr, true)
}

func (b *Builder) whereIn(column any, values any, boolean string, not bool) *Builder {
	switch v := values.(type) {
	case *Builder, func(*Builder):
		q := b.createSub(v)
		typ := WhereInSub
		if not {
			typ = WhereNotInSub
		}
		b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Query: q, Boolean: boolean})
		b.AddBinding(q.GetBindings(), BindingWhere)
		return b
	}
	typ := WhereIn
	if not {
		typ = WhereNotIn
	}
	vs := asAnySlice(values)
	b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Values: vs, Boolean: boolean})
	b.AddBinding(vs, BindingWhere)
	return b
}

// --- Between ---

// WhereBetween adds "column BETWEEN low AND high".
func (b *Builder) WhereBetween(column any, low, high any) *Builder {
	return b.whereBetween(column, low, high, boolAnd, false)
}

// OrWhereBetween adds a BETWEEN predicate joined with OR.
func (b *Builder) OrWhereBetween(column any, low, high any) *Builder {
	return b.whereBetween(column, low, high, boolOr, false)
}

// WhereNotBetween adds "column NOT BETWEEN low AND high".
func (b *Builder) WhereNotBetween(column any, low, high any) *Builder {
	return b.whereBetween(column, low, high, boolAnd, true)
}

// OrWhereNotBetween adds a NOT BETWEEN predicate joined with OR.
func (b *Builder) OrWhereNotBetween(column any, low, high any) *Builder {
	return b.whereBetween(column, low, high, boolOr, true)
}

func (b *Builder) whereBetween(column any, low, high any, boolean string, not bool) *Builder {
	typ := WhereBetween
	if not {
		typ = WhereNotBetween
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Values: []any{low, high}, Boolean: boolean})
	b.AddBinding([]any{low, high}, BindingWhere)
	return b
}

// --- Column comparison ---

// WhereColumn compares two columns: (first, second) infers "=", or
// (first, operator, second).
func (b *Builder) WhereColumn(first string, args ...string) *Builder {
	return b.whereColumn(first, boolAnd, args)
}

// OrWhereColumn adds a column comparison joined with OR.
func (b *Builder) OrWhereColumn(first string, args ...string) *Builder {
	return b.whereColumn(first, boolOr, args)
}

func (b *Builder) whereColumn(first, boolean string, args []string) *Builder {
	var operator, second string
	switch len(args) {
	case 1:
		operator, second = "=", args[0]
	case 2:
		operator, second = args[0], args[1]
	default:
		panic("query: whereColumn expects (first, second) or (first, operator, second)")
	}
	b.Wheres = append(b.Wheres, Where{
		Type:     WhereColumn,
		Column:   first,
		Operator: operator,
		Second:   second,
		Boolean:  boolean,
	})
	return b
}

// --- Exists ---

// WhereExists adds "EXISTS (subquery)".
func (b *Builder) WhereExists(sub any) *Builder { return b.whereExists(sub, boolAnd, false) }

// OrWhereExists adds an EXISTS predicate joined with OR.
func (b *Builder) OrWhereExists(sub any) *Builder { return b.whereExists(sub, boolOr, false) }

// WhereNotExists adds "NOT EXISTS (subquery)".
func (b *Builder) WhereNotExists(sub any) *Builder { return b.whereExists(sub, boolAnd, true) }

// OrWhereNotExists adds a NOT EXISTS predicate joined with OR.
func (b *Builder) OrWhereNotExists(sub any) *Builder { return b.whereExists(sub, boolOr, true) }

func (b *Builder) whereExists(sub any, boolean string, not bool) *Builder {
	q := b.createSub(sub)
	typ := WhereExists
	if not {
		typ = WhereNotExists
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Query: q, Boolean: boolean})
	b.AddBinding(q.GetBindings(), BindingWhere)
	return b
}

// --- Raw ---

// WhereRaw splices a raw predicate fragment with optional bindings. "?"
// placeholders in the fragment are rewritten to the dialect's placeholder
// syntax at compile time.
func (b *Builder) WhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(sql, bindings, boolAnd)
}

// OrWhereRaw splices a raw predicate fragment joined with OR.
func (b *Builder) OrWhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(sql, bindings, boolOr)
}

func (b *Builder) whereRaw(sql string, bindings []any, boolean string) *Builder {
	b.Wheres = append(b.Wheres, Where{Type: WhereRaw, SQL: sql, Boolean: boolean})
	if len(bindings) > 0 {
		b.AddBinding(bindings, BindingWhere)
	}
	return b
}

// --- Date parts ---

// WhereDate compares the date part of a column.
func (b *Builder) WhereDate(column any, args ...any) *Builder {
	return b.whereDatePart(WhereDate, column, boolAnd, args)
}

// OrWhereDate compares the date part of a column, joined with OR.
func (b *Builder) OrWhereDate(column any, args ...any) *Builder {
	return b.whereDatePart(WhereDate, column, boolOr, args)
}

// WhereTime compares the time part of a column.
func (b *Builder) WhereTime(column any, args ...any) *Builder {
	return b.whereDatePart(WhereTime, column, boolAnd, args)
}

// OrWhereTime compares the time part of a column, joined with OR.
func (b *Builder) OrWhereTime(column any, args ...any) *Builder {
	return b.whereDatePart(WhereTime, column, boolOr, args)
}

// WhereDay compares the day-of-month part of a column.
func (b *Builder) WhereDay(column any, args ...any) *Builder {
	return b.whereDatePart(WhereDay, column, boolAnd, args)
}

// WhereMonth compares the month part of a column.
func (b *Builder) WhereMonth(column any, args ...any) *Builder {
	return b.whereDatePart(WhereMonth, column, boolAnd, args)
}

// WhereYear compares the year part of a column.
func (b *Builder) WhereYear(column any, args ...any) *Builder {
	return b.whereDatePart(WhereYear, column, boolAnd, args)
}

func (b *Builder) whereDatePart(typ WhereType, column any, boolean string, args []any) *Builder {
	operator, value := prepareOperatorValue(args)
	b.Wheres = append(b.Wheres, Where{
		Type:     typ,
		Column:   column,
		Operator: operator,
		Value:    value,
		Boolean:  boolean,
	})
	b.AddBinding(value, BindingWhere)
	return b
}

// --- Pattern match ---

// WhereLike adds "column LIKE ?". Dialects that need it cast both sides
// to text.
func (b *Builder) WhereLike(column any, value string) *Builder {
	return b.whereLike(column, value, boolAnd, false)
}

// OrWhereLike adds a LIKE predicate joined with OR.
func (b *Builder) OrWhereLike(column any, value string) *Builder {
	return b.whereLike(column, value, boolOr, false)
}

// WhereNotLike adds "column NOT LIKE ?".
func (b *Builder) WhereNotLike(column any, value string) *Builder {
	return b.whereLike(column, value, boolAnd, true)
}

// OrWhereNotLike adds a NOT LIKE predicate joined with OR.
func (b *Builder) OrWhereNotLike(column any, value string) *Builder {
	return b.whereLike(column, value, boolOr, true)
}

func (b *Builder) whereLike(column any, value string, boolean string, not bool) *Builder {
	typ := WhereLike
	if not {
		typ = WhereNotLike
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Value: value, Boolean: boolean})
	b.AddBinding(value, BindingWhere)
	return b
}

// --- JSON ---

// WhereJSONContains asserts a JSON column (or array) contains the value.
func (b *Builder) WhereJSONContains(column any, value any) *Builder {
	return b.whereJSONContains(column, value, boolAnd, false)
}

// WhereJSONDoesntContain asserts a JSON column does not contain the value.
func (b *Builder) WhereJSONDoesntContain(column any, value any) *Builder {
	return b.whereJSONContains(column, value, boolAnd, true)
}

func (b *Builder) whereJSONContains(column any, value any, boolean string, not bool) *Builder {
	typ := WhereJSONContains
	if not {
		typ = WhereJSONDoesntContain
	}
	b.Wheres = append(b.Wheres, Where{Type: typ, Column: column, Value: value, Boolean: boolean})
	b.AddBinding(value, BindingWhere)
	return b
}

// WhereJSONLength compares the length of a JSON array column.
func (b *Builder) WhereJSONLength(column any, args ...any) *Builder {
	operator, value := prepareOperatorValue(args)
	b.Wheres = append(b.Wheres, Where{
		Type:     WhereJSONLength,
		Column:   column,
		Operator: operator,
		Value:    value,
		Boolean:  boolAnd,
	})
	b.AddBinding(value, BindingWhere)
	return b
}

// --- Full text ---

// WhereFullText adds a dialect-native full-text predicate over the given
// columns. Dialects without full-text support fail at compile time.
func (b *Builder) WhereFullText(columns []string, value string) *Builder {
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}
	b.Wheres = append(b.Wheres, Where{
		Type:    WhereFullText,
		Values:  cols,
		Value:   value,
		Boolean: boolAnd,
	})
	b.AddBinding(value, BindingWhere)
	return b
}
