package query

// Having is one HAVING entry. It supports a restricted subset of the
// predicate kinds: Basic, Raw, Between/NotBetween and Null/NotNull.
// A Basic column naming a raw-select alias is resolved back to the
// original expression at compile time.
type Having struct {
	Type     WhereType
	Column   any // string or Expr
	Operator string
	Value    any
	Values   []any
	SQL      string
	Boolean  string
}

// Having adds a basic HAVING predicate; two-argument calls infer "=".
func (b *Builder) Having(column any, args ...any) *Builder {
	return b.having(column, boolAnd, args)
}

// OrHaving adds a basic HAVING predicate joined with OR.
func (b *Builder) OrHaving(column any, args ...any) *Builder {
	return b.having(column, boolOr, args)
}

func (b *Builder) having(column any, boolean string, args []any) *Builder {
	operator, value := prepareOperatorValue(args)
	b.Havings = append(b.Havings, Having{
		Type:     WhereBasic,
		Column:   column,
		Operator: operator,
		Value:    value,
		Boolean:  boolean,
	})
	b.AddBinding(value, BindingHaving)
	return b
}

// HavingRaw splices a raw HAVING fragment with optional bindings.
func (b *Builder) HavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(sql, bindings, boolAnd)
}

// OrHavingRaw splices a raw HAVING fragment joined with OR.
func (b *Builder) OrHavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(sql, bindings, boolOr)
}

func (b *Builder) havingRaw(sql string, bindings []any, boolean string) *Builder {
	b.Havings = append(b.Havings, Having{Type: WhereRaw, SQL: sql, Boolean: boolean})
	if len(bindings) > 0 {
		b.AddBinding(bindings, BindingHaving)
	}
	return b
}

// HavingBetween adds "column BETWEEN low AND high" to the HAVING list.
func (b *Builder) HavingBetween(column any, low, high any) *Builder {
	return b.havingBetween(column, low, high, boolAnd, false)
}

// HavingNotBetween adds "column NOT BETWEEN low AND high".
func (b *Builder) HavingNotBetween(column any, low, high any) *Builder {
	return b.havingBetween(column, low, high, boolAnd, true)
}

func (b *Builder) havingBetween(column any, low, high any, boolean string, not bool) *Builder {
	typ := WhereBetween
	if not {
		typ = WhereNotBetween
	}
	b.Havings = append(b.Havings, Having{Type: typ, Column: column, Values: []any{low, high}, Boolean: boolean})
	b.AddBinding([]any{low, high}, BindingHaving)
	return b
}

// HavingNull adds "column IS NULL" to the HAVING list.
func (b *Builder) HavingNull(column any) *Builder {
	b.Havings = append(b.Havings, Having{Type: WhereNull, Column: column, Boolean: boolAnd})
	return b
}

// HavingNotNull adds "column IS NOT NULL" to the HAVING list.
func (b *Builder) HavingNotNull(column any) *Builder {
	b.Havings = append(b.Havings, Having{Type: WhereNotNull, Column: column, Boolean: boolAnd})
	return b
}
