package query

import "fmt"

// Join kinds.
const (
	JoinInner = "inner"
	JoinLeft  = "left"
	JoinRight = "right"
	JoinCross = "cross"
)

// JoinClause is a join specification. It embeds a fresh Builder whose
// where list serves as the ON-condition tree, so the full predicate
// vocabulary is available inside join closures.
type JoinClause struct {
	*Builder
	Kind  string
	Table any // string or Expr
}

func (b *Builder) newJoinClause(kind string, table any) *JoinClause {
	return &JoinClause{Builder: b.NewQuery(), Kind: kind, Table: table}
}

// On adds an ON column comparison: (first, second) infers "=", or
// (first, operator, second).
func (j *JoinClause) On(first string, args ...string) *JoinClause {
	j.WhereColumn(first, args...)
	return j
}

// OrOn adds an ON column comparison joined with OR.
func (j *JoinClause) OrOn(first string, args ...string) *JoinClause {
	j.OrWhereColumn(first, args...)
	return j
}

// OnNested groups ON conditions built by the closure in parentheses.
func (j *JoinClause) OnNested(fn func(*JoinClause)) *JoinClause {
	return j.onNested(fn, boolAnd)
}

// OrOnNested groups ON conditions joined with OR.
func (j *JoinClause) OrOnNested(fn func(*JoinClause)) *JoinClause {
	return j.onNested(fn, boolOr)
}

func (j *JoinClause) onNested(fn func(*JoinClause), boolean string) *JoinClause {
	child := &JoinClause{Builder: j.NewQuery(), Kind: j.Kind, Table: j.Table}
	fn(child)
	if len(child.Wheres) == 0 {
		return j
	}
	j.Wheres = append(j.Wheres, Where{Type: WhereNested, Query: child.Builder, Boolean: boolean})
	j.AddBinding(child.BindingsFor(BindingWhere), BindingWhere)
	return j
}

// Join adds an inner join. Forms:
//
//	Join(table, first, operator, second)  single ON column comparison
//	Join(table, func(*JoinClause))        closure over the join clause
func (b *Builder) Join(table any, args ...any) *Builder {
	return b.join(JoinInner, table, args)
}

// LeftJoin adds a left join; accepts the same forms as Join.
func (b *Builder) LeftJoin(table any, args ...any) *Builder {
	return b.join(JoinLeft, table, args)
}

// RightJoin adds a right join; accepts the same forms as Join.
func (b *Builder) RightJoin(table any, args ...any) *Builder {
	return b.join(JoinRight, table, args)
}

// CrossJoin adds a cross join, which carries no ON tree.
func (b *Builder) CrossJoin(table any) *Builder {
	b.Joins = append(b.Joins, b.newJoinClause(JoinCross, table))
	return b
}

// JoinWhere adds an inner join whose single condition binds a parameter
// value instead of comparing two columns.
func (b *Builder) JoinWhere(table any, column string, operator string, value any) *Builder {
	j := b.newJoinClause(JoinInner, table)
	j.Where(column, operator, value)
	return b.addJoin(j)
}

func (b *Builder) join(kind string, table any, args []any) *Builder {
	j := b.newJoinClause(kind, table)
	switch len(args) {
	case 1:
		fn, ok := args[0].(func(*JoinClause))
		if !ok {
			panic(fmt.Sprintf("query: join closure must be func(*JoinClause), got %T", args[0]))
		}
		fn(j)
	case 3:
		first, ok1 := args[0].(string)
		operator, ok2 := args[1].(string)
		second, ok3 := args[2].(string)
		if !ok1 || !ok2 || !ok3 {
			panic("query: join expects (table, first, operator, second) as strings")
		}
		j.On(first, operator, second)
	default:
		panic("query: join expects a closure or (first, operator, second)")
	}
	return b.addJoin(j)
}

func (b *Builder) addJoin(j *JoinClause) *Builder {
	b.Joins = append(b.Joins, j)
	b.AddBinding(j.GetBindings(), BindingJoin)
	return b
}
