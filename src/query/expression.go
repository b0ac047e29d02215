package query

// Expr is a pre-formatted SQL fragment. It is spliced into compiled SQL
// verbatim: never identifier-quoted and never parameter-bound.
type Expr struct {
	value string
}

// Raw wraps a pre-formatted SQL fragment as an expression.
func Raw(value string) Expr {
	return Expr{value: value}
}

// Value returns the raw fragment.
func (e Expr) Value() string { return e.value }

func (e Expr) String() string { return e.value }

// SubSelect is a subquery used as a derived column or table source.
// The alias is required when it appears in a FROM clause.
type SubSelect struct {
	Query *Builder
	Alias string
}
