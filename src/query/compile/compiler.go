package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quillsql/quill/src/query"
)

// Compiler compiles builder state to SQL for one dialect. It holds no
// mutable state, so a single instance may compile independent queries
// concurrently.
type Compiler struct {
	dialect Dialect
}

// New creates a compiler for the given dialect.
func New(dialect Dialect) *Compiler {
	return &Compiler{dialect: dialect}
}

var _ query.Grammar = (*Compiler)(nil)

// Dialect returns the dialect name.
func (c *Compiler) Dialect() string { return c.dialect.Name() }

// SupportsReturning reports whether inserted ids come back as rows.
func (c *Compiler) SupportsReturning() bool { return c.dialect.SupportsReturning() }

// =============================================================================
// SELECT
// =============================================================================

// CompileSelect compiles the full select statement, unions included.
func (c *Compiler) CompileSelect(b *query.Builder) (string, error) {
	return c.compileSelect(b, &state{})
}

// CompileExists wraps the select in an existence probe.
func (c *Compiler) CompileExists(b *query.Builder) (string, error) {
	sql, err := c.compileSelect(b, &state{})
	if err != nil {
		return "", err
	}
	return "select exists(" + sql + ") as " + c.dialect.QuoteIdentifier("exists"), nil
}

func (c *Compiler) compileSelect(b *query.Builder, st *state) (string, error) {
	if len(b.Unions) > 0 {
		if b.Aggregate != nil {
			return c.compileUnionAggregate(b, st)
		}
		return c.compileUnionSelect(b, st)
	}
	var parts []string
	add := func(fragment string, err error) error {
		if err != nil {
			return err
		}
		if fragment != "" {
			parts = append(parts, fragment)
		}
		return nil
	}
	if err := add(c.compileColumns(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileFrom(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileJoins(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileWhereClause(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileGroups(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileHavings(b, st)); err != nil {
		return "", err
	}
	if err := add(c.compileOrders(b.Orders, st)); err != nil {
		return "", err
	}
	if b.LimitN >= 0 {
		parts = append(parts, "limit "+strconv.Itoa(b.LimitN))
	}
	if b.OffsetN >= 0 {
		parts = append(parts, "offset "+strconv.Itoa(b.OffsetN))
	}
	if lock := c.dialect.CompileLock(b.LockMode); lock != "" {
		parts = append(parts, lock)
	}
	return strings.Join(parts, " "), nil
}

// compileUnionSelect compiles the base query with its unions temporarily
// cleared and restored afterwards, then each unioned query, then the
// outer ordering and bounds.
func (c *Compiler) compileUnionSelect(b *query.Builder, st *state) (string, error) {
	unions := b.Unions
	b.Unions = nil
	base, err := c.compileSelect(b, st)
	b.Unions = unions
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(c.dialect.WrapUnion(base))
	for _, u := range unions {
		sub, err := c.compileSelect(u.Query, st)
		if err != nil {
			return "", err
		}
		if u.All {
			sb.WriteString(" union all ")
		} else {
			sb.WriteString(" union ")
		}
		sb.WriteString(c.dialect.WrapUnion(sub))
	}
	orders, err := c.compileOrders(b.UnionOrders, st)
	if err != nil {
		return "", err
	}
	if orders != "" {
		sb.WriteString(" " + orders)
	}
	if b.UnionLimitN >= 0 {
		sb.WriteString(" limit " + strconv.Itoa(b.UnionLimitN))
	}
	if b.UnionOffsetN >= 0 {
		sb.WriteString(" offset " + strconv.Itoa(b.UnionOffsetN))
	}
	return sb.String(), nil
}

// compileUnionAggregate wraps the full union in a derived table so the
// aggregate spans every member rather than just the base query.
func (c *Compiler) compileUnionAggregate(b *query.Builder, st *state) (string, error) {
	agg := b.Aggregate
	b.Aggregate = nil
	inner, err := c.compileUnionSelect(b, st)
	b.Aggregate = agg
	if err != nil {
		return "", err
	}
	col := c.columnizeAgg(agg.Columns)
	if b.IsDistinct && col != "*" {
		col = "distinct " + col
	}
	return "select " + agg.Function + "(" + col + ") as aggregate from (" + inner + ") as " +
		c.dialect.QuoteIdentifier("temp_table"), nil
}

func (c *Compiler) compileColumns(b *query.Builder, st *state) (string, error) {
	if b.Aggregate != nil {
		inner := c.columnizeAgg(b.Aggregate.Columns)
		if b.IsDistinct && inner != "*" {
			inner = "distinct " + inner
		}
		return "select " + b.Aggregate.Function + "(" + inner + ") as aggregate", nil
	}
	sel := "select "
	if b.IsDistinct {
		sel = "select distinct "
	}
	if len(b.Columns) == 0 {
		return sel + "*", nil
	}
	cols := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		if e, ok := col.(query.Expr); ok {
			cols[i] = c.substitutePlaceholders(e.Value(), st)
			continue
		}
		s, err := c.wrapValue(col, st)
		if err != nil {
			return "", err
		}
		cols[i] = s
	}
	return sel + strings.Join(cols, ", "), nil
}

func (c *Compiler) compileFrom(b *query.Builder, st *state) (string, error) {
	if b.FromTable == nil {
		return "", nil
	}
	table, err := c.wrapValue(b.FromTable, st)
	if err != nil {
		return "", err
	}
	return "from " + table, nil
}

func (c *Compiler) compileJoins(b *query.Builder, st *state) (string, error) {
	if len(b.Joins) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(b.Joins))
	for _, j := range b.Joins {
		table, err := c.wrapValue(j.Table, st)
		if err != nil {
			return "", err
		}
		if j.Kind == query.JoinCross {
			parts = append(parts, "cross join "+table)
			continue
		}
		frag := j.Kind + " join " + table
		if len(j.Wheres) > 0 {
			on, err := c.compileWheres(j.Builder, st)
			if err != nil {
				return "", err
			}
			frag += " on " + on
		}
		parts = append(parts, frag)
	}
	return strings.Join(parts, " "), nil
}

func (c *Compiler) compileWhereClause(b *query.Builder, st *state) (string, error) {
	if len(b.Wheres) == 0 {
		return "", nil
	}
	wheres, err := c.compileWheres(b, st)
	if err != nil {
		return "", err
	}
	return "where " + wheres, nil
}

// compileWheres renders the predicate list without a leading keyword.
// The boolean connector of the first node is always elided.
func (c *Compiler) compileWheres(b *query.Builder, st *state) (string, error) {
	parts := make([]string, 0, len(b.Wheres))
	for i, w := range b.Wheres {
		frag, err := c.compileWhere(w, st)
		if err != nil {
			return "", err
		}
		if i == 0 {
			parts = append(parts, frag)
			continue
		}
		boolean := w.Boolean
		if boolean == "" {
			boolean = "and"
		}
		parts = append(parts, boolean+" "+frag)
	}
	return strings.Join(parts, " "), nil
}

func (c *Compiler) compileWhere(w query.Where, st *state) (string, error) {
	switch w.Type {
	case query.WhereBasic:
		return c.wrap(w.Column) + " " + w.Operator + " " + c.parameter(w.Value, st), nil

	case query.WhereNot:
		inner, err := c.compileWheres(w.Query, st)
		if err != nil {
			return "", err
		}
		return "not (" + inner + ")", nil

	case query.WhereNested:
		inner, err := c.compileWheres(w.Query, st)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil

	case query.WhereIn, query.WhereNotIn:
		if len(w.Values) == 0 {
			// IN over an empty list matches nothing; NOT IN matches all.
			if w.Type == query.WhereNotIn {
				return "1 = 1", nil
			}
			return "0 = 1", nil
		}
		op := "in"
		if w.Type == query.WhereNotIn {
			op = "not in"
		}
		return c.wrap(w.Column) + " " + op + " (" + c.parameterize(w.Values, st) + ")", nil

	case query.WhereInSub, query.WhereNotInSub:
		sub, err := c.compileSelect(w.Query, st)
		if err != nil {
			return "", err
		}
		op := "in"
		if w.Type == query.WhereNotInSub {
			op = "not in"
		}
		return c.wrap(w.Column) + " " + op + " (" + sub + ")", nil

	case query.WhereNull:
		return c.wrap(w.Column) + " is null", nil

	case query.WhereNotNull:
		return c.wrap(w.Column) + " is not null", nil

	case query.WhereBetween, query.WhereNotBetween:
		if len(w.Values) != 2 {
			return "", fmt.Errorf("compile: between expects 2 values, got %d", len(w.Values))
		}
		op := "between"
		if w.Type == query.WhereNotBetween {
			op = "not between"
		}
		return c.wrap(w.Column) + " " + op + " " +
			c.parameter(w.Values[0], st) + " and " + c.parameter(w.Values[1], st), nil

	case query.WhereExists, query.WhereNotExists:
		sub, err := c.compileSelect(w.Query, st)
		if err != nil {
			return "", err
		}
		if w.Type == query.WhereNotExists {
			return "not exists (" + sub + ")", nil
		}
		return "exists (" + sub + ")", nil

	case query.WhereSub:
		sub, err := c.compileSelect(w.Query, st)
		if err != nil {
			return "", err
		}
		return c.wrap(w.Column) + " " + w.Operator + " (" + sub + ")", nil

	case query.WhereColumn:
		return c.wrap(w.Column) + " " + w.Operator + " " + c.wrap(w.Second), nil

	case query.WhereRaw:
		return c.substitutePlaceholders(w.SQL, st), nil

	case query.WhereDate, query.WhereTime, query.WhereDay, query.WhereMonth, query.WhereYear:
		part := map[query.WhereType]string{
			query.WhereDate:  "date",
			query.WhereTime:  "time",
			query.WhereDay:   "day",
			query.WhereMonth: "month",
			query.WhereYear:  "year",
		}[w.Type]
		return c.dialect.CompileDatePart(part, c.wrap(w.Column), w.Operator, c.parameter(w.Value, st)), nil

	case query.WhereLike, query.WhereNotLike:
		return c.dialect.CompileLike(c.wrap(w.Column), c.parameter(w.Value, st), w.Type == query.WhereNotLike), nil

	case query.WhereJSONContains:
		return c.dialect.CompileJSONContains(c.wrap(w.Column), c.parameter(w.Value, st))

	case query.WhereJSONDoesntContain:
		frag, err := c.dialect.CompileJSONContains(c.wrap(w.Column), c.parameter(w.Value, st))
		if err != nil {
			return "", err
		}
		return "not " + frag, nil

	case query.WhereJSONLength:
		return c.dialect.CompileJSONLength(c.wrap(w.Column), w.Operator, c.parameter(w.Value, st))

	case query.WhereFullText:
		cols := make([]string, len(w.Values))
		for i, col := range w.Values {
			cols[i] = c.wrap(col)
		}
		return c.dialect.CompileFullText(cols, c.parameter(w.Value, st))

	default:
		return "", fmt.Errorf("compile: unhandled where type %d", w.Type)
	}
}

func (c *Compiler) compileGroups(b *query.Builder, st *state) (string, error) {
	if len(b.Groups) == 0 {
		return "", nil
	}
	parts := make([]string, len(b.Groups))
	for i, g := range b.Groups {
		if e, ok := g.(query.Expr); ok {
			parts[i] = c.substitutePlaceholders(e.Value(), st)
			continue
		}
		parts[i] = c.wrap(g)
	}
	return "group by " + strings.Join(parts, ", "), nil
}

func (c *Compiler) compileHavings(b *query.Builder, st *state) (string, error) {
	if len(b.Havings) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(b.Havings))
	for i, h := range b.Havings {
		frag, err := c.compileHaving(b, h, st)
		if err != nil {
			return "", err
		}
		if i == 0 {
			parts = append(parts, frag)
			continue
		}
		boolean := h.Boolean
		if boolean == "" {
			boolean = "and"
		}
		parts = append(parts, boolean+" "+frag)
	}
	return "having " + strings.Join(parts, " "), nil
}

func (c *Compiler) compileHaving(b *query.Builder, h query.Having, st *state) (string, error) {
	column := h.Column
	// A column naming a raw-select alias resolves back to the aliased
	// expression: the alias is not addressable in HAVING on all targets.
	if s, ok := column.(string); ok {
		if expr, found := b.ResolveColumnAlias(s); found {
			column = query.Raw(expr)
		}
	}
	switch h.Type {
	case query.WhereBasic:
		return c.wrap(column) + " " + h.Operator + " " + c.parameter(h.Value, st), nil
	case query.WhereRaw:
		return c.substitutePlaceholders(h.SQL, st), nil
	case query.WhereBetween, query.WhereNotBetween:
		op := "between"
		if h.Type == query.WhereNotBetween {
			op = "not between"
		}
		return c.wrap(column) + " " + op + " " +
			c.parameter(h.Values[0], st) + " and " + c.parameter(h.Values[1], st), nil
	case query.WhereNull:
		return c.wrap(column) + " is null", nil
	case query.WhereNotNull:
		return c.wrap(column) + " is not null", nil
	default:
		return "", fmt.Errorf("compile: unhandled having type %d", h.Type)
	}
}

func (c *Compiler) compileOrders(orders []query.Order, st *state) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		switch {
		case o.SQL != "":
			parts[i] = c.substitutePlaceholders(o.SQL, st)
		case o.Random:
			parts[i] = c.dialect.CompileRandom(o.Seed)
		default:
			parts[i] = c.wrap(o.Column) + " " + o.Direction
		}
	}
	return "order by " + strings.Join(parts, ", "), nil
}

// =============================================================================
// INSERT / UPDATE / DELETE / TRUNCATE
// =============================================================================

// CompileInsert compiles a multi-row insert. Column order is the sorted
// key order of the first row; missing keys in later rows bind nil.
func (c *Compiler) CompileInsert(b *query.Builder, values []map[string]any) (string, []any, error) {
	st := &state{}
	return c.compileInsert(b, values, st, "", "")
}

// CompileInsertOrIgnore compiles an insert that skips conflicting rows.
func (c *Compiler) CompileInsertOrIgnore(b *query.Builder, values []map[string]any) (string, []any, error) {
	prefix, suffix := c.dialect.InsertIgnoreClauses()
	st := &state{}
	return c.compileInsert(b, values, st, prefix, suffix)
}

// CompileInsertGetID compiles a single-row insert arranged for id
// retrieval; RETURNING dialects get the sequence column appended.
func (c *Compiler) CompileInsertGetID(b *query.Builder, values map[string]any, sequence string) (string, []any, error) {
	st := &state{}
	sql, bindings, err := c.compileInsert(b, []map[string]any{values}, st, "", "")
	if err != nil {
		return "", nil, err
	}
	if c.dialect.SupportsReturning() {
		sql += " returning " + c.wrap(sequence)
	}
	return sql, bindings, nil
}

// CompileUpsert compiles an insert that updates on conflict. With no
// update columns, every non-unique column of the first row is updated.
func (c *Compiler) CompileUpsert(b *query.Builder, values []map[string]any, uniqueBy, update []string) (string, []any, error) {
	st := &state{}
	sql, bindings, err := c.compileInsert(b, values, st, "", "")
	if err != nil {
		return "", nil, err
	}
	if len(update) == 0 {
		unique := make(map[string]bool, len(uniqueBy))
		for _, u := range uniqueBy {
			unique[u] = true
		}
		for _, col := range sortedKeys(values[0]) {
			if !unique[col] {
				update = append(update, col)
			}
		}
	}
	return sql + c.dialect.UpsertSuffix(c.wrapString, uniqueBy, update), bindings, nil
}

func (c *Compiler) compileInsert(b *query.Builder, values []map[string]any, st *state, prefix, suffix string) (string, []any, error) {
	table, err := c.wrapValue(b.FromTable, st)
	if err != nil {
		return "", nil, err
	}
	if prefix == "" {
		prefix = "insert into"
	}
	columns := sortedKeys(values[0])
	wrapped := make([]string, len(columns))
	for i, col := range columns {
		wrapped[i] = c.wrapString(col)
	}
	var bindings []any
	rows := make([]string, len(values))
	for r, row := range values {
		cells := make([]string, len(columns))
		for i, col := range columns {
			v := row[col]
			if e, ok := v.(query.Expr); ok {
				cells[i] = e.Value()
				continue
			}
			cells[i] = c.dialect.Placeholder(st.next())
			bindings = append(bindings, v)
		}
		rows[r] = "(" + strings.Join(cells, ", ") + ")"
	}
	sql := prefix + " " + table + " (" + strings.Join(wrapped, ", ") + ") values " + strings.Join(rows, ", ") + suffix
	return sql, bindings, nil
}

// CompileUpdate compiles an update constrained by the builder's wheres.
// Bindings are the set values in column order followed by the where
// bucket.
func (c *Compiler) CompileUpdate(b *query.Builder, values map[string]any) (string, []any, error) {
	st := &state{}
	table, err := c.wrapValue(b.FromTable, st)
	if err != nil {
		return "", nil, err
	}
	var bindings []any
	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	for i, col := range cols {
		v := values[col]
		if e, ok := v.(query.Expr); ok {
			sets[i] = c.wrapString(col) + " = " + e.Value()
			continue
		}
		sets[i] = c.wrapString(col) + " = " + c.dialect.Placeholder(st.next())
		bindings = append(bindings, v)
	}
	sql := "update " + table + " set " + strings.Join(sets, ", ")
	whereFrag, err := c.compileWhereClause(b, st)
	if err != nil {
		return "", nil, err
	}
	if whereFrag != "" {
		sql += " " + whereFrag
	}
	if b.LimitN >= 0 && c.dialect.Name() == "mysql" {
		sql += " limit " + strconv.Itoa(b.LimitN)
	}
	return sql, append(bindings, b.BindingsFor(query.BindingWhere)...), nil
}

// CompileDelete compiles a delete constrained by the builder's wheres.
func (c *Compiler) CompileDelete(b *query.Builder) (string, []any, error) {
	st := &state{}
	table, err := c.wrapValue(b.FromTable, st)
	if err != nil {
		return "", nil, err
	}
	sql := "delete from " + table
	whereFrag, err := c.compileWhereClause(b, st)
	if err != nil {
		return "", nil, err
	}
	if whereFrag != "" {
		sql += " " + whereFrag
	}
	return sql, b.BindingsFor(query.BindingWhere), nil
}

// CompileTruncate returns the dialect's table-emptying statements.
func (c *Compiler) CompileTruncate(b *query.Builder) []query.Statement {
	raw, _ := b.FromTable.(string)
	wrapped := c.Wrap(b.FromTable)
	return c.dialect.CompileTruncate(wrapped, raw)
}

// =============================================================================
// Wrapping and parameters
// =============================================================================

// Wrap quotes an identifier, handling dotted segments and "expr as
// alias" forms. Raw expressions render verbatim.
func (c *Compiler) Wrap(value any) string {
	switch v := value.(type) {
	case query.Expr:
		return v.Value()
	case string:
		return c.wrapString(v)
	default:
		return fmt.Sprint(value)
	}
}

func (c *Compiler) wrap(value any) string { return c.Wrap(value) }

// wrapValue additionally renders *SubSelect entries, which need the
// compile state for placeholder numbering.
func (c *Compiler) wrapValue(value any, st *state) (string, error) {
	switch v := value.(type) {
	case *query.SubSelect:
		sql, err := c.compileSelect(v.Query, st)
		if err != nil {
			return "", err
		}
		return "(" + sql + ") as " + c.dialect.QuoteIdentifier(v.Alias), nil
	case query.Expr:
		return c.substitutePlaceholders(v.Value(), st), nil
	}
	return c.Wrap(value), nil
}

func (c *Compiler) wrapString(value string) string {
	lower := strings.ToLower(value)
	if i := strings.Index(lower, " as "); i >= 0 {
		return c.wrapSegments(value[:i]) + " as " + c.dialect.QuoteIdentifier(strings.TrimSpace(value[i+4:]))
	}
	return c.wrapSegments(value)
}

func (c *Compiler) wrapSegments(value string) string {
	segments := strings.Split(value, ".")
	for i, seg := range segments {
		if seg == "*" {
			continue
		}
		segments[i] = c.dialect.QuoteIdentifier(seg)
	}
	return strings.Join(segments, ".")
}

// parameter renders one bound value's placeholder; raw expressions
// render verbatim and consume no ordinal.
func (c *Compiler) parameter(value any, st *state) string {
	if e, ok := value.(query.Expr); ok {
		return e.Value()
	}
	return c.dialect.Placeholder(st.next())
}

func (c *Compiler) parameterize(values []any, st *state) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = c.parameter(v, st)
	}
	return strings.Join(parts, ", ")
}

// substitutePlaceholders rewrites each "?" in a raw fragment, left to
// right, with the dialect's placeholder syntax. Quoted regions are left
// untouched.
func (c *Compiler) substitutePlaceholders(sql string, st *state) string {
	if !strings.Contains(sql, "?") {
		return sql
	}
	var sb strings.Builder
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			j := i + 1
			for j < len(sql) && sql[j] != '\'' {
				j++
			}
			if j < len(sql) {
				j++
			}
			sb.WriteString(sql[i:j])
			i = j - 1
		case '?':
			sb.WriteString(c.dialect.Placeholder(st.next()))
		default:
			sb.WriteByte(sql[i])
		}
	}
	return sb.String()
}

func (c *Compiler) columnizeAgg(columns []any) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = c.wrap(col)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
