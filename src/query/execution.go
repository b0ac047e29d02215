package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Get executes the select and returns all rows. Optional columns apply
// only when the builder has no projection of its own.
func (b *Builder) Get(ctx context.Context, columns ...any) ([]Row, error) {
	return b.onceWithColumns(columns, func() ([]Row, error) {
		return b.runSelect(ctx)
	})
}

// First returns the first matching row, or nil when there is none.
func (b *Builder) First(ctx context.Context, columns ...any) (Row, error) {
	rows, err := b.Take(1).Get(ctx, columns...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FirstOrFail returns the first matching row or ErrNoRows.
func (b *Builder) FirstOrFail(ctx context.Context, columns ...any) (Row, error) {
	row, err := b.First(ctx, columns...)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNoRows
	}
	return row, nil
}

// Find returns the row with the given id, or nil.
func (b *Builder) Find(ctx context.Context, id any, columns ...any) (Row, error) {
	return b.Where("id", "=", id).First(ctx, columns...)
}

// FindOrFail returns the row with the given id or ErrNoRows.
func (b *Builder) FindOrFail(ctx context.Context, id any, columns ...any) (Row, error) {
	return b.Where("id", "=", id).FirstOrFail(ctx, columns...)
}

// Value returns a single column of the first row, or nil when there is
// no matching row.
func (b *Builder) Value(ctx context.Context, column string) (any, error) {
	row, err := b.First(ctx, column)
	if err != nil || row == nil {
		return nil, err
	}
	return row[resultKey(column)], nil
}

// Pluck returns one column across all rows.
func (b *Builder) Pluck(ctx context.Context, column string) ([]any, error) {
	rows, err := b.Get(ctx, column)
	if err != nil {
		return nil, err
	}
	key := resultKey(column)
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row[key]
	}
	return out, nil
}

// Exists reports whether any row matches.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	if err := b.requireConn(); err != nil {
		return false, err
	}
	sql, err := b.grammar.CompileExists(b)
	if err != nil {
		return false, err
	}
	rows, err := b.conn.Select(ctx, sql, b.GetBindings())
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	return truthy(rows[0]["exists"]), nil
}

// DoesntExist reports whether no row matches.
func (b *Builder) DoesntExist(ctx context.Context) (bool, error) {
	exists, err := b.Exists(ctx)
	return !exists, err
}

// --- Aggregates ---

// Count returns the number of matching rows.
func (b *Builder) Count(ctx context.Context, columns ...any) (int64, error) {
	cols := columns
	if len(cols) == 0 {
		cols = []any{Raw("*")}
	}
	v, err := b.aggregate(ctx, "count", cols)
	if err != nil {
		return 0, err
	}
	f, _ := toFloat64(v)
	return int64(f), nil
}

// Min returns the minimum value of the column, or nil on no rows.
func (b *Builder) Min(ctx context.Context, column string) (any, error) {
	return b.aggregate(ctx, "min", []any{column})
}

// Max returns the maximum value of the column, or nil on no rows.
func (b *Builder) Max(ctx context.Context, column string) (any, error) {
	return b.aggregate(ctx, "max", []any{column})
}

// Sum returns the sum of the column, 0 on no rows.
func (b *Builder) Sum(ctx context.Context, column string) (float64, error) {
	v, err := b.aggregate(ctx, "sum", []any{column})
	if err != nil {
		return 0, err
	}
	f, _ := toFloat64(v)
	return f, nil
}

// Avg returns the average of the column, 0 on no rows.
func (b *Builder) Avg(ctx context.Context, column string) (float64, error) {
	v, err := b.aggregate(ctx, "avg", []any{column})
	if err != nil {
		return 0, err
	}
	f, _ := toFloat64(v)
	return f, nil
}

// aggregate clones the query, swaps the projection for a single synthetic
// aggregate column (dropping only the select binding bucket), executes,
// and extracts the first value of the first row.
func (b *Builder) aggregate(ctx context.Context, function string, columns []any) (any, error) {
	if err := b.requireConn(); err != nil {
		return nil, err
	}
	clone := b.CloneWithout("columns").CloneWithoutBindings(BindingSelect)
	clone.Aggregate = &AggregateExpr{Function: function, Columns: columns}
	rows, err := clone.runSelect(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0]["aggregate"], nil
}

// --- Writes ---

// Insert inserts one or more rows.
func (b *Builder) Insert(ctx context.Context, values ...map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if err := b.requireConn(); err != nil {
		return err
	}
	sql, args, err := b.grammar.CompileInsert(b, values)
	if err != nil {
		return err
	}
	_, err = b.conn.Exec(ctx, sql, args)
	return err
}

// InsertOrIgnore inserts rows, skipping those that would conflict.
// Returns the number of rows actually inserted.
func (b *Builder) InsertOrIgnore(ctx context.Context, values ...map[string]any) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	if err := b.requireConn(); err != nil {
		return 0, err
	}
	sql, args, err := b.grammar.CompileInsertOrIgnore(b, values)
	if err != nil {
		return 0, err
	}
	res, err := b.conn.Exec(ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// InsertGetID inserts one row and returns the new id. Dialects with
// RETURNING read it from the result rows; the rest use the driver's
// last-insert-id side channel. The sequence column defaults to "id".
func (b *Builder) InsertGetID(ctx context.Context, values map[string]any, sequence ...string) (int64, error) {
	if err := b.requireConn(); err != nil {
		return 0, err
	}
	seq := "id"
	if len(sequence) > 0 && sequence[0] != "" {
		seq = sequence[0]
	}
	sql, args, err := b.grammar.CompileInsertGetID(b, values, seq)
	if err != nil {
		return 0, err
	}
	if b.grammar.SupportsReturning() {
		rows, err := b.conn.Select(ctx, sql, args)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, fmt.Errorf("query: insert returned no %s row", seq)
		}
		f, ok := toFloat64(rows[0][seq])
		if !ok {
			return 0, fmt.Errorf("query: insert returned non-numeric %s: %v", seq, rows[0][seq])
		}
		return int64(f), nil
	}
	res, err := b.conn.Exec(ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// Upsert inserts rows, updating the named columns when a row conflicts
// on uniqueBy. With no update columns, every non-unique column of the
// first row is updated.
func (b *Builder) Upsert(ctx context.Context, values []map[string]any, uniqueBy []string, update []string) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	if err := b.requireConn(); err != nil {
		return 0, err
	}
	sql, args, err := b.grammar.CompileUpsert(b, values, uniqueBy, update)
	if err != nil {
		return 0, err
	}
	res, err := b.conn.Exec(ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Update updates the matching rows and returns the affected count.
func (b *Builder) Update(ctx context.Context, values map[string]any) (int64, error) {
	if err := b.requireConn(); err != nil {
		return 0, err
	}
	sql, args, err := b.grammar.CompileUpdate(b, values)
	if err != nil {
		return 0, err
	}
	res, err := b.conn.Exec(ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// UpdateOrInsert updates the row matching attributes with values, or
// inserts attributes+values when none matches. Reports whether an update
// took place.
func (b *Builder) UpdateOrInsert(ctx context.Context, attributes, values map[string]any) (bool, error) {
	probe := b.Clone()
	for _, k := range sortedKeysOf(attributes) {
		probe.Where(k, "=", attributes[k])
	}
	exists, err := probe.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !exists {
		merged := make(map[string]any, len(attributes)+len(values))
		for k, v := range attributes {
			merged[k] = v
		}
		for k, v := range values {
			merged[k] = v
		}
		return false, b.Insert(ctx, merged)
	}
	if len(values) == 0 {
		return true, nil
	}
	for _, k := range sortedKeysOf(attributes) {
		b.Where(k, "=", attributes[k])
	}
	_, err = b.Limit(1).Update(ctx, values)
	return true, err
}

// Increment adds amount to the column. Extra columns are updated in the
// same statement. Amount must be positive.
func (b *Builder) Increment(ctx context.Context, column string, amount any, extra ...map[string]any) (int64, error) {
	return b.IncrementEach(ctx, map[string]any{column: amount}, extra...)
}

// Decrement subtracts amount from the column. Amount must be positive.
func (b *Builder) Decrement(ctx context.Context, column string, amount any, extra ...map[string]any) (int64, error) {
	return b.DecrementEach(ctx, map[string]any{column: amount}, extra...)
}

// IncrementEach adds each column's amount in one statement.
func (b *Builder) IncrementEach(ctx context.Context, amounts map[string]any, extra ...map[string]any) (int64, error) {
	return b.stepEach(ctx, amounts, "+", extra)
}

// DecrementEach subtracts each column's amount in one statement.
func (b *Builder) DecrementEach(ctx context.Context, amounts map[string]any, extra ...map[string]any) (int64, error) {
	return b.stepEach(ctx, amounts, "-", extra)
}

func (b *Builder) stepEach(ctx context.Context, amounts map[string]any, op string, extra []map[string]any) (int64, error) {
	values := map[string]any{}
	for _, column := range sortedKeysOf(amounts) {
		f, ok := toFloat64(amounts[column])
		if !ok || f <= 0 {
			return 0, fmt.Errorf("%w: %s = %v", ErrNonPositiveAmount, column, amounts[column])
		}
		values[column] = Raw(b.grammar.Wrap(column) + " " + op + " " + formatFloat(f))
	}
	for _, m := range extra {
		for k, v := range m {
			values[k] = v
		}
	}
	return b.Update(ctx, values)
}

// Delete deletes the matching rows; an optional id constrains to one row.
func (b *Builder) Delete(ctx context.Context, id ...any) (int64, error) {
	if err := b.requireConn(); err != nil {
		return 0, err
	}
	if len(id) > 0 {
		b.Where("id", "=", id[0])
	}
	sql, args, err := b.grammar.CompileDelete(b)
	if err != nil {
		return 0, err
	}
	res, err := b.conn.Exec(ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Truncate empties the table, running every statement the dialect needs.
func (b *Builder) Truncate(ctx context.Context) error {
	if err := b.requireConn(); err != nil {
		return err
	}
	for _, st := range b.grammar.CompileTruncate(b) {
		if _, err := b.conn.Exec(ctx, st.SQL, st.Bindings); err != nil {
			return err
		}
	}
	return nil
}

// Explain runs the dialect's EXPLAIN over the compiled select.
func (b *Builder) Explain(ctx context.Context) ([]Row, error) {
	if err := b.requireConn(); err != nil {
		return nil, err
	}
	sql, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	return b.conn.Select(ctx, "explain "+sql, b.GetBindings())
}

// --- Internals ---

func (b *Builder) requireConn() error {
	if b.conn == nil {
		return ErrNoConnection
	}
	return nil
}

func (b *Builder) runSelect(ctx context.Context) ([]Row, error) {
	if err := b.requireConn(); err != nil {
		return nil, err
	}
	sql, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	return b.conn.Select(ctx, sql, b.GetBindings())
}

// onceWithColumns installs the given projection for the duration of one
// execution when the builder has none, restoring it afterwards.
func (b *Builder) onceWithColumns(columns []any, fn func() ([]Row, error)) ([]Row, error) {
	original := b.Columns
	if len(original) == 0 && len(columns) > 0 {
		b.Columns = columns
	}
	rows, err := fn()
	b.Columns = original
	return rows, err
}

// resultKey resolves the map key a selected column lands under: the
// alias when one is present, otherwise the last dotted segment.
func resultKey(column string) string {
	lower := strings.ToLower(column)
	if i := strings.LastIndex(lower, " as "); i >= 0 {
		return strings.Trim(column[i+4:], "`\"' ")
	}
	if i := strings.LastIndex(column, "."); i >= 0 {
		return column[i+1:]
	}
	return column
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		f, ok := toFloat64(v)
		return ok && f != 0
	}
}

// toFloat64 coerces the numeric shapes drivers hand back.
func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedKeysOf(m map[string]any) []string {
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

// interpolate substitutes bindings into placeholders for ToRawSQL. Both
// "?" and "$n" tokens are recognized; quoted regions are left alone.
func interpolate(sql string, bindings []any) (string, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; {
		case c == '\'':
			j := i + 1
			for j < len(sql) && sql[j] != '\'' {
				j++
			}
			if j < len(sql) {
				j++
			}
			sb.WriteString(sql[i:j])
			i = j - 1
		case c == '?':
			if next >= len(bindings) {
				return "", fmt.Errorf("query: placeholder %d has no binding", next+1)
			}
			sb.WriteString(literal(bindings[next]))
			next++
		case c == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(sql[i+1 : j])
			if n < 1 || n > len(bindings) {
				return "", fmt.Errorf("query: placeholder $%d has no binding", n)
			}
			sb.WriteString(literal(bindings[n-1]))
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// literal renders a binding as a SQL literal. Strings get single quotes
// with embedded quotes and backslashes escaped.
func literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return "'" + escapeStringValue(t) + "'"
	case []byte:
		return "'" + escapeStringValue(string(t)) + "'"
	case time.Time:
		return "'" + t.Format("2006-01-02 15:04:05") + "'"
	case Expr:
		return t.Value()
	default:
		if f, ok := toFloat64(v); ok {
			return formatFloat(f)
		}
		return "'" + escapeStringValue(fmt.Sprint(v)) + "'"
	}
}

func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}
