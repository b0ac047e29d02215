package compile

import (
	"errors"
	"strconv"
	"strings"

	"github.com/quillsql/quill/src/query"
)

// Postgres targets PostgreSQL: numbered $n placeholders, double-quoted
// identifiers, native RETURNING.
var Postgres Dialect = postgresDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(segment string) string {
	return `"` + strings.ReplaceAll(segment, `"`, `""`) + `"`
}

func (postgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (postgresDialect) SupportsReturning() bool { return true }

// Columns of non-text types cannot feed like directly, so both sides
// are cast to text.
func (postgresDialect) CompileLike(column, placeholder string, not bool) string {
	op := "like"
	if not {
		op = "not like"
	}
	return column + "::text " + op + " " + placeholder + "::text"
}

func (postgresDialect) CompileDatePart(part, column, operator, placeholder string) string {
	switch part {
	case "date":
		return column + "::date " + operator + " " + placeholder
	case "time":
		return column + "::time " + operator + " " + placeholder
	default:
		return "extract(" + part + " from " + column + ") " + operator + " " + placeholder
	}
}

func (postgresDialect) CompileJSONContains(column, placeholder string) (string, error) {
	return "(" + column + ")::jsonb @> " + placeholder, nil
}

func (postgresDialect) CompileJSONLength(column, operator, placeholder string) (string, error) {
	return "json_array_length((" + column + ")::json) " + operator + " " + placeholder, nil
}

func (postgresDialect) CompileFullText(columns []string, placeholder string) (string, error) {
	if len(columns) == 0 {
		return "", errors.New("compile: full text requires at least one column")
	}
	vector := "to_tsvector('english', " + strings.Join(columns, " || ' ' || ") + ")"
	return vector + " @@ plainto_tsquery('english', " + placeholder + ")", nil
}

func (postgresDialect) CompileRandom(string) string { return "random()" }

func (postgresDialect) CompileLock(mode query.LockMode) string {
	switch mode {
	case query.LockForUpdate:
		return "for update"
	case query.LockShared:
		return "for share"
	default:
		return ""
	}
}

func (postgresDialect) WrapUnion(sql string) string { return "(" + sql + ")" }

func (postgresDialect) InsertIgnoreClauses() (string, string) {
	return "insert into", " on conflict do nothing"
}

func (postgresDialect) UpsertSuffix(wrap func(string) string, uniqueBy, update []string) string {
	keys := make([]string, len(uniqueBy))
	for i, col := range uniqueBy {
		keys[i] = wrap(col)
	}
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = wrap(col) + " = excluded." + wrap(col)
	}
	return " on conflict (" + strings.Join(keys, ", ") + ") do update set " + strings.Join(sets, ", ")
}

func (postgresDialect) CompileTruncate(wrappedTable, _ string) []query.Statement {
	return []query.Statement{
		{SQL: "truncate " + wrappedTable + " restart identity cascade"},
	}
}
