package compile

import (
	"errors"
	"strings"

	"github.com/quillsql/quill/src/query"
)

// SQLite targets SQLite: positional ? placeholders, double-quoted
// identifiers, RETURNING available since 3.35.
var SQLite Dialect = sqliteDialect{}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdentifier(segment string) string {
	return `"` + strings.ReplaceAll(segment, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) SupportsReturning() bool { return true }

func (sqliteDialect) CompileLike(column, placeholder string, not bool) string {
	op := "like"
	if not {
		op = "not like"
	}
	return column + " " + op + " " + placeholder
}

// Date parts come out of strftime as text, so the bound side is cast to
// text too for a stable comparison.
func (sqliteDialect) CompileDatePart(part, column, operator, placeholder string) string {
	format := map[string]string{
		"date":  "%Y-%m-%d",
		"time":  "%H:%M:%S",
		"day":   "%d",
		"month": "%m",
		"year":  "%Y",
	}[part]
	return "strftime('" + format + "', " + column + ") " + operator + " cast(" + placeholder + " as text)"
}

func (sqliteDialect) CompileJSONContains(column, placeholder string) (string, error) {
	return `exists (select 1 from json_each(` + column + `) where "value" = ` + placeholder + `)`, nil
}

func (sqliteDialect) CompileJSONLength(column, operator, placeholder string) (string, error) {
	return "json_array_length(" + column + ") " + operator + " " + placeholder, nil
}

func (sqliteDialect) CompileFullText([]string, string) (string, error) {
	return "", errors.New("compile: sqlite has no native full text predicate")
}

func (sqliteDialect) CompileRandom(string) string { return "random()" }

// SQLite's whole-database write lock makes row locks meaningless.
func (sqliteDialect) CompileLock(query.LockMode) string { return "" }

// SQLite rejects both a bare ORDER BY/LIMIT inside a union member and
// the parenthesized member form, so each side becomes a derived table.
func (sqliteDialect) WrapUnion(sql string) string { return "select * from (" + sql + ")" }

func (sqliteDialect) InsertIgnoreClauses() (string, string) {
	return "insert or ignore into", ""
}

func (sqliteDialect) UpsertSuffix(wrap func(string) string, uniqueBy, update []string) string {
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

// Emptying a table also resets its autoincrement counter to match what
// truncate does elsewhere.
func (sqliteDialect) CompileTruncate(wrappedTable, rawTable string) []query.Statement {
	return []query.Statement{
		{SQL: "delete from sqlite_sequence where name = ?", Bindings: []any{rawTable}},
		{SQL: "delete from " + wrappedTable},
	}
}
