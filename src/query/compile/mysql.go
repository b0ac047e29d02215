package compile

import (
	"errors"
	"strings"

	"github.com/quillsql/quill/src/query"
)

// MySQL targets MySQL and MariaDB: positional ? placeholders, backtick
// identifiers, inserted ids via LAST_INSERT_ID.
var MySQL Dialect = mysqlDialect{}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(segment string) string {
	return "`" + strings.ReplaceAll(segment, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) SupportsReturning() bool { return false }

func (mysqlDialect) CompileLike(column, placeholder string, not bool) string {
	op := "like"
	if not {
		op = "not like"
	}
	return column + " " + op + " " + placeholder
}

func (mysqlDialect) CompileDatePart(part, column, operator, placeholder string) string {
	return part + "(" + column + ") " + operator + " " + placeholder
}

func (mysqlDialect) CompileJSONContains(column, placeholder string) (string, error) {
	return "json_contains(" + column + ", " + placeholder + ")", nil
}

func (mysqlDialect) CompileJSONLength(column, operator, placeholder string) (string, error) {
	return "json_length(" + column + ") " + operator + " " + placeholder, nil
}

func (mysqlDialect) CompileFullText(columns []string, placeholder string) (string, error) {
	if len(columns) == 0 {
		return "", errors.New("compile: full text requires at least one column")
	}
	return "match (" + strings.Join(columns, ", ") + ") against (" + placeholder + " in natural language mode)", nil
}

func (mysqlDialect) CompileRandom(seed string) string {
	return "rand(" + seed + ")"
}

func (mysqlDialect) CompileLock(mode query.LockMode) string {
	switch mode {
	case query.LockForUpdate:
		return "for update"
	case query.LockShared:
		return "lock in share mode"
	default:
		return ""
	}
}

func (mysqlDialect) WrapUnion(sql string) string { return "(" + sql + ")" }

func (mysqlDialect) InsertIgnoreClauses() (string, string) {
	return "insert ignore into", ""
}

func (mysqlDialect) UpsertSuffix(wrap func(string) string, _, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = wrap(col) + " = values(" + wrap(col) + ")"
	}
	return " on duplicate key update " + strings.Join(sets, ", ")
}

func (mysqlDialect) CompileTruncate(wrappedTable, _ string) []query.Statement {
	return []query.Statement{
		{SQL: "truncate table " + wrappedTable},
	}
}
