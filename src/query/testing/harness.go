//go:build integration

// Package testing provides the shared harness for integration tests
// that run identical builder queries against live Postgres, MySQL, and
// SQLite databases.
package testing

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/quillsql/quill/db"
	"github.com/quillsql/quill/dburl"
)

// TestDBs holds handles to all three database types.
type TestDBs struct {
	Postgres *db.DB
	MySQL    *db.DB
	SQLite   *db.DB
}

// All returns the handles keyed by dialect name, for subtest loops.
func (t *TestDBs) All() map[string]*db.DB {
	return map[string]*db.DB{
		dburl.DialectPostgres: t.Postgres,
		dburl.DialectMySQL:    t.MySQL,
		dburl.DialectSQLite:   t.SQLite,
	}
}

// SetupTestDBs connects to the test databases and creates identical
// schemas on each. Postgres and MySQL come from the QUILL_POSTGRES_URL
// and QUILL_MYSQL_URL environment variables (a dev URL is redirected to
// its _test sibling); SQLite is in-memory. The test is skipped unless
// all three are reachable.
func SetupTestDBs(t *testing.T) (*TestDBs, func()) {
	t.Helper()

	pg := setupURL(t, os.Getenv("QUILL_POSTGRES_URL"))
	my := setupURL(t, os.Getenv("QUILL_MYSQL_URL"))
	sq := setupURL(t, "sqlite::memory:")

	if pg == nil || my == nil || sq == nil {
		for _, h := range []*db.DB{pg, my, sq} {
			if h != nil {
				h.Close()
			}
		}
		t.Skip("Not all databases available for cross-database testing")
		return nil, func() {}
	}

	dbs := &TestDBs{Postgres: pg, MySQL: my, SQLite: sq}
	createTestSchema(t, dbs)

	cleanup := func() {
		pg.Close()
		my.Close()
		sq.Close()
	}
	return dbs, cleanup
}

func setupURL(t *testing.T, dbURL string) *db.DB {
	t.Helper()

	if dbURL == "" {
		return nil
	}
	// The schema setup drops tables, so only local databases are
	// acceptable, and a dev URL is redirected to its _test sibling.
	if !dburl.IsLocalhost(dbURL) {
		t.Logf("refusing non-local database (%s)", dbURL)
		return nil
	}
	if name := dburl.ParseDatabaseName(dbURL); name != "" && !strings.HasSuffix(name, "_test") {
		testURL, err := dburl.TestDatabaseURL(dbURL)
		if err != nil {
			t.Logf("database unavailable (%s): %v", dbURL, err)
			return nil
		}
		dbURL = testURL
	}
	handle, err := db.Open(dbURL)
	if err != nil {
		t.Logf("database unavailable (%s): %v", dbURL, err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := handle.SQL().PingContext(ctx); err != nil {
		handle.Close()
		t.Logf("database unavailable (%s): %v", dbURL, err)
		return nil
	}
	return handle
}

// createTestSchema creates identical schemas on all databases.
func createTestSchema(t *testing.T, dbs *TestDBs) {
	t.Helper()

	// Drop existing tables first.
	dbs.Postgres.SQL().Exec("DROP TABLE IF EXISTS test_books CASCADE")
	dbs.Postgres.SQL().Exec("DROP TABLE IF EXISTS test_authors CASCADE")

	dbs.MySQL.SQL().Exec("SET FOREIGN_KEY_CHECKS = 0")
	dbs.MySQL.SQL().Exec("DROP TABLE IF EXISTS test_books")
	dbs.MySQL.SQL().Exec("DROP TABLE IF EXISTS test_authors")
	dbs.MySQL.SQL().Exec("SET FOREIGN_KEY_CHECKS = 1")

	dbs.SQLite.SQL().Exec("DROP TABLE IF EXISTS test_books")
	dbs.SQLite.SQL().Exec("DROP TABLE IF EXISTS test_authors")

	authors := map[*db.DB]string{
		dbs.Postgres: `
			CREATE TABLE test_authors (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				bio TEXT,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			)
		`,
		dbs.MySQL: `
			CREATE TABLE test_authors (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				bio TEXT,
				active TINYINT(1) NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT NOW()
			)
		`,
		dbs.SQLite: `
			CREATE TABLE test_authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				bio TEXT,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			)
		`,
	}

	books := map[*db.DB]string{
		dbs.Postgres: `
			CREATE TABLE test_books (
				id BIGSERIAL PRIMARY KEY,
				author_id BIGINT NOT NULL REFERENCES test_authors(id),
				title VARCHAR(255) NOT NULL,
				price DECIMAL(10,2),
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			)
		`,
		dbs.MySQL: `
			CREATE TABLE test_books (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				author_id BIGINT NOT NULL,
				title VARCHAR(255) NOT NULL,
				price DECIMAL(10,2),
				created_at DATETIME NOT NULL DEFAULT NOW(),
				FOREIGN KEY (author_id) REFERENCES test_authors(id)
			)
		`,
		dbs.SQLite: `
			CREATE TABLE test_books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				author_id INTEGER NOT NULL REFERENCES test_authors(id),
				title TEXT NOT NULL,
				price TEXT,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			)
		`,
	}

	for handle, schema := range authors {
		if _, err := handle.SQL().Exec(schema); err != nil {
			t.Fatalf("create test_authors failed: %v", err)
		}
	}
	for handle, schema := range books {
		if _, err := handle.SQL().Exec(schema); err != nil {
			t.Fatalf("create test_books failed: %v", err)
		}
	}
}
