package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/quillsql/quill/src/query"
)

func rowsWithIDs(ids ...int64) []query.Row {
	out := make([]query.Row, len(ids))
	for i, id := range ids {
		out[i] = query.Row{"id": id}
	}
	return out
}

func TestChunkRequiresOrder(t *testing.T) {
	conn := &fakeConn{}
	_, err := newConnBuilder(t, conn).From("items").Chunk(context.Background(), 2,
		func([]query.Row, int) (bool, error) { return true, nil })
	if !errors.Is(err, query.ErrNoOrderings) {
		t.Errorf("expected ErrNoOrderings, got %v", err)
	}
}

func TestChunkPagesUntilShortPage(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3),
	}}
	b := newConnBuilder(t, conn).From("items").OrderBy("id")

	var pages [][]query.Row
	completed, err := b.Chunk(context.Background(), 2, func(rows []query.Row, page int) (bool, error) {
		pages = append(pages, rows)
		return true, nil
	})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if !completed {
		t.Error("expected completed = true")
	}
	if len(pages) != 2 || len(pages[0]) != 2 || len(pages[1]) != 1 {
		t.Errorf("unexpected pages: %v", pages)
	}
	if conn.log[0].sql != `select * from "items" order by "id" asc limit 2 offset 0` {
		t.Errorf("unexpected first page sql: %s", conn.log[0].sql)
	}
	if conn.log[1].sql != `select * from "items" order by "id" asc limit 2 offset 2` {
		t.Errorf("unexpected second page sql: %s", conn.log[1].sql)
	}
}

func TestChunkHaltsEarly(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3, 4),
	}}
	b := newConnBuilder(t, conn).From("items").OrderBy("id")

	completed, err := b.Chunk(context.Background(), 2, func(rows []query.Row, page int) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if completed {
		t.Error("expected completed = false")
	}
	if len(conn.log) != 1 {
		t.Errorf("expected a single page fetch, got %d", len(conn.log))
	}
}

func TestEach(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3),
	}}
	b := newConnBuilder(t, conn).From("items").OrderBy("id")

	var indexes []int
	completed, err := b.Each(context.Background(), 2, func(row query.Row, index int) (bool, error) {
		indexes = append(indexes, index)
		return true, nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	if !completed {
		t.Error("expected completed = true")
	}
	if len(indexes) != 3 || indexes[2] != 2 {
		t.Errorf("unexpected indexes: %v", indexes)
	}
}

func TestChunkByIDUsesKeysetPaging(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3),
	}}
	b := newConnBuilder(t, conn).From("items")

	completed, err := b.ChunkByID(context.Background(), 2, "id", "",
		func(rows []query.Row, page int) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("ChunkByID failed: %v", err)
	}
	if !completed {
		t.Error("expected completed = true")
	}
	if conn.log[0].sql != `select * from "items" order by "id" asc limit 2` {
		t.Errorf("unexpected first page sql: %s", conn.log[0].sql)
	}
	if conn.log[1].sql != `select * from "items" where "id" > ? order by "id" asc limit 2` {
		t.Errorf("unexpected second page sql: %s", conn.log[1].sql)
	}
	if conn.log[1].bindings[0] != int64(2) {
		t.Errorf("unexpected boundary binding: %v", conn.log[1].bindings)
	}
}

func TestChunkByIDMissingColumn(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		{{"name": "no id here"}},
	}}
	b := newConnBuilder(t, conn).From("items")

	_, err := b.ChunkByID(context.Background(), 2, "id", "",
		func(rows []query.Row, page int) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("expected error for missing key column")
	}
}

func TestLazy(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3),
	}}
	b := newConnBuilder(t, conn).From("items").OrderBy("id")

	var ids []int64
	for row, err := range b.Lazy(context.Background(), 2) {
		if err != nil {
			t.Fatalf("Lazy failed: %v", err)
		}
		ids = append(ids, row["id"].(int64))
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestLazyStopsOnBreak(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3, 4),
	}}
	b := newConnBuilder(t, conn).From("items").OrderBy("id")

	count := 0
	for _, err := range b.Lazy(context.Background(), 2) {
		if err != nil {
			t.Fatalf("Lazy failed: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Errorf("expected 1 row consumed, got %d", count)
	}
	if len(conn.log) != 1 {
		t.Errorf("expected a single page fetch, got %d", len(conn.log))
	}
}

func TestLazyByID(t *testing.T) {
	conn := &fakeConn{selectRows: [][]query.Row{
		rowsWithIDs(1, 2),
		rowsWithIDs(3),
	}}
	b := newConnBuilder(t, conn).From("items")

	var ids []int64
	for row, err := range b.LazyByID(context.Background(), 2, "id") {
		if err != nil {
			t.Fatalf("LazyByID failed: %v", err)
		}
		ids = append(ids, row["id"].(int64))
	}
	if len(ids) != 3 {
		t.Errorf("unexpected ids: %v", ids)
	}
	if conn.log[1].sql != `select * from "items" where "id" > ? order by "id" asc limit 2` {
		t.Errorf("unexpected second page sql: %s", conn.log[1].sql)
	}
}
