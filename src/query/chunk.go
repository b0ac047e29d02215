package query

import (
	"context"
	"fmt"
	"iter"
)

// ChunkFunc receives one page of rows and the 1-based page number. It
// returns false to halt iteration early.
type ChunkFunc func(rows []Row, page int) (bool, error)

// Chunk feeds matching rows to fn in pages of size, using offset paging.
// The query must carry an order by clause. It reports whether iteration
// ran to completion (false when fn halted it).
func (b *Builder) Chunk(ctx context.Context, size int, fn ChunkFunc) (bool, error) {
	if err := b.requireOrder(); err != nil {
		return false, err
	}
	if size < 1 {
		return false, fmt.Errorf("query: chunk size must be positive, got %d", size)
	}
	for page := 1; ; page++ {
		rows, err := b.Clone().ForPage(page, size).Get(ctx)
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			return true, nil
		}
		cont, err := fn(rows, page)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
		if len(rows) < size {
			return true, nil
		}
	}
}

// Each feeds rows to fn one at a time, fetching in pages of size.
func (b *Builder) Each(ctx context.Context, size int, fn func(row Row, index int) (bool, error)) (bool, error) {
	index := 0
	return b.Chunk(ctx, size, func(rows []Row, _ int) (bool, error) {
		for _, row := range rows {
			cont, err := fn(row, index)
			index++
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	})
}

// ChunkByID pages with a strictly increasing keyset predicate
// ("column > lastSeen") instead of an offset, which stays correct when
// rows are inserted or deleted concurrently with iteration. The alias
// names the result key when the column is qualified or aliased; pass ""
// to derive it from the column.
func (b *Builder) ChunkByID(ctx context.Context, size int, column, alias string, fn ChunkFunc) (bool, error) {
	if size < 1 {
		return false, fmt.Errorf("query: chunk size must be positive, got %d", size)
	}
	if column == "" {
		column = "id"
	}
	if alias == "" {
		alias = resultKey(column)
	}
	var lastID any
	for page := 1; ; page++ {
		q := b.Clone().forPageAfterID(size, lastID, column)
		rows, err := q.Get(ctx)
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			return true, nil
		}
		lastID = rows[len(rows)-1][alias]
		if lastID == nil {
			return false, fmt.Errorf("query: chunkById results are missing the %q column", alias)
		}
		cont, err := fn(rows, page)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
		if len(rows) < size {
			return true, nil
		}
	}
}

// Lazy yields rows one at a time using offset paging, fetching size rows
// per round trip and stopping on a short page. Errors surface through
// the second iterator value; iteration ends after the first error.
func (b *Builder) Lazy(ctx context.Context, size int) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if err := b.requireOrder(); err != nil {
			yield(nil, err)
			return
		}
		for page := 1; ; page++ {
			rows, err := b.Clone().ForPage(page, size).Get(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < size {
				return
			}
		}
	}
}

// LazyByID yields rows one at a time using keyset paging on the column,
// remaining correct under concurrent inserts with increasing keys.
func (b *Builder) LazyByID(ctx context.Context, size int, column string) iter.Seq2[Row, error] {
	if column == "" {
		column = "id"
	}
	alias := resultKey(column)
	return func(yield func(Row, error) bool) {
		var lastID any
		for {
			rows, err := b.Clone().forPageAfterID(size, lastID, column).Get(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < size {
				return
			}
			lastID = rows[len(rows)-1][alias]
			if lastID == nil {
				yield(nil, fmt.Errorf("query: lazyById results are missing the %q column", alias))
				return
			}
		}
	}
}

// forPageAfterID rebuilds the page bounds as a keyset predicate and a
// deterministic ascending order on the key column.
func (b *Builder) forPageAfterID(size int, lastID any, column string) *Builder {
	b.Orders = removeOrdersFor(b.Orders, column)
	if lastID != nil {
		b.Where(column, ">", lastID)
	}
	return b.OrderBy(column, "asc").Limit(size)
}

func removeOrdersFor(orders []Order, column string) []Order {
	out := orders[:0]
	for _, o := range orders {
		if col, ok := o.Column.(string); ok && col == column {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (b *Builder) requireOrder() error {
	if len(b.Orders) == 0 && len(b.UnionOrders) == 0 {
		return ErrNoOrderings
	}
	return nil
}
