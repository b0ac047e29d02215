package query

import (
	"context"
	"strings"

	"github.com/quillsql/quill/cursor"
)

// Paginator is a length-aware page: it carries the total row count from
// a separate count query.
type Paginator struct {
	Items       []Row
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int
}

// SimplePaginator knows only whether more rows exist, determined by
// over-fetching one row instead of running a count query.
type SimplePaginator struct {
	Items       []Row
	PerPage     int
	CurrentPage int
	HasMore     bool
}

// CursorPaginator pages by boundary value instead of offset. Next is nil
// on the final page.
type CursorPaginator struct {
	Items   []Row
	PerPage int
	Next    *cursor.Cursor
}

// Paginate returns the given 1-based page plus the total count, computed
// by a separate count query over a clone with columns and orders
// stripped.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) (*Paginator, error) {
	if page < 1 {
		page = 1
	}
	total, err := b.countForPagination(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if total > 0 {
		rows, err = b.ForPage(page, perPage).Get(ctx)
		if err != nil {
			return nil, err
		}
	}
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return &Paginator{
		Items:       rows,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}, nil
}

// SimplePaginate returns the given page and a has-more flag, avoiding
// the count query by fetching one extra row.
func (b *Builder) SimplePaginate(ctx context.Context, page, perPage int) (*SimplePaginator, error) {
	if page < 1 {
		page = 1
	}
	rows, err := b.Offset((page - 1) * perPage).Limit(perPage + 1).Get(ctx)
	if err != nil {
		return nil, err
	}
	hasMore := len(rows) > perPage
	if hasMore {
		rows = rows[:perPage]
	}
	return &SimplePaginator{
		Items:       rows,
		PerPage:     perPage,
		CurrentPage: page,
		HasMore:     hasMore,
	}, nil
}

// CursorPaginate returns one page keyed by the boundary value of the
// cursor column. A deterministic order on the column is appended when
// absent. The returned cursor is opaque and reversible.
func (b *Builder) CursorPaginate(ctx context.Context, perPage int, column string, after *cursor.Cursor) (*CursorPaginator, error) {
	direction := b.ensureOrderOn(column)
	if after != nil {
		boundary, ok := after.Parameter(resultKey(column))
		if !ok {
			boundary, _ = after.Parameter(column)
		}
		operator := ">"
		if direction == "desc" {
			operator = "<"
		}
		b.Where(column, operator, boundary)
	}
	rows, err := b.Limit(perPage + 1).Get(ctx)
	if err != nil {
		return nil, err
	}
	var next *cursor.Cursor
	if len(rows) > perPage {
		rows = rows[:perPage]
		key := resultKey(column)
		next = cursor.New(map[string]any{key: rows[len(rows)-1][key]})
	}
	return &CursorPaginator{Items: rows, PerPage: perPage, Next: next}, nil
}

// ensureOrderOn appends an ascending order on the column when no order
// for it exists, and returns the effective direction.
func (b *Builder) ensureOrderOn(column string) string {
	for _, o := range b.Orders {
		if col, ok := o.Column.(string); ok && strings.EqualFold(col, column) {
			return o.Direction
		}
	}
	b.OrderBy(column, "asc")
	return "asc"
}

// countForPagination counts over a clone with projection, orders and
// page bounds stripped, so the count sees the same filtered set.
func (b *Builder) countForPagination(ctx context.Context) (int64, error) {
	clone := b.CloneWithout("columns", "orders", "limit", "offset").
		CloneWithoutBindings(BindingSelect, BindingOrder)
	return clone.Count(ctx)
}
