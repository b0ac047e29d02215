package query

import "maps"

// Clone returns an independently mutable copy. First-level lists and
// binding buckets are copied; subquery builders referenced by nested,
// In/Exists and union nodes stay shared since they are logically
// immutable once attached.
func (b *Builder) Clone() *Builder {
	nb := *b
	nb.Columns = cloneSlice(b.Columns)
	nb.Joins = cloneSlice(b.Joins)
	nb.Wheres = cloneSlice(b.Wheres)
	nb.Groups = cloneSlice(b.Groups)
	nb.Havings = cloneSlice(b.Havings)
	nb.Orders = cloneSlice(b.Orders)
	nb.Unions = cloneSlice(b.Unions)
	nb.UnionOrders = cloneSlice(b.UnionOrders)
	nb.bindings = make(map[string][]any, len(b.bindings))
	for k, v := range b.bindings {
		nb.bindings[k] = cloneSlice(v)
	}
	nb.rawAliases = maps.Clone(b.rawAliases)
	return &nb
}

// CloneWithout clones the builder and resets the named state fields.
// Recognized names: columns, from, joins, wheres, groups, havings,
// orders, limit, offset, unions, lock, aggregate.
func (b *Builder) CloneWithout(fields ...string) *Builder {
	nb := b.Clone()
	for _, f := range fields {
		switch f {
		case "columns":
			nb.Columns = nil
		case "from":
			nb.FromTable = nil
		case "joins":
			nb.Joins = nil
		case "wheres":
			nb.Wheres = nil
		case "groups":
			nb.Groups = nil
		case "havings":
			nb.Havings = nil
		case "orders":
			nb.Orders = nil
			nb.UnionOrders = nil
		case "limit":
			nb.LimitN = -1
			nb.UnionLimitN = -1
		case "offset":
			nb.OffsetN = -1
			nb.UnionOffsetN = -1
		case "unions":
			nb.Unions = nil
		case "lock":
			nb.LockMode = LockNone
		case "aggregate":
			nb.Aggregate = nil
		}
	}
	return nb
}

// CloneWithoutBindings clones the builder and empties the named binding
// buckets. Unknown bucket names panic, matching AddBinding.
func (b *Builder) CloneWithoutBindings(buckets ...string) *Builder {
	nb := b.Clone()
	for _, bucket := range buckets {
		nb.setBindings(bucket, nil)
	}
	return nb
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
