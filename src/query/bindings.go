package query

import (
	"fmt"
	"reflect"
)

// Binding bucket categories. Flattening concatenates buckets in exactly
// this order; it must match the left-to-right placeholder order of the
// compiled statement.
const (
	BindingSelect     = "select"
	BindingFrom       = "from"
	BindingJoin       = "join"
	BindingWhere      = "where"
	BindingGroupBy    = "groupBy"
	BindingHaving     = "having"
	BindingOrder      = "order"
	BindingUnion      = "union"
	BindingUnionOrder = "unionOrder"
)

// bindingOrder is the fixed flatten order of the buckets.
var bindingOrder = []string{
	BindingSelect,
	BindingFrom,
	BindingJoin,
	BindingWhere,
	BindingGroupBy,
	BindingHaving,
	BindingOrder,
	BindingUnion,
	BindingUnionOrder,
}

func newBindings() map[string][]any {
	m := make(map[string][]any, len(bindingOrder))
	for _, k := range bindingOrder {
		m[k] = nil
	}
	return m
}

// AddBinding appends one or more values to the given bucket. Raw
// expressions are dropped since they are rendered verbatim. It panics on
// an unrecognized bucket name; that is a programming error, not a runtime
// condition.
func (b *Builder) AddBinding(value any, typ string) *Builder {
	if _, ok := b.bindings[typ]; !ok {
		panic(fmt.Sprintf("query: unknown binding type %q", typ))
	}
	for _, v := range flattenBindingValue(value) {
		if _, isExpr := v.(Expr); isExpr {
			continue
		}
		b.bindings[typ] = append(b.bindings[typ], v)
	}
	return b
}

// GetBindings flattens all buckets in the fixed category order.
func (b *Builder) GetBindings() []any {
	var out []any
	for _, k := range bindingOrder {
		out = append(out, b.bindings[k]...)
	}
	return out
}

// RawBindings returns the per-category buckets. The returned map is the
// builder's own state; callers must not mutate it.
func (b *Builder) RawBindings() map[string][]any {
	return b.bindings
}

// BindingsFor returns one bucket's values in insertion order.
func (b *Builder) BindingsFor(typ string) []any {
	if _, ok := b.bindings[typ]; !ok {
		panic(fmt.Sprintf("query: unknown binding type %q", typ))
	}
	return b.bindings[typ]
}

func (b *Builder) setBindings(typ string, values []any) {
	if _, ok := b.bindings[typ]; !ok {
		panic(fmt.Sprintf("query: unknown binding type %q", typ))
	}
	b.bindings[typ] = values
}

// flattenBindingValue normalizes a single value or a slice of values into
// a flat []any.
func flattenBindingValue(value any) []any {
	if value == nil {
		return []any{nil}
	}
	if vs, ok := value.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type() != reflect.TypeOf([]byte(nil)) {
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{value}
}

// asAnySlice converts an arbitrary slice value to []any. Non-slice values
// become a single-element slice. []byte is treated as a scalar.
func asAnySlice(value any) []any {
	return flattenBindingValue(value)
}
