package proptest

// OneOf returns a random value from the given values.
// Panics if no values are provided.
func OneOf[T any](g *Generator, values ...T) T {
	if len(values) == 0 {
		panic("proptest: OneOf requires at least one value")
	}
	return values[g.Intn(len(values))]
}

// OneOfFunc picks a random generator function and calls it.
// Panics if no functions are provided.
func OneOfFunc[T any](g *Generator, fns ...func(*Generator) T) T {
	if len(fns) == 0 {
		panic("proptest: OneOfFunc requires at least one function")
	}
	return fns[g.Intn(len(fns))](g)
}

// Pick returns a random element from the slice.
// Panics if the slice is empty.
func Pick[T any](g *Generator, slice []T) T {
	if len(slice) == 0 {
		panic("proptest: Pick requires a non-empty slice")
	}
	return slice[g.Intn(len(slice))]
}

// Slice generates a slice of length [0, maxLen] using the given generator.
func Slice[T any](g *Generator, maxLen int, gen func(*Generator) T) []T {
	return SliceN(g, 0, maxLen, gen)
}

// SliceN generates a slice of length [minLen, maxLen] using the given generator.
func SliceN[T any](g *Generator, minLen, maxLen int, gen func(*Generator) T) []T {
	length := g.IntRange(minLen, maxLen)
	out := make([]T, length)
	for i := range out {
		out[i] = gen(g)
	}
	return out
}
