package query

import "errors"

var (
	// ErrNoRows is returned by the *OrFail accessors when the query
	// matched nothing.
	ErrNoRows = errors.New("query: no rows found")

	// ErrNoConnection is returned when an execution method runs on a
	// builder constructed without a connection.
	ErrNoConnection = errors.New("query: builder has no connection")

	// ErrNoGrammar is returned when compilation is requested on a builder
	// constructed without a grammar.
	ErrNoGrammar = errors.New("query: builder has no grammar")

	// ErrNonPositiveAmount is returned by the increment/decrement family
	// for amounts <= 0.
	ErrNonPositiveAmount = errors.New("query: increment amount must be positive")

	// ErrNoOrderings is returned by chunked and lazy iteration when the
	// query carries no deterministic ordering.
	ErrNoOrderings = errors.New("query: chunking requires an order by clause")
)
