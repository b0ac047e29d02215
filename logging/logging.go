package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/quillsql/quill/src/query"
)

// PrettyJSONHandler is a custom handler that pretty prints JSON in development
type PrettyJSONHandler struct {
	*slog.JSONHandler
	writer io.Writer
}

func (h *PrettyJSONHandler) Handle(ctx context.Context, r slog.Record) error {
	// Convert the record to a map
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	// Add time and level
	attrs["time"] = r.Time.Format(time.RFC3339)
	attrs["level"] = r.Level.String()
	attrs["msg"] = r.Message

	// Marshal with indentation
	prettyJSON, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return err
	}

	// Write to the handler's writer with newline
	_, err = h.writer.Write(append(prettyJSON, '\n'))
	return err
}

// NewPrettyJSONHandler creates a new pretty JSON handler
func newPrettyJSONHandler() *PrettyJSONHandler {
	return &PrettyJSONHandler{
		JSONHandler: slog.NewJSONHandler(os.Stdout, nil),
		writer:      os.Stdout,
	}
}

var ProdLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

var DevLogger = slog.New(newPrettyJSONHandler())

// Decorate wraps a connection and adds tasteful JSON logging to every
// statement it runs. Statements whose SQL is in the ignoreList are
// passed through silently.
func Decorate(ignoreList []string, logger *slog.Logger, next query.Connection) query.Connection {
	return &loggedConnection{ignoreList: ignoreList, logger: logger, next: next}
}

type loggedConnection struct {
	ignoreList []string
	logger     *slog.Logger
	next       query.Connection
}

func (c *loggedConnection) Dialect() string { return c.next.Dialect() }

func (c *loggedConnection) Select(ctx context.Context, sql string, bindings []any) ([]query.Row, error) {
	if slices.Contains(c.ignoreList, sql) {
		return c.next.Select(ctx, sql, bindings)
	}

	queryID := uuid.NewString()
	startTime := time.Now()

	c.logger.Info("query_started",
		"query_id", queryID,
		"sql", sql,
		"binding_count", len(bindings),
		"timestamp", startTime,
	)

	rows, err := c.next.Select(ctx, sql, bindings)

	c.logger.Info("query_completed",
		"query_id", queryID,
		"sql", sql,
		"row_count", len(rows),
		"error", errString(err),
		"duration_ms", float64(time.Since(startTime).Nanoseconds())/1e6,
		"timestamp", time.Now(),
	)
	return rows, err
}

func (c *loggedConnection) Exec(ctx context.Context, sql string, bindings []any) (query.Result, error) {
	if slices.Contains(c.ignoreList, sql) {
		return c.next.Exec(ctx, sql, bindings)
	}

	queryID := uuid.NewString()
	startTime := time.Now()

	c.logger.Info("query_started",
		"query_id", queryID,
		"sql", sql,
		"binding_count", len(bindings),
		"timestamp", startTime,
	)

	result, err := c.next.Exec(ctx, sql, bindings)

	c.logger.Info("query_completed",
		"query_id", queryID,
		"sql", sql,
		"rows_affected", result.RowsAffected,
		"error", errString(err),
		"duration_ms", float64(time.Since(startTime).Nanoseconds())/1e6,
		"timestamp", time.Now(),
	)
	return result, err
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}
