package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"assistbridge/internal/log"
	"assistbridge/internal/metrics"
)

// Sentinel errors for errors.Is checks at the API boundary.
var (
	ErrEmptyQuery     = errors.New("warehouse: empty query")
	ErrForbiddenQuery = errors.New("warehouse: only read statements are allowed")
	ErrTooManyRows    = errors.New("warehouse: result exceeds row limit")
)

// ResultSet is a fully materialized query result. NULL values render as empty
// strings so the set can be serialized as delimited text without quoting
// surprises.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// Executor runs read queries with a bounded timeout and row limit.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
}

// NewExecutor wraps db with the given limits. Zero values select defaults.
func NewExecutor(db *sql.DB, timeout time.Duration, maxRows int) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &Executor{db: db, timeout: timeout, maxRows: maxRows}
}

// readVerbs is the statement allowlist. Everything else is rejected before
// reaching the database.
var readVerbs = map[string]struct{}{
	"select":  {},
	"with":    {},
	"explain": {},
	"pragma":  {},
}

// CheckReadOnly rejects statements that are not read queries.
func CheckReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '('
	})
	if len(fields) == 0 {
		return fmt.Errorf("%w: no statement verb", ErrForbiddenQuery)
	}
	verb := strings.ToLower(fields[0])
	if _, ok := readVerbs[verb]; !ok {
		return fmt.Errorf("%w: statement starts with %q", ErrForbiddenQuery, verb)
	}
	return nil
}

// ExecuteQuery runs a single query string and materializes the rows.
func (e *Executor) ExecuteQuery(ctx context.Context, query string) (*ResultSet, error) {
	logger := log.WithComponentFromContext(ctx, "warehouse")

	if err := CheckReadOnly(query); err != nil {
		metrics.IncQuery("rejected")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		metrics.IncQuery("failure")
		return nil, fmt.Errorf("warehouse: execute query: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logger.Debug().Err(cerr).Msg("close result rows")
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		metrics.IncQuery("failure")
		return nil, fmt.Errorf("warehouse: read columns: %w", err)
	}

	rs := &ResultSet{Columns: cols}
	raw := make([]sql.NullString, len(cols))
	scan := make([]any, len(cols))
	for i := range raw {
		scan[i] = &raw[i]
	}

	for rows.Next() {
		if len(rs.Rows) >= e.maxRows {
			metrics.IncQuery("failure")
			return nil, fmt.Errorf("%w: limit %d", ErrTooManyRows, e.maxRows)
		}
		if err := rows.Scan(scan...); err != nil {
			metrics.IncQuery("failure")
			return nil, fmt.Errorf("warehouse: scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				row[i] = v.String
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		metrics.IncQuery("failure")
		return nil, fmt.Errorf("warehouse: iterate rows: %w", err)
	}

	elapsed := time.Since(start)
	metrics.IncQuery("success")
	metrics.ObserveQuery(elapsed)
	metrics.ObserveQueryRows(len(rs.Rows))

	logger.Info().
		Str("event", "query.executed").
		Int(log.FieldRows, len(rs.Rows)).
		Dur("duration", elapsed).
		Msg("query executed")

	return rs, nil
}
