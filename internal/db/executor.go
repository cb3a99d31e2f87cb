package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"querygate/internal/query"
)

// Executor runs read-only statements on a shared *sql.DB pool. It owns no
// connection state of its own.
type Executor struct {
	db      *sql.DB
	rebind  bool
	timeout time.Duration
}

func NewExecutor(db *sql.DB, driver string, timeout time.Duration) *Executor {
	return &Executor{
		db:      db,
		rebind:  usesDollarPlaceholders(driver),
		timeout: timeout,
	}
}

func (e *Executor) Query(ctx context.Context, template string, args ...any) ([]query.Row, error) {
	if want := CountPlaceholders(template); want != len(args) {
		return nil, fmt.Errorf("template expects %d params, got %d", want, len(args))
	}
	q := template
	if e.rebind {
		q = Rebind(template)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var res []query.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res = append(res, query.Row{Columns: cols, Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return res, nil
}
