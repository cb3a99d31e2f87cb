// Package query runs parameterized read-only statements and normalizes the
// result into an Outcome: rows, empty, or failure.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Executor is the database capability the gateway delegates to. Templates use
// positional "?" placeholders and args are bound in order.
type Executor interface {
	Query(ctx context.Context, template string, args ...any) ([]Row, error)
}

// Param is one bound value. Sensitive values are redacted when logged.
type Param struct {
	Name      string
	Value     any
	Sensitive bool
}

func (p Param) LogValue() slog.Value {
	if p.Sensitive {
		return slog.StringValue("[redacted]")
	}
	return slog.AnyValue(p.Value)
}

// Request is a single execution. Name identifies the template in logs.
type Request struct {
	Name     string
	Template string
	Params   []Param
}

func (r Request) args() []any {
	out := make([]any, len(r.Params))
	for i, p := range r.Params {
		out[i] = p.Value
	}
	return out
}

func (r Request) logParams() slog.Attr {
	attrs := make([]any, 0, len(r.Params))
	for i, p := range r.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("p%d", i+1)
		}
		attrs = append(attrs, slog.Any(name, p))
	}
	return slog.Group("params", attrs...)
}

type Kind int

const (
	KindRows Kind = iota + 1
	KindEmpty
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindEmpty:
		return "empty"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the normalized result of Execute. Exactly one of the three kinds
// is set; Rows is non-empty only for KindRows and Err only for KindFailure.
type Outcome struct {
	Kind Kind
	Rows []Row
	Err  error
}

func Rows(rows []Row) Outcome   { return Outcome{Kind: KindRows, Rows: rows} }
func Empty() Outcome            { return Outcome{Kind: KindEmpty} }
func Failure(err error) Outcome { return Outcome{Kind: KindFailure, Err: err} }

func (o Outcome) IsRows() bool    { return o.Kind == KindRows }
func (o Outcome) IsEmpty() bool   { return o.Kind == KindEmpty }
func (o Outcome) IsFailure() bool { return o.Kind == KindFailure }

var ErrNoTemplate = errors.New("empty query template")

type Gateway struct {
	exec   Executor
	logger *slog.Logger
}

func NewGateway(exec Executor, logger *slog.Logger) *Gateway {
	return &Gateway{exec: exec, logger: logger}
}

// Execute runs req and never returns the executor's error directly: it is
// logged and wrapped in a Failure outcome.
func (g *Gateway) Execute(ctx context.Context, req Request) (out Outcome) {
	if req.Template == "" {
		g.logger.ErrorContext(ctx, "query rejected", "query", req.Name, "err", ErrNoTemplate)
		return Failure(ErrNoTemplate)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("query executor panic: %v", r)
			g.logger.ErrorContext(ctx, "query failed", "query", req.Name, req.logParams(), "err", err)
			out = Failure(err)
		}
	}()

	rows, err := g.exec.Query(ctx, req.Template, req.args()...)
	elapsed := time.Since(start)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		g.logger.Log(ctx, level, "query failed",
			"query", req.Name, req.logParams(), "elapsed", elapsed, "err", err)
		return Failure(err)
	}
	if len(rows) == 0 {
		g.logger.InfoContext(ctx, "query returned no rows", "query", req.Name, req.logParams(), "elapsed", elapsed)
		return Empty()
	}
	g.logger.DebugContext(ctx, "query ok", "query", req.Name, "rows", len(rows), "elapsed", elapsed)
	return Rows(rows)
}
