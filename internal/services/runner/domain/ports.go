// Package domain defines the execution contract for validated SQL
package domain

import (
	"context"
	"time"
)

// RunResult carries one executed query's rows plus execution metadata
type RunResult struct {
	Rows      []map[string]any
	Truncated bool
	Elapsed   time.Duration
}

// ExecPort executes a validated, parameterized SELECT and returns its rows.
// The sql uses %(name)s placeholders; every placeholder must have a key in
// params and values never travel inside the SQL text
type ExecPort interface {
	Run(ctx context.Context, sql string, params map[string]any) (RunResult, error)
}
