package service

import (
	"context"
	"sync"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// Result is the terminal outcome of one run.
type Result struct {
	Variants     []core.FormattingVariant
	TemplateName string
	// Err is set when the run failed. Variants then holds the error variant.
	Err *core.CategorizedError
	// ExecutionID identifies the run; empty when no run was started.
	ExecutionID string
}

// Future resolves once with the Result of a run.
type Future struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r Result) {
	f.once.Do(func() {
		f.result = r
		close(f.done)
	})
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
