package pipeline

import (
	"context"

	"github.com/raine/loadsheet-bot/internal/table"
)

// Job is a run executing on its own goroutine. The run itself cannot be
// cancelled; callers that lose interest simply stop waiting.
type Job struct {
	done   chan struct{}
	result *Result
	err    error
}

// Start runs the pipeline in the background and returns immediately.
func Start(products, categories *table.Table, opts Options) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.result, j.err = Run(products, categories, opts)
	}()
	return j
}

// Done is closed when the run has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the run finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Poll returns the outcome without blocking. finished is false while the run
// is still in progress.
func (j *Job) Poll() (res *Result, err error, finished bool) {
	select {
	case <-j.done:
		return j.result, j.err, true
	default:
		return nil, nil, false
	}
}
