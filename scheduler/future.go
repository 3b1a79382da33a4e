package scheduler

import "context"

// Future is the pending outcome of a scheduled task.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve settles the future. It must be called exactly once.
func (f *Future) resolve(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the task has an outcome.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task has an outcome or ctx is done. Cancelling ctx
// stops the wait only; the task itself keeps its place or keeps running.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
