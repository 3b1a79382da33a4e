// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/haystack/metrics"
	"golang.org/x/sync/errgroup"
)

// Unlimited disables the concurrency ceiling.
const Unlimited = -1

// DefaultMaxIdleTime is how long a strategy may sit without pending tasks
// before its free execution contexts are destroyed.
const DefaultMaxIdleTime = 10 * time.Second

// Executor is an execution context. It runs task payloads for one strategy
// and may keep state between tasks. A scheduler never runs two tasks on the
// same executor at once.
type Executor interface {
	Execute(payload []byte) (any, error)
	Close()
}

// Factory creates execution contexts for a strategy.
type Factory func() (Executor, error)

// Stats describes one strategy's pool.
type Stats struct {
	Registered bool
	Free       int // Idle execution contexts
	Pending    int // Queued plus running tasks
}

type task struct {
	strategy string
	payload  []byte
	future   *Future
}

// strategyState is the pool metadata of one strategy. It is created on the
// first task and dropped by Terminate or idle eviction.
type strategyState struct {
	name    string
	factory Factory
	free    []Executor
	pending int
	idle    *time.Timer
	idleGen uint64
}

// Scheduler runs strategy tasks concurrently on a bounded number of reusable
// execution contexts. Tasks are started in submission order and never more
// than maxThreads at a time. Goroutines come from an ants pool.
type Scheduler struct {
	mu         sync.Mutex
	pool       *ants.Pool
	maxThreads int
	maxIdle    time.Duration
	factories  map[string]Factory
	states     map[string]*strategyState
	queue      []*task
	running    int
	closed     bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithMaxThreads sets the maximum number of concurrently executing tasks.
// Use Unlimited for no ceiling. Default is runtime.NumCPU().
func WithMaxThreads(n int) Option {
	return func(s *Scheduler) error {
		if n != Unlimited && n < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidMaxThreads, n)
		}
		s.maxThreads = n
		return nil
	}
}

// WithMaxIdleTime sets how long idle execution contexts are kept.
// Zero evicts as soon as a strategy has no pending tasks; a negative value
// disables eviction. Default is DefaultMaxIdleTime.
func WithMaxIdleTime(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.maxIdle = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics reports task outcomes and pool sizes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) error {
		s.metrics = m
		return nil
	}
}

// antsLoggerAdapter adapts slog.Logger to the ants.Logger interface.
type antsLoggerAdapter struct {
	logger *slog.Logger
}

var _ ants.Logger = (*antsLoggerAdapter)(nil)

func (al *antsLoggerAdapter) Printf(format string, args ...any) {
	al.logger.Warn(fmt.Sprintf(format, args...))
}

// New creates a scheduler.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		maxThreads: runtime.NumCPU(),
		maxIdle:    DefaultMaxIdleTime,
		factories:  make(map[string]Factory),
		states:     make(map[string]*strategyState),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	// The pool is unbounded; the ceiling is enforced by dispatch so a
	// finishing task can always hand its slot to the next one. Submit runs
	// under the scheduler mutex and must never wait for a worker.
	expiry := s.maxIdle
	if expiry <= 0 {
		expiry = ants.DefaultCleanIntervalTime
	}
	pool, err := ants.NewPool(Unlimited,
		ants.WithExpiryDuration(expiry),
		ants.WithNonblocking(true),
		ants.WithLogger(&antsLoggerAdapter{logger: s.logger}),
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("worker panic", "panic", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// MaxThreads returns the concurrency ceiling, or Unlimited.
func (s *Scheduler) MaxThreads() int {
	return s.maxThreads
}

// Register makes a strategy available under name. Names are stable: a
// registration outlives Terminate and idle eviction.
func (s *Scheduler) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	s.factories[name] = factory
	return nil
}

// Registered reports whether name has a factory.
func (s *Scheduler) Registered(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.factories[name]
	return ok
}

// Run enqueues a task for the named strategy and returns its future.
func (s *Scheduler) Run(name string, payload []byte) *Future {
	f := newFuture()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f.resolve(nil, ErrClosed)
		return f
	}
	factory, ok := s.factories[name]
	if !ok {
		s.mu.Unlock()
		f.resolve(nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name))
		return f
	}
	st, ok := s.states[name]
	if !ok {
		st = &strategyState{name: name, factory: factory}
		s.states[name] = st
	}
	if st.idle != nil {
		st.idle.Stop()
		st.idle = nil
	}
	st.pending++
	s.queue = append(s.queue, &task{strategy: name, payload: payload, future: f})
	failed := s.dispatchLocked()
	s.mu.Unlock()

	s.reject(failed)
	return f
}

// RunMany submits one task per payload and waits for all of them. Results are
// returned in payload order. The first task error is returned; the remaining
// tasks still run to completion.
func (s *Scheduler) RunMany(ctx context.Context, name string, payloads [][]byte) ([]any, error) {
	futures := make([]*Future, len(payloads))
	for i, p := range payloads {
		futures[i] = s.Run(name, p)
	}

	results := make([]any, len(futures))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		g.Go(func() error {
			v, err := f.Wait(ctx)
			results[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// rejection is a task that could not be started.
type rejection struct {
	task *task
	err  error
}

// dispatchLocked starts queued tasks while the ceiling allows. Tasks that
// could not be handed to the pool are returned for rejection outside the lock.
func (s *Scheduler) dispatchLocked() []rejection {
	var failed []rejection
	for len(s.queue) > 0 && (s.maxThreads == Unlimited || s.running < s.maxThreads) {
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		st := s.states[t.strategy]

		s.running++
		if err := s.pool.Submit(func() { s.execute(st, t) }); err != nil {
			s.running--
			st.pending--
			failed = append(failed, rejection{task: t, err: err})
		}
	}
	s.metrics.SetRunning(s.running)
	return failed
}

func (s *Scheduler) execute(st *strategyState, t *task) {
	exec, err := s.acquire(st)
	var value any
	if err == nil {
		value, err = invoke(exec, t.payload)
	}
	s.complete(st, t, exec, value, err)
}

// acquire pops a free execution context or creates a new one.
func (s *Scheduler) acquire(st *strategyState) (Executor, error) {
	s.mu.Lock()
	if n := len(st.free); n > 0 {
		exec := st.free[n-1]
		st.free = st.free[:n-1]
		s.mu.Unlock()
		return exec, nil
	}
	s.mu.Unlock()

	exec, err := st.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContextCreation, st.name, err)
	}
	s.logger.Debug("execution context created", "strategy", st.name)
	return exec, nil
}

func invoke(exec Executor, payload []byte) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
		}
	}()
	return exec.Execute(payload)
}

// complete returns the execution context to its pool, settles the pending
// count and hands the freed slot to the next queued task.
func (s *Scheduler) complete(st *strategyState, t *task, exec Executor, value any, err error) {
	s.mu.Lock()
	s.running--
	current := !s.closed && s.states[st.name] == st
	var discard Executor
	if exec != nil {
		if current {
			st.free = append(st.free, exec)
		} else {
			discard = exec
		}
	}
	if current {
		st.pending--
		if st.pending == 0 {
			s.startIdleTimerLocked(st)
		}
		s.metrics.SetFreeContexts(st.name, len(st.free))
	}
	failed := s.dispatchLocked()
	s.mu.Unlock()

	if discard != nil {
		discard.Close()
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	s.metrics.TaskFinished(t.strategy, outcome)
	t.future.resolve(value, err)
	s.reject(failed)
}

func (s *Scheduler) startIdleTimerLocked(st *strategyState) {
	if s.maxIdle < 0 {
		return
	}
	st.idleGen++
	gen := st.idleGen
	st.idle = time.AfterFunc(s.maxIdle, func() { s.evict(st, gen) })
}

// evict destroys the free contexts of a strategy that stayed idle.
func (s *Scheduler) evict(st *strategyState, gen uint64) {
	s.mu.Lock()
	if s.states[st.name] != st || st.pending > 0 || st.idleGen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.states, st.name)
	free := st.free
	st.free = nil
	s.mu.Unlock()

	for _, exec := range free {
		exec.Close()
	}
	s.metrics.SetFreeContexts(st.name, 0)
	s.logger.Debug("evicted idle execution contexts", "strategy", st.name, "contexts", len(free))
}

// Terminate destroys the free execution contexts of the named strategy and
// rejects its queued tasks with ErrTerminated. Running tasks finish normally
// and their contexts are destroyed afterwards. Other strategies are untouched.
func (s *Scheduler) Terminate(name string) {
	s.mu.Lock()
	st, ok := s.states[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.states, name)
	if st.idle != nil {
		st.idle.Stop()
	}
	free := st.free
	st.free = nil
	var cancelled []*task
	s.queue = slices.DeleteFunc(s.queue, func(t *task) bool {
		if t.strategy == name {
			cancelled = append(cancelled, t)
			return true
		}
		return false
	})
	s.mu.Unlock()

	for _, exec := range free {
		exec.Close()
	}
	for _, t := range cancelled {
		s.metrics.TaskFinished(t.strategy, metrics.OutcomeTerminated)
		t.future.resolve(nil, ErrTerminated)
	}
	s.metrics.SetFreeContexts(name, 0)
	s.logger.Debug("terminated strategy", "strategy", name, "contexts", len(free), "cancelled", len(cancelled))
}

// Stats returns the pool state of the named strategy.
func (s *Scheduler) Stats(name string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, registered := s.factories[name]
	stats := Stats{Registered: registered}
	if st, ok := s.states[name]; ok {
		stats.Free = len(st.free)
		stats.Pending = st.pending
	}
	return stats
}

// Running returns the number of executing tasks.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Queued returns the number of tasks waiting for a slot.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Release terminates every strategy and releases the goroutine pool. Later
// calls to Run fail with ErrClosed.
func (s *Scheduler) Release() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.Terminate(name)
	}
	s.pool.Release()
}

func (s *Scheduler) reject(failed []rejection) {
	for _, r := range failed {
		s.metrics.TaskFinished(r.task.strategy, metrics.OutcomeError)
		r.task.future.resolve(nil, r.err)
	}
}
