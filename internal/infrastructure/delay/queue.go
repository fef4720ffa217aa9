// Package delay is the in-process delayed-work registry reminders are
// scheduled on. Work is keyed; registering an existing key replaces it.
package delay

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// FireFunc runs a unit of work once its delay has elapsed.
type FireFunc func(ctx context.Context, task reminder.Task) error

// Timer is the part of *time.Timer the queue uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type entry struct {
	task  reminder.Task
	timer Timer
	gen   uint64
}

// TimerQueue implements reminder.WorkQueue on timers.
type TimerQueue struct {
	mu        sync.Mutex
	entries   map[string]*entry
	gen       uint64
	closed    bool
	inflight  sync.WaitGroup
	fire      FireFunc
	afterFunc AfterFunc
	baseCtx   context.Context
	logger    *slog.Logger
}

var _ reminder.WorkQueue = (*TimerQueue)(nil)

// Option customises a TimerQueue.
type Option func(*TimerQueue)

// WithAfterFunc replaces time.AfterFunc, mainly for tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(q *TimerQueue) { q.afterFunc = f }
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *TimerQueue) { q.logger = l }
}

// WithContext sets the context fires run under.
func WithContext(ctx context.Context) Option {
	return func(q *TimerQueue) { q.baseCtx = ctx }
}

// NewTimerQueue creates a queue that hands due work to fire.
func NewTimerQueue(fire FireFunc, opts ...Option) *TimerQueue {
	q := &TimerQueue{
		entries:   make(map[string]*entry),
		fire:      fire,
		afterFunc: stdAfterFunc,
		baseCtx:   context.Background(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register schedules task after delay. A non-positive delay fires at once.
func (q *TimerQueue) Register(ctx context.Context, key reminder.Key, delay time.Duration, task reminder.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return err
	}
	name := key.String()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if old, ok := q.entries[name]; ok {
		old.timer.Stop()
	}
	q.gen++
	gen := q.gen
	e := &entry{task: task, gen: gen}
	q.entries[name] = e
	e.timer = q.afterFunc(delay, func() { q.run(name, gen) })
	return nil
}

// CancelByTag removes every pending unit for hearingID.
func (q *TimerQueue) CancelByTag(_ context.Context, hearingID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for name, e := range q.entries {
		if e.task.HearingID != hearingID {
			continue
		}
		e.timer.Stop()
		delete(q.entries, name)
		n++
	}
	return n, nil
}

// Pending lists the unfired work for hearingID by fire time.
func (q *TimerQueue) Pending(hearingID string) []reminder.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []reminder.Task
	for _, e := range q.entries {
		if e.task.HearingID == hearingID {
			out = append(out, e.task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Len is the number of pending units.
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops all timers and waits for running fires to return.
func (q *TimerQueue) Close() {
	q.mu.Lock()
	q.closed = true
	for name, e := range q.entries {
		e.timer.Stop()
		delete(q.entries, name)
	}
	q.mu.Unlock()
	q.inflight.Wait()
}

// Run blocks until ctx is done, then closes the queue.
func (q *TimerQueue) Run(ctx context.Context) error {
	<-ctx.Done()
	q.Close()
	return nil
}

// run executes the unit registered as name if it was not replaced or cancelled
// in the meantime. Errors are logged and the unit is dropped.
func (q *TimerQueue) run(name string, gen uint64) {
	q.mu.Lock()
	e, ok := q.entries[name]
	if !ok || e.gen != gen || q.closed {
		q.mu.Unlock()
		return
	}
	delete(q.entries, name)
	q.inflight.Add(1)
	q.mu.Unlock()
	defer q.inflight.Done()

	if err := q.fire(q.baseCtx, e.task); err != nil {
		q.logger.Error("delayed work failed", "key", name, "error", err)
	}
}
