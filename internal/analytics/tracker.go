package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Observer is notified of tracking outcomes. The metrics package implements it.
type Observer interface {
	VisitRecorded(d time.Duration)
	RecordFailed()
	RecordDropped()
}

type TrackerOptions struct {
	// Workers bounds concurrent recordings. Events beyond it are dropped.
	Workers int
	// Timeout bounds a single recording.
	Timeout  time.Duration
	Observer Observer
	// OnRecorded runs after a visit is stored successfully.
	OnRecorded func(Visit)
}

// Tracker dispatches recordings on detached goroutines so the request that
// triggered a visit never waits on, or sees a failure from, the store.
type Tracker struct {
	rec  *Recorder
	opts TrackerOptions
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewTracker(rec *Recorder, opts TrackerOptions) *Tracker {
	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Tracker{
		rec:  rec,
		opts: opts,
		sem:  make(chan struct{}, opts.Workers),
	}
}

// Track schedules raw for recording and returns immediately. It reports
// false when the event was dropped because the pool is full or closed.
func (t *Tracker) Track(raw RawVisit) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.dropped("tracker closed")
		return false
	}
	select {
	case t.sem <- struct{}{}:
	default:
		t.mu.Unlock()
		t.dropped("worker pool full")
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go t.run(raw)
	return true
}

func (t *Tracker) run(raw RawVisit) {
	defer t.wg.Done()
	defer func() { <-t.sem }()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("visit recording panicked", "panic", fmt.Sprint(r))
			if t.opts.Observer != nil {
				t.opts.Observer.RecordFailed()
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.Timeout)
	defer cancel()

	start := time.Now()
	v, err := t.rec.Record(ctx, raw)
	if err != nil {
		slog.Warn("visit tracking failed", "path", v.Path, "date", v.Date, "error", err)
		if t.opts.Observer != nil {
			t.opts.Observer.RecordFailed()
		}
		return
	}
	if t.opts.Observer != nil {
		t.opts.Observer.VisitRecorded(time.Since(start))
	}
	if t.opts.OnRecorded != nil {
		t.opts.OnRecorded(v)
	}
}

func (t *Tracker) dropped(reason string) {
	slog.Warn("visit dropped", "reason", reason)
	if t.opts.Observer != nil {
		t.opts.Observer.RecordDropped()
	}
}

// Close stops accepting events and waits for in-flight recordings until ctx
// is done.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining tracker: %w", ctx.Err())
	}
}
