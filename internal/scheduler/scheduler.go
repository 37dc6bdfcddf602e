// Package scheduler drives the monitoring cadences. Each registered task
// ticks on its own goroutine; cadences are independent and may overlap, but
// a single task never has two runs in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrUnknownTask    = errors.New("unknown task")
	ErrInvalidPeriod  = errors.New("interval must be positive")
)

// Task is one monitoring cadence.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	task           Task
	interval       time.Duration
	runImmediately bool

	running sync.Mutex // one run in flight per task
	lastRun time.Time
	lastErr error
	runs    int
	stateMu sync.RWMutex
}

// TaskStatus describes the last run of a task.
type TaskStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run"`
	LastErr  string        `json:"last_error,omitempty"`
	Runs     int           `json:"runs"`
}

// Scheduler runs registered tasks until stopped.
type Scheduler struct {
	entries []*entry
	byName  map[string]*entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	onRun func(name string, duration time.Duration, err error)
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		byName: make(map[string]*entry),
	}
}

// OnRun registers a callback invoked after every task run (metrics).
func (s *Scheduler) OnRun(fn func(name string, duration time.Duration, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRun = fn
}

// Every registers a task at the given interval. When runImmediately is set
// the first run happens as soon as the scheduler starts.
func (s *Scheduler) Every(interval time.Duration, task Task, runImmediately bool) error {
	if interval <= 0 {
		return fmt.Errorf("%s: %w", task.Name(), ErrInvalidPeriod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}
	if _, exists := s.byName[task.Name()]; exists {
		return fmt.Errorf("task %s already registered", task.Name())
	}

	e := &entry{task: task, interval: interval, runImmediately: runImmediately}
	s.entries = append(s.entries, e)
	s.byName[task.Name()] = e

	log.Printf("[Scheduler] Registered task %s every %s", task.Name(), interval)
	return nil
}

// Start launches one goroutine per task. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	log.Printf("[Scheduler] Started %d tasks", len(s.entries))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if e.runImmediately {
		s.execute(ctx, e)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] Task %s stopped", e.task.Name())
			return
		case <-ticker.C:
			s.execute(ctx, e)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.running.Lock()
	defer e.running.Unlock()

	start := time.Now()
	err := e.task.Run(ctx)
	elapsed := time.Since(start)

	e.stateMu.Lock()
	e.lastRun = start
	e.lastErr = err
	e.runs++
	e.stateMu.Unlock()

	if err != nil {
		log.Printf("[Scheduler] Task %s failed after %s: %v", e.task.Name(), elapsed, err)
	}

	s.mu.Lock()
	onRun := s.onRun
	s.mu.Unlock()
	if onRun != nil {
		onRun(e.task.Name(), elapsed, err)
	}

	return err
}

// RunNow runs a task immediately on the caller's goroutine, waiting for
// any in-flight run of the same task to finish first.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.byName[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.execute(ctx, e)
}

// Status returns the last-run state of every task in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	entries := make([]*entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	out := make([]TaskStatus, 0, len(entries))
	for _, e := range entries {
		e.stateMu.RLock()
		status := TaskStatus{
			Name:     e.task.Name(),
			Interval: e.interval,
			LastRun:  e.lastRun,
			Runs:     e.runs,
		}
		if e.lastErr != nil {
			status.LastErr = e.lastErr.Error()
		}
		e.stateMu.RUnlock()
		out = append(out, status)
	}
	return out
}

// Stop cancels every task and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Printf("[Scheduler] All tasks stopped")
}
