// Package sched runs a session's periodic correction tasks (loop check,
// drift check, position readback) and tears them all down atomically when
// the session closes. A task left running after teardown would keep firing
// callbacks against disposed buffers, so cancellation is not optional.
package sched

import (
	"sync"
	"time"
)

// Task is a handle to a registered periodic task.
type Task struct {
	name   string
	cancel chan struct{}
	once   sync.Once
}

// Cancel stops this task. Safe to call more than once, and safe to call
// after the scheduler is closed.
func (t *Task) Cancel() {
	t.once.Do(func() { close(t.cancel) })
}

// Scheduler owns every periodic task of one playback session.
type Scheduler struct {
	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// Every registers fn to run at the given interval until the task or the
// scheduler is cancelled. fn runs on the scheduler's timer goroutine; keep
// it short and non-blocking. Returns nil if the scheduler is already closed.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	task := &Task{name: name, cancel: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-task.cancel:
				return
			case <-s.stop:
				return
			}
		}
	}()
	return task
}

// Close cancels every task and blocks until their goroutines exit. After
// Close no task callback will ever fire again.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}
