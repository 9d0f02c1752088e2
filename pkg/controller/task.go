package controller

import (
	"sync"
	"time"

	"github.com/fieldunit/fwwatch/pkg/orchestrator"
)

// Task is the handle for one accepted update request.
type Task struct {
	ID        string
	Target    int
	Requested time.Time

	done     chan struct{}
	mu       sync.Mutex
	err      error
	finished time.Time
}

func newTask(id string, target int) *Task {
	return &Task{
		ID:        id,
		Target:    target,
		Requested: time.Now(),
		done:      make(chan struct{}),
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.finished = time.Now()
	t.mu.Unlock()
	close(t.done)
}

// Done is closed once the update has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the update has ended and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Err is nil until the task has finished, and then nil only on success.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Finished reports whether the task has ended and when.
func (t *Task) Finished() (time.Time, bool) {
	select {
	case <-t.done:
	default:
		return time.Time{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished, true
}

// Reason names how the task ended, empty while it is running.
func (t *Task) Reason() string {
	if _, ok := t.Finished(); !ok {
		return ""
	}
	return orchestrator.Reason(t.Err())
}
