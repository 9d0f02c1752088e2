// Package controller is the facade over the device. Queries read snapshots;
// RequestUpdate hands one update to a background task and returns at once.
package controller

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/karlseguin/ccache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// finished tasks stay retrievable by ID for this long.
	taskRetention = time.Minute * 15
)

var (
	// ErrUpdateInProgress is returned while an earlier request has not
	// finished, whether it is still waiting for Idle or running.
	ErrUpdateInProgress = errors.New("an update is already in progress")
	// ErrInvalidTarget is returned for negative target versions.
	ErrInvalidTarget = errors.New("target version must not be negative")
	// ErrInvalidHoldingState is returned when asked to hold the device in a
	// state that only an update may set.
	ErrInvalidHoldingState = errors.New("only positioning and idle may be set")
	// ErrDeviceBusy is returned when the device is owned by an update.
	ErrDeviceBusy = errors.New("device is owned by an update")
	// ErrClosed is returned once the controller is shutting down.
	ErrClosed = errors.New("controller is closed")
)

// Runner performs one update attempt.
type Runner interface {
	RunUpdate(ctx context.Context, target int) error
}

// Recorder is told how each accepted request ended.
type Recorder interface {
	UpdateFinished(err error, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) UpdateFinished(error, time.Duration) {}

type Controller struct {
	log      logging.Logger
	store    *device.Store
	runner   Runner
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
	active *Task
	seq    uint64
	tasks  *ccache.Cache
}

// New creates a controller whose tasks run under ctx; cancelling ctx or
// calling Close ends them.
func New(ctx context.Context, log logging.Logger, store *device.Store, runner Runner, recorder Recorder) (*Controller, error) {
	switch {
	case store == nil:
		return nil, errors.New("device store is nil")
	case runner == nil:
		return nil, errors.New("update runner is nil")
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		log:      log,
		store:    store,
		runner:   runner,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(100)),
	}, nil
}

func (c *Controller) GetState() device.State {
	return c.store.Snapshot().State
}

func (c *Controller) GetLastResult() device.Result {
	return c.store.Snapshot().LastResult
}

func (c *Controller) GetVersion() int {
	return c.store.Snapshot().Version
}

// Snapshot returns the whole device at once.
func (c *Controller) Snapshot() device.Device {
	return c.store.Snapshot()
}

// RequestUpdate schedules one update to target without waiting for it. Only
// one request is accepted at a time; the rest get ErrUpdateInProgress and
// schedule nothing.
func (c *Controller) RequestUpdate(target int) (*Task, error) {
	if target < 0 {
		return nil, ErrInvalidTarget
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, ErrClosed
	case c.active != nil:
		c.log.WithFields(logrus.Fields{
			"target": target,
			"active": c.active.ID,
		}).Warn("rejected update request, an update is already in progress")
		return nil, ErrUpdateInProgress
	}

	c.seq++
	task := newTask(strconv.FormatUint(c.seq, 10), target)
	c.active = task
	c.tasks.Set(task.ID, task, taskRetention)

	log := c.log.WithField("task", task.ID)
	log.WithField("target", target).Info("accepted update request")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.runner.RunUpdate(c.ctx, target)
		c.recorder.UpdateFinished(err, time.Since(task.Requested))

		c.mu.Lock()
		c.active = nil
		// Refresh so retention counts from completion.
		c.tasks.Set(task.ID, task, taskRetention)
		c.mu.Unlock()

		task.finish(err)
		log.WithField("result", task.Reason()).Info("update request finished")
	}()

	return task, nil
}

// Task returns a recent request by ID, nil when unknown, expired or once the
// controller is closed.
func (c *Controller) Task(id string) *Task {
	// The cache is stopped once closed and must not be touched again.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	item := c.tasks.Get(id)
	if item == nil || item.Expired() {
		return nil
	}
	task, ok := item.Value().(*Task)
	if !ok {
		return nil
	}
	return task
}

// Active returns the unfinished request, if any.
func (c *Controller) Active() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetHoldingState parks the device in Positioning or releases it to Idle. It
// is refused while an update owns the device.
func (c *Controller) SetHoldingState(state device.State) error {
	if state != device.Positioning && state != device.Idle {
		return errors.WithMessage(ErrInvalidHoldingState, state.String())
	}
	err := c.store.Update(func(d *device.Device) error {
		if d.State.Busy() {
			return errors.WithMessage(ErrDeviceBusy, d.State.String())
		}
		d.State = state
		return nil
	})
	if err != nil {
		return err
	}
	c.log.WithField("state", state).Info("device holding state set")
	return nil
}

// Close cancels unfinished requests and waits for them to end. It is safe to
// call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
		c.tasks.Stop()
	})
}
