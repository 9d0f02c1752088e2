// Package orchestrator drives a single firmware update through admission,
// download and install, supervising the external commands against the
// connectivity, power and time preconditions on every tick.
//
// The only forward path is Idle, Downloading, Upgrading or Downgrading, and
// back to Idle. A failed phase ends the attempt; trying again takes a new
// RunUpdate.
package orchestrator

import (
	"context"
	"time"

	"github.com/fieldunit/fwwatch/pkg/config"
	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/guard"
	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/fieldunit/fwwatch/pkg/platform"
	"github.com/fieldunit/fwwatch/pkg/probe"
	"github.com/fieldunit/fwwatch/pkg/supervisor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Observer is told how each phase ended.
type Observer interface {
	PhaseFinished(phase Phase, outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) PhaseFinished(Phase, Outcome, time.Duration) {}

// Deps are the capabilities the orchestrator works through.
type Deps struct {
	Store        *device.Store
	Platform     platform.Platform
	Supervisor   supervisor.Supervisor
	Connectivity probe.Connectivity
	Power        probe.Power
	// Guard defaults to the wall clock.
	Guard guard.Guard
	// Observer is optional.
	Observer Observer
}

type Orchestrator struct {
	log      logging.Logger
	timings  config.Timings
	store    *device.Store
	platform platform.Platform
	sup      supervisor.Supervisor
	conn     probe.Connectivity
	power    probe.Power
	guard    guard.Guard
	observer Observer
}

func New(log logging.Logger, timings config.Timings, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("device store is nil")
	case deps.Platform == nil:
		return nil, errors.New("supporting platform is nil")
	case deps.Supervisor == nil:
		return nil, errors.New("process supervisor is nil")
	case deps.Connectivity == nil:
		return nil, errors.New("connectivity probe is nil")
	case deps.Power == nil:
		return nil, errors.New("power probe is nil")
	case timings.PollingInterval <= 0:
		return nil, errors.New("polling interval must be positive")
	}
	o := &Orchestrator{
		log:      log,
		timings:  timings,
		store:    deps.Store,
		platform: deps.Platform,
		sup:      deps.Supervisor,
		conn:     deps.Connectivity,
		power:    deps.Power,
		guard:    deps.Guard,
		observer: deps.Observer,
	}
	if o.guard == nil {
		o.guard = guard.Wall
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o, nil
}

// RunUpdate takes the device to target. It returns nil on success and
// otherwise the reason the attempt ended; the reason has already been
// recorded on the device where that applies.
func (o *Orchestrator) RunUpdate(ctx context.Context, target int) error {
	log := o.log.WithField("target", target)

	if err := o.admit(ctx, log, target); err != nil {
		return err
	}

	// Stage 1, download the install payload.
	if outcome := o.download(ctx, log, target); !outcome.OK() {
		o.fail(log, PhaseDownload, outcome)
		return outcome.Err
	}

	// Stage 2, install the downloaded payload.
	if outcome := o.install(ctx, log, target); !outcome.OK() {
		o.fail(log, PhaseInstall, outcome)
		return outcome.Err
	}

	o.store.Update(func(d *device.Device) error {
		d.Version = target
		d.LastResult = device.Success
		d.State = device.Idle
		return nil
	})
	log.Infof("software update to version %d complete", target)
	return nil
}

// admit waits for the device to be idle and claims it by moving it to
// Downloading in the same store update, so concurrent callers cannot both own
// the device.
func (o *Orchestrator) admit(ctx context.Context, log logrus.FieldLogger, target int) error {
	start := time.Now()
	ticker := time.NewTicker(o.timings.PollingInterval)
	defer ticker.Stop()

	waiting := false
	for {
		var noop bool
		err := o.store.Update(func(d *device.Device) error {
			if d.State != device.Idle {
				return errNotIdle
			}
			if d.Version == target {
				d.LastResult = device.NoUpdate
				noop = true
				return nil
			}
			d.State = device.Downloading
			return nil
		})
		switch {
		case err == nil && noop:
			log.Info("the current version and the target version are the same")
			return ErrNoOpUpdate
		case err == nil:
			return nil
		}

		if !o.guard.WithinBound(start, o.timings.MaxWaitForIdle) {
			log.WithField("waited", time.Since(start)).Error("the update could not be performed as the device state is not idle")
			return ErrAdmissionTimeout
		}
		if !waiting {
			waiting = true
			log.WithField("state", o.store.Snapshot().State).Info("waiting for device to become idle")
		}

		select {
		case <-ctx.Done():
			log.Warn("abandoned update while waiting for idle")
			return errors.Wrap(ErrCancelled, ctx.Err().Error())
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) download(ctx context.Context, log logrus.FieldLogger, target int) Outcome {
	log = log.WithField("phase", PhaseDownload)
	log.Infof("starting software version %d download", target)

	return o.supervise(ctx, log, phase{
		name:  PhaseDownload,
		cmd:   o.platform.DownloadCommand(target),
		bound: o.timings.MaxDownloadTime,
		holds: o.conn.IsConnected,
		lost:  ErrConnectionLost,
		late:  ErrDownloadTimeout,
	})
}

func (o *Orchestrator) install(ctx context.Context, log logrus.FieldLogger, target int) Outcome {
	log = log.WithField("phase", PhaseInstall)

	var state device.State
	err := o.store.Update(func(d *device.Device) error {
		if d.State != device.Downloading {
			return errors.Errorf("install requires state %s, device is %s", device.Downloading, d.State)
		}
		// Direction only changes what is reported.
		if target >= d.Version {
			d.State = device.Upgrading
		} else {
			d.State = device.Downgrading
		}
		state = d.State
		return nil
	})
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	log.WithField("state", state).Infof("starting software version %d installation", target)

	return o.supervise(ctx, log, phase{
		name:  PhaseInstall,
		cmd:   o.platform.InstallCommand(target),
		bound: o.timings.MaxInstallTime,
		holds: o.power.IsPowered,
		lost:  ErrPowerLost,
		late:  ErrInstallTimeout,
	})
}

type phase struct {
	name  Phase
	cmd   supervisor.Command
	bound time.Duration
	// holds is the precondition that must stay true for the whole phase.
	holds func(context.Context) bool
	lost  error
	late  error
}

// supervise runs the phase command until it exits or a precondition fails.
// Each tick checks, in order: the precondition, the time bound, then exit; a
// failed precondition is the more specific report when several coincide.
func (o *Orchestrator) supervise(ctx context.Context, log logrus.FieldLogger, p phase) (outcome Outcome) {
	start := time.Now()
	defer func() {
		o.observer.PhaseFinished(p.name, outcome, time.Since(start))
	}()

	h, err := o.sup.Start(p.cmd)
	if err != nil {
		log.WithError(err).Error("unable to start phase command")
		return Outcome{Kind: Failed, Err: errors.WithMessage(ErrStartFailed, err.Error())}
	}
	log = log.WithField("pid", h.Pid())

	ticker := time.NewTicker(o.timings.PollingInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return o.cancelled(ctx, log, h)
		}
		if !p.holds(ctx) {
			// A probe answering on a cancelled context is not a real loss.
			if ctx.Err() != nil {
				return o.cancelled(ctx, log, h)
			}
			log.WithError(p.lost).Error("phase precondition lost")
			o.terminate(log, h)
			return Outcome{Kind: Failed, Err: p.lost}
		}
		if !o.guard.WithinBound(start, p.bound) {
			log.WithField("bound", p.bound).Errorf("%s timed out after %s", p.name, p.bound)
			o.terminate(log, h)
			return Outcome{Kind: TimedOut, Err: p.late}
		}
		o.drain(log, h)
		if h.Exited() {
			o.drain(log, h)
			log.WithFields(logrus.Fields{
				"exit":    h.ExitCode(),
				"elapsed": time.Since(start),
			}).Infof("%s completed", p.name)
			return Outcome{Kind: Completed}
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) cancelled(ctx context.Context, log logrus.FieldLogger, h supervisor.Handle) Outcome {
	log.Warn("update cancelled")
	o.terminate(log, h)
	return Outcome{Kind: Aborted, Err: errors.Wrap(ErrCancelled, ctx.Err().Error())}
}

// drain logs pending output. It never influences the outcome.
func (o *Orchestrator) drain(log logrus.FieldLogger, h supervisor.Handle) {
	for _, line := range h.Drain() {
		log.Debug(line)
	}
}

func (o *Orchestrator) terminate(log logrus.FieldLogger, h supervisor.Handle) {
	if err := h.Terminate(); err != nil {
		log.WithError(err).Error("unable to terminate phase command")
		return
	}
	log.Debug("phase command terminated")
}

func (o *Orchestrator) fail(log logrus.FieldLogger, p Phase, outcome Outcome) {
	o.store.Update(func(d *device.Device) error {
		d.LastResult = device.Failed
		d.State = device.Idle
		return nil
	})
	log.WithError(outcome.Err).WithFields(logrus.Fields{
		"phase":   p,
		"outcome": outcome.Kind,
	}).Error("update failed")
}
