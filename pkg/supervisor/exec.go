package supervisor

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ Supervisor = (*Exec)(nil)

// Exec supervises commands as child processes. Each child runs in its own
// process group so that termination reaches anything it spawned.
type Exec struct {
	log   logging.Logger
	grace time.Duration
}

// New returns a supervisor that gives terminated commands grace to exit after
// SIGTERM before killing them.
func New(log logging.Logger, grace time.Duration) *Exec {
	return &Exec{log: log, grace: grace}
}

func (e *Exec) Start(c Command) (Handle, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	out := &lineBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	// Children left holding the output pipe must not stall Wait forever.
	cmd.WaitDelay = e.grace
	setProcAttrs(cmd)

	if logging.Debuggable {
		e.log.WithFields(logrus.Fields{
			"cmd": cmd.String(),
			"dir": cmd.Dir,
		}).Debug("Executing")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "unable to start %q", c.String())
	}

	p := &process{
		log:      e.log.WithFields(logrus.Fields{"cmd": c.Name, "pid": cmd.Process.Pid}),
		grace:    e.grace,
		cmd:      cmd,
		out:      out,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	p.log.Debug("started")
	go p.wait()
	return p, nil
}

type process struct {
	log   logrus.FieldLogger
	grace time.Duration
	cmd   *exec.Cmd
	out   *lineBuffer
	done  chan struct{}

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

func (p *process) wait() {
	err := p.cmd.Wait()
	p.out.flush()

	p.mu.Lock()
	p.waitErr = err
	if state := p.cmd.ProcessState; state != nil {
		p.exitCode = state.ExitCode()
	}
	code := p.exitCode
	p.mu.Unlock()

	if logging.Debuggable {
		p.log.WithError(err).WithField("exit", code).Debug("Command completed")
	}
	close(p.done)
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) Drain() []string {
	lines, dropped := p.out.drain()
	if dropped > 0 {
		p.log.WithField("dropped", dropped).Warn("output dropped before it was drained")
	}
	return lines
}

func (p *process) Terminate() error {
	if p.Exited() {
		return nil
	}

	p.log.Debug("terminating")
	if err := signalGroup(p.cmd, syscall.SIGTERM); err != nil && !p.Exited() {
		p.log.WithError(err).Warn("unable to signal process group")
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.done:
		p.log.Debug("terminated")
		return nil
	case <-timer.C:
	}

	p.log.WithField("grace", p.grace).Warn("process ignored termination, killing")
	if err := signalGroup(p.cmd, syscall.SIGKILL); err != nil && !p.Exited() {
		if kerr := p.cmd.Process.Kill(); kerr != nil {
			return errors.Wrap(kerr, "unable to kill process")
		}
	}
	<-p.done
	p.log.Debug("killed")
	return nil
}
