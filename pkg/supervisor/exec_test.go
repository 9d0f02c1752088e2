//go:build !windows

package supervisor

import (
	"testing"
	"time"

	"github.com/fieldunit/fwwatch/pkg/internal/testoutput"
	"github.com/fieldunit/fwwatch/pkg/logging"
	goprocess "github.com/shirou/gopsutil/v3/process"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
	"gotest.tools/poll"
)

func testExec(t *testing.T, grace time.Duration) *Exec {
	return New(testoutput.Logger(t, logging.New("supervisor")), grace)
}

func shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

func waitExited(t *testing.T, h Handle) {
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if h.Exited() {
			return poll.Success()
		}
		return poll.Continue("pid %d still running", h.Pid())
	}, poll.WithDelay(10*time.Millisecond), poll.WithTimeout(10*time.Second))
}

// waitForLine drains until line shows up and returns everything drained.
func waitForLine(t *testing.T, h Handle, line string) []string {
	var seen []string
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		seen = append(seen, h.Drain()...)
		for _, l := range seen {
			if l == line {
				return poll.Success()
			}
		}
		return poll.Continue("waiting for %q, have %v", line, seen)
	}, poll.WithDelay(10*time.Millisecond), poll.WithTimeout(10*time.Second))
	return seen
}

func assertGone(t *testing.T, pid int) {
	exists, err := goprocess.PidExists(int32(pid))
	assert.NilError(t, err)
	assert.Check(t, !exists, "pid %d outlived its handle", pid)
}

func TestRunToCompletion(t *testing.T) {
	h, err := testExec(t, time.Second).Start(shell("echo one; echo two >&2; printf three"))
	assert.NilError(t, err)
	waitExited(t, h)

	assert.DeepEqual(t, h.Drain(), []string{"one", "two", "three"})
	assert.Check(t, is.Len(h.Drain(), 0))
	assert.Equal(t, h.ExitCode(), 0)
	assertGone(t, h.Pid())
}

func TestNonZeroExitStillExits(t *testing.T) {
	h, err := testExec(t, time.Second).Start(shell("exit 3"))
	assert.NilError(t, err)
	waitExited(t, h)
	assert.Equal(t, h.ExitCode(), 3)
	// terminating an exited command is a no-op
	assert.NilError(t, h.Terminate())
}

func TestExitedDoesNotBlock(t *testing.T) {
	h, err := testExec(t, time.Second).Start(shell("sleep 30"))
	assert.NilError(t, err)
	defer h.Terminate()

	start := time.Now()
	assert.Check(t, !h.Exited())
	assert.Check(t, is.Len(h.Drain(), 0))
	assert.Check(t, time.Since(start) < time.Second)
	assert.Equal(t, h.ExitCode(), -1)
}

func TestTerminate(t *testing.T) {
	h, err := testExec(t, 5*time.Second).Start(shell("echo ready; sleep 30"))
	assert.NilError(t, err)
	waitForLine(t, h, "ready")

	assert.NilError(t, h.Terminate())
	assert.Check(t, h.Exited())
	assertGone(t, h.Pid())
}

func TestTerminateKillsStubbornGroup(t *testing.T) {
	h, err := testExec(t, 100*time.Millisecond).Start(shell(`trap "" TERM; echo ready; sleep 30; echo survived`))
	assert.NilError(t, err)
	waitForLine(t, h, "ready")

	start := time.Now()
	assert.NilError(t, h.Terminate())
	assert.Check(t, time.Since(start) < 10*time.Second)
	assert.Check(t, h.Exited())
	for _, l := range h.Drain() {
		assert.Check(t, l != "survived")
	}
	assertGone(t, h.Pid())
}

func TestStartFailure(t *testing.T) {
	_, err := testExec(t, time.Second).Start(Command{Name: "/nonexistent/fwwatch-download"})
	assert.ErrorContains(t, err, "unable to start")
}

func TestEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	h, err := testExec(t, time.Second).Start(Command{
		Name: "sh",
		Args: []string{"-c", `echo "$TARGET_VERSION"; pwd`},
		Dir:  dir,
		Env:  []string{"TARGET_VERSION=4"},
	})
	assert.NilError(t, err)
	waitExited(t, h)
	lines := h.Drain()
	assert.Assert(t, is.Len(lines, 2))
	assert.Equal(t, lines[0], "4")
	assert.Check(t, is.Contains(lines[1], dir[len(dir)-8:]))
}
