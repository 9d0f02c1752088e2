// Package supervisor runs one external command at a time under the control of
// a polling caller. Nothing here blocks except Terminate, which waits for the
// command to actually exit so that no process outlives a failed phase.
package supervisor

import (
	"strings"
)

// Command is an external program resolved by the platform.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory, empty for the current one.
	Dir string
	// Env is appended to the supervisor's own environment.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Supervisor launches commands.
type Supervisor interface {
	// Start launches the command asynchronously.
	Start(cmd Command) (Handle, error)
}

// Handle controls one started command.
type Handle interface {
	// Pid is the operating system process id.
	Pid() int
	// Exited reports, without blocking, whether the command has exited. The
	// exit status is not inspected.
	Exited() bool
	// ExitCode is the exit status once exited, -1 before then or when the
	// command was killed by a signal.
	ExitCode() int
	// Drain returns the output lines produced since the last call.
	Drain() []string
	// Terminate stops the command and returns once it has exited.
	Terminate() error
}
