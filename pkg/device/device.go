// Package device holds the controlled unit's state. The Store owns the only
// mutable copy; everything else works with Device snapshots.
package device

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is the lifecycle position of the device.
type State int

const (
	Positioning State = iota
	Idle
	Downloading
	Upgrading
	Downgrading
)

var stateNames = map[State]string{
	Positioning: "positioning",
	Idle:        "idle",
	Downloading: "downloading",
	Upgrading:   "upgrading",
	Downgrading: "downgrading",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Busy reports whether the state is only ever set by an owning update task.
func (s State) Busy() bool {
	return s == Downloading || s == Upgrading || s == Downgrading
}

// ParseState maps a state name back to its State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown device state %q", name)
}

// States lists every known state, in declaration order.
func States() []State {
	return []State{Positioning, Idle, Downloading, Upgrading, Downgrading}
}

// Result is the outcome of the most recent update attempt.
type Result int

const (
	NoUpdate Result = iota
	Success
	Failed
)

func (r Result) String() string {
	switch r {
	case NoUpdate:
		return "no-update"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Device is an immutable snapshot of the controlled unit.
type Device struct {
	Type       string
	Version    int
	State      State
	LastResult Result
}

func (d Device) String() string {
	return fmt.Sprintf("%s v%d %s (last %s)", d.Type, d.Version, d.State, d.LastResult)
}
