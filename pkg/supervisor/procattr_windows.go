//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

func setProcAttrs(*exec.Cmd) {}

// signalGroup kills the command, windows has no graceful equivalent.
func signalGroup(cmd *exec.Cmd, _ syscall.Signal) error {
	return cmd.Process.Kill()
}
