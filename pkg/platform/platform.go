package platform

import (
	"github.com/fieldunit/fwwatch/pkg/supervisor"
	"github.com/pkg/errors"
)

// Platform is implemented by owners of the firmware tooling. It resolves the
// external commands for each phase of an update; the orchestrator runs them.
type Platform interface {
	// Status reports whether the platform's tooling is usable.
	Status() (Status, error)
	// DownloadCommand fetches the install payload for target to local
	// storage.
	DownloadCommand(target int) supervisor.Command
	// InstallCommand installs the downloaded payload, upgrading or
	// downgrading to target.
	InstallCommand(target int) supervisor.Command
}

// Status reports the readiness of the underlying platform.
type Status interface {
	// OK will return true when every tool the platform depends on was found.
	OK() bool
	// Missing lists the tools that could not be resolved.
	Missing() []string
}

// Ping the platform to verify its liveliness and general usability based on its
// status. Platform consumers should utilize this method to consistently
// validate the platform before use.
func Ping(p Platform) error {
	status, err := p.Status()
	if err != nil {
		return errors.WithMessage(err, "could not retrieve platform status")
	}
	if !status.OK() {
		return errors.Errorf("platform did not report OK status, missing %v", status.Missing())
	}
	return nil
}
