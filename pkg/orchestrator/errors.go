package orchestrator

import "github.com/pkg/errors"

// Every failure is handled inside the update task; these only classify what
// happened. Use errors.Cause to compare.
var (
	// ErrAdmissionTimeout means the device never became idle. Nothing was
	// recorded on the device.
	ErrAdmissionTimeout = errors.New("device did not become idle in time")
	// ErrNoOpUpdate means the target version is already installed.
	ErrNoOpUpdate = errors.New("target version is already installed")

	ErrConnectionLost  = errors.New("connection lost during download")
	ErrDownloadTimeout = errors.New("download timed out")
	ErrPowerLost       = errors.New("power lost during install")
	ErrInstallTimeout  = errors.New("install timed out")

	// ErrStartFailed means a phase command could not be launched.
	ErrStartFailed = errors.New("unable to start phase command")
	// ErrCancelled means the update task's context ended.
	ErrCancelled = errors.New("update cancelled")
)

var errNotIdle = errors.New("device is not idle")

// Reason names how an update ended, suitable as a label or status field.
func Reason(err error) string {
	switch errors.Cause(err) {
	case nil:
		return "success"
	case ErrNoOpUpdate:
		return "no_update"
	case ErrAdmissionTimeout:
		return "admission_timeout"
	case ErrConnectionLost:
		return "connection_lost"
	case ErrDownloadTimeout:
		return "download_timeout"
	case ErrPowerLost:
		return "power_lost"
	case ErrInstallTimeout:
		return "install_timeout"
	case ErrStartFailed:
		return "start_failed"
	case ErrCancelled:
		return "cancelled"
	}
	return "error"
}
