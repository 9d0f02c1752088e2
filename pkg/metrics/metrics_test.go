package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, nil)

	m.UpdateFinished(nil, 3*time.Second)
	m.UpdateFinished(orchestrator.ErrPowerLost, time.Second)
	m.UpdateFinished(errors.Wrap(orchestrator.ErrCancelled, "context canceled"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("power_lost")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("cancelled")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.attempts))
}

func TestPhaseFinishedCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, nil)

	m.PhaseFinished(orchestrator.PhaseDownload, orchestrator.Outcome{Kind: orchestrator.Completed}, time.Second)
	m.PhaseFinished(orchestrator.PhaseDownload, orchestrator.Outcome{
		Kind: orchestrator.TimedOut,
		Err:  orchestrator.ErrDownloadTimeout,
	}, time.Second)
	m.PhaseFinished(orchestrator.PhaseInstall, orchestrator.Outcome{
		Kind: orchestrator.Failed,
		Err:  errors.WithMessage(orchestrator.ErrStartFailed, "exec: not found"),
	}, 0)

	assert.Equal(t, 2, testutil.CollectAndCount(m.phaseFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phaseFailures.WithLabelValues("download", "download_timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phaseFailures.WithLabelValues("install", "start_failed")))
}

func TestDeviceCollector(t *testing.T) {
	store := device.NewStore("m1", 3)
	require.NoError(t, store.Update(func(d *device.Device) error {
		d.State = device.Downloading
		return nil
	}))

	reg := prometheus.NewRegistry()
	New(reg, store)

	expected := `
# HELP fwwatch_device_state Current lifecycle state of the device, 1 for the active state
# TYPE fwwatch_device_state gauge
fwwatch_device_state{state="downgrading"} 0
fwwatch_device_state{state="downloading"} 1
fwwatch_device_state{state="idle"} 0
fwwatch_device_state{state="positioning"} 0
fwwatch_device_state{state="upgrading"} 0
# HELP fwwatch_device_version Installed firmware version of the device
# TYPE fwwatch_device_version gauge
fwwatch_device_version{device_type="m1"} 3
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fwwatch_device_state", "fwwatch_device_version")
	assert.NoError(t, err)
}
