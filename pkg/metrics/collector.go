package metrics

import (
	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	versionDesc = prometheus.NewDesc(
		"fwwatch_device_version",
		"Installed firmware version of the device",
		[]string{"device_type"}, nil,
	)
	stateDesc = prometheus.NewDesc(
		"fwwatch_device_state",
		"Current lifecycle state of the device, 1 for the active state",
		[]string{"state"}, nil,
	)
)

// deviceCollector reads a fresh snapshot on every scrape.
type deviceCollector struct {
	store *device.Store
}

func newDeviceCollector(store *device.Store) *deviceCollector {
	return &deviceCollector{store: store}
}

func (c *deviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- versionDesc
	ch <- stateDesc
}

func (c *deviceCollector) Collect(ch chan<- prometheus.Metric) {
	d := c.store.Snapshot()
	ch <- prometheus.MustNewConstMetric(versionDesc, prometheus.GaugeValue, float64(d.Version), d.Type)
	for _, s := range device.States() {
		v := 0.0
		if s == d.State {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, v, s.String())
	}
}
