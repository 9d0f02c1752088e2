package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 600*time.Second, c.MaxInstallTime)
	assert.Equal(t, 300*time.Second, c.MaxDownloadTime)
	assert.Equal(t, 600*time.Second, c.MaxWaitForIdle)
	assert.Equal(t, 100*time.Millisecond, c.PollingInterval)
	assert.Equal(t, 5*time.Second, c.ConnectivityTimeout)
	assert.NoError(t, c.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	raw := []byte(`
max_download_time = "30s"
polling_interval = "250ms"
device_type = "scanner"
initial_version = 2
`)
	c, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.MaxDownloadTime)
	assert.Equal(t, 250*time.Millisecond, c.PollingInterval)
	assert.Equal(t, "scanner", c.DeviceType)
	assert.Equal(t, 2, c.InitialVersion)
	// untouched keys keep defaults
	assert.Equal(t, DefaultMaxInstallTime, c.MaxInstallTime)
	assert.Equal(t, DefaultDownloadURL, c.DownloadURL)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad duration", `max_install_time = "soon"`},
		{"bad toml", `max_install_time = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwwatch.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`max_wait_for_idle = "1m"`), 0600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, c.MaxWaitForIdle)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero poll", func(c *Config) { c.PollingInterval = 0 }, "polling_interval"},
		{"negative version", func(c *Config) { c.InitialVersion = -1 }, "initial version"},
		{"relative url", func(c *Config) { c.DownloadURL = "install.sh" }, "download_url"},
		{"empty work dir", func(c *Config) { c.WorkDir = "" }, "work_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
