package config

import (
	"io/ioutil"
	"net/url"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	DefaultMaxInstallTime      = 10 * time.Minute
	DefaultMaxDownloadTime     = 5 * time.Minute
	DefaultMaxWaitForIdle      = 10 * time.Minute
	DefaultPollingInterval     = 100 * time.Millisecond
	DefaultTerminateGrace      = 10 * time.Second
	DefaultConnectivityTimeout = 5 * time.Second

	DefaultConnectivityURL = "https://www.google.com"
	DefaultDownloadURL     = "https://raw.githubusercontent.com/MattiaHaas/sevensense/refs/heads/main/images/install.sh"
	DefaultListenAddr      = "127.0.0.1:8787"
)

// Config is fixed at startup and shared read-only by every component.
type Config struct {
	// MaxInstallTime bounds the install phase.
	MaxInstallTime time.Duration
	// MaxDownloadTime bounds the download phase.
	MaxDownloadTime time.Duration
	// MaxWaitForIdle bounds admission of an update request.
	MaxWaitForIdle time.Duration
	// PollingInterval is the tick of every supervision loop.
	PollingInterval time.Duration
	// TerminateGrace is how long a terminated command may take to exit after
	// SIGTERM before it is killed.
	TerminateGrace time.Duration

	ConnectivityURL     string
	ConnectivityTimeout time.Duration
	DownloadURL         string
	WorkDir             string

	InitialVersion int
	DeviceType     string

	ListenAddr string
}

// Timings are the durations consumed by the orchestrator.
type Timings struct {
	MaxInstallTime  time.Duration
	MaxDownloadTime time.Duration
	MaxWaitForIdle  time.Duration
	PollingInterval time.Duration
}

func Default() *Config {
	return &Config{
		MaxInstallTime:      DefaultMaxInstallTime,
		MaxDownloadTime:     DefaultMaxDownloadTime,
		MaxWaitForIdle:      DefaultMaxWaitForIdle,
		PollingInterval:     DefaultPollingInterval,
		TerminateGrace:      DefaultTerminateGrace,
		ConnectivityURL:     DefaultConnectivityURL,
		ConnectivityTimeout: DefaultConnectivityTimeout,
		DownloadURL:         DefaultDownloadURL,
		WorkDir:             ".",
		ListenAddr:          DefaultListenAddr,
	}
}

func (c *Config) Timings() Timings {
	return Timings{
		MaxInstallTime:  c.MaxInstallTime,
		MaxDownloadTime: c.MaxDownloadTime,
		MaxWaitForIdle:  c.MaxWaitForIdle,
		PollingInterval: c.PollingInterval,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"max_install_time", c.MaxInstallTime},
		{"max_download_time", c.MaxDownloadTime},
		{"max_wait_for_idle", c.MaxWaitForIdle},
		{"polling_interval", c.PollingInterval},
		{"terminate_grace", c.TerminateGrace},
		{"connectivity_timeout", c.ConnectivityTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return errors.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.InitialVersion < 0 {
		return errors.Errorf("initial version must not be negative, got %d", c.InitialVersion)
	}
	for name, raw := range map[string]string{
		"connectivity_url": c.ConnectivityURL,
		"download_url":     c.DownloadURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "parse %s", name)
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.WorkDir == "" {
		return errors.New("work_dir must be set")
	}
	return nil
}

// file is the on-disk shape; durations are written as Go duration strings.
type file struct {
	MaxInstallTime      string `toml:"max_install_time"`
	MaxDownloadTime     string `toml:"max_download_time"`
	MaxWaitForIdle      string `toml:"max_wait_for_idle"`
	PollingInterval     string `toml:"polling_interval"`
	TerminateGrace      string `toml:"terminate_grace"`
	ConnectivityURL     string `toml:"connectivity_url"`
	ConnectivityTimeout string `toml:"connectivity_timeout"`
	DownloadURL         string `toml:"download_url"`
	WorkDir             string `toml:"work_dir"`
	ListenAddr          string `toml:"listen_addr"`
	InitialVersion      *int   `toml:"initial_version"`
	DeviceType          string `toml:"device_type"`
}

// LoadFile reads a TOML configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return Parse(raw)
}

// Parse decodes TOML configuration over the defaults. Unset keys keep their
// default value.
func Parse(raw []byte) (*Config, error) {
	var f file
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	c := Default()
	durations := []struct {
		name string
		raw  string
		into *time.Duration
	}{
		{"max_install_time", f.MaxInstallTime, &c.MaxInstallTime},
		{"max_download_time", f.MaxDownloadTime, &c.MaxDownloadTime},
		{"max_wait_for_idle", f.MaxWaitForIdle, &c.MaxWaitForIdle},
		{"polling_interval", f.PollingInterval, &c.PollingInterval},
		{"terminate_grace", f.TerminateGrace, &c.TerminateGrace},
		{"connectivity_timeout", f.ConnectivityTimeout, &c.ConnectivityTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", d.name)
		}
		*d.into = v
	}

	setString(&c.ConnectivityURL, f.ConnectivityURL)
	setString(&c.DownloadURL, f.DownloadURL)
	setString(&c.WorkDir, f.WorkDir)
	setString(&c.ListenAddr, f.ListenAddr)
	setString(&c.DeviceType, f.DeviceType)
	if f.InitialVersion != nil {
		c.InitialVersion = *f.InitialVersion
	}
	return c, nil
}

func setString(into *string, v string) {
	if v != "" {
		*into = v
	}
}
