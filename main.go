package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/fieldunit/fwwatch/pkg/config"
	"github.com/fieldunit/fwwatch/pkg/controller"
	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/fieldunit/fwwatch/pkg/metrics"
	"github.com/fieldunit/fwwatch/pkg/orchestrator"
	"github.com/fieldunit/fwwatch/pkg/platform/script"
	"github.com/fieldunit/fwwatch/pkg/probe"
	"github.com/fieldunit/fwwatch/pkg/server"
	"github.com/fieldunit/fwwatch/pkg/sigcontext"
	"github.com/fieldunit/fwwatch/pkg/supervisor"
	"github.com/fieldunit/fwwatch/pkg/workgroup"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"FWWATCH_CONFIG"},
	},
	&cli.BoolFlag{
		Name:  "debug",
		Usage: "log at debug level",
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "write logs to a rotated file instead of the console",
		EnvVars: []string{"FWWATCH_LOG_FILE"},
	},
	&cli.StringFlag{
		Name:    "listen",
		Usage:   "status api listen address",
		EnvVars: []string{"FWWATCH_LISTEN"},
	},
	&cli.IntFlag{
		Name:    "initial-version",
		Usage:   "firmware version installed at startup",
		EnvVars: []string{"INITIAL_VERSION"},
	},
	&cli.StringFlag{
		Name:    "device-type",
		Usage:   "device type passed to the install script",
		EnvVars: []string{"DUT"},
	},
	&cli.StringFlag{
		Name:    "work-dir",
		Usage:   "directory the install script is downloaded to",
		EnvVars: []string{"FWWATCH_WORK_DIR"},
	},
}

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "fwwatch",
		Usage: "supervise firmware updates of a field unit",
		Flags: flags,
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				if err := logging.Set(logging.Level("debug")); err != nil {
					return errors.WithMessage(err, "unable to set log level")
				}
			}
			if err := logging.Set(logging.File(c.String("log-file"))); err != nil {
				return errors.WithMessage(err, "unable to configure log output")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the controller and its status api",
				Action: runAction,
			},
			{
				Name:   "check",
				Usage:  "verify the update tooling and probe the environment once",
				Action: checkAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.New("main").WithError(err).Fatal("fwwatch stopped")
	}
}

// loadConfig layers the config file and then flags over the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("initial-version") {
		cfg.InitialVersion = c.Int("initial-version")
	}
	if c.IsSet("device-type") {
		cfg.DeviceType = c.String("device-type")
	}
	if c.IsSet("work-dir") {
		cfg.WorkDir = c.String("work-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	return cfg, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logging.New("main")

	// "debuggable" builds trace every supervised command and its output.
	if logging.Debuggable {
		log.Info("low-level logging.Debuggable is enabled in this build")
		log.Warn("logging.Debuggable produces large volumes of logs")
	}

	ctx, cancel := sigcontext.WithSignalCancel(c.Context, func(sig os.Signal) {
		log.WithField("signal", sig).Info("received signal, shutting down")
	}, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := device.NewStore(cfg.DeviceType, cfg.InitialVersion)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, store)

	orch, err := orchestrator.New(logging.New("orchestrator"), cfg.Timings(), orchestrator.Deps{
		Store:        store,
		Platform:     script.New(logging.New("platform"), cfg.DownloadURL, cfg.WorkDir, cfg.DeviceType),
		Supervisor:   supervisor.New(logging.New("supervisor"), cfg.TerminateGrace),
		Connectivity: probe.NewHTTP(logging.New("probe"), cfg.ConnectivityURL, cfg.ConnectivityTimeout),
		Power:        probe.NewUPower(logging.New("probe")),
		Observer:     m,
	})
	if err != nil {
		return errors.WithMessage(err, "initialization error")
	}
	ctl, err := controller.New(ctx, logging.New("controller"), store, orch, m)
	if err != nil {
		return errors.WithMessage(err, "initialization error")
	}
	defer ctl.Close()

	log.WithField("device", store.Snapshot()).Info("starting")
	group := workgroup.WithContext(ctx)
	group.Work(func(ctx context.Context) error {
		return server.New(logging.New("server"), ctl, reg).Run(ctx, cfg.ListenAddr)
	})

	notify(log, daemon.SdNotifyReady)

	<-group.Context().Done()
	log.Info("waiting on workers to finish")
	notify(log, daemon.SdNotifyStopping)

	// The status api reads the controller until it has shut down.
	err = group.Wait()
	start := time.Now()
	ctl.Close()
	log.WithField("elapsed", time.Since(start)).Debug("update tasks stopped")
	return errors.WithMessage(err, "run error")
}

// notify sends state to systemd when running under it.
func notify(log logging.Logger, state string) {
	ok, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		log.WithError(err).WithField("state", state).Warn("unable to notify systemd")
	case ok:
		log.WithField("state", state).Debug("notified systemd")
	}
}
