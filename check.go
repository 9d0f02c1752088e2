package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/fieldunit/fwwatch/pkg/platform"
	"github.com/fieldunit/fwwatch/pkg/platform/script"
	"github.com/fieldunit/fwwatch/pkg/probe"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func checkAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logging.New("check")
	ctx := c.Context

	plat := script.New(logging.New("platform"), cfg.DownloadURL, cfg.WorkDir, cfg.DeviceType)
	if err := platform.Ping(plat); err != nil {
		return errors.WithMessage(err, "update tooling unusable")
	}
	log.Info("update tooling found")

	log.WithFields(logrus.Fields{
		"connected": probe.NewHTTP(logging.New("probe"), cfg.ConnectivityURL, cfg.ConnectivityTimeout).IsConnected(ctx),
		"powered":   probe.NewUPower(logging.New("probe")).IsPowered(ctx),
	}).Info("probed environment")

	stale, err := installProcesses(ctx, script.ScriptName)
	if err != nil {
		log.WithError(err).Warn("unable to list processes")
		return nil
	}
	for _, p := range stale {
		log.WithField("pid", p).Warn("install script is already running")
	}
	if len(stale) > 0 {
		return errors.Errorf("%d install processes already running", len(stale))
	}
	return nil
}

// installProcesses finds running processes executing the install script.
func installProcesses(ctx context.Context, scriptName string) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var pids []int32
	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			// exited or not ours to inspect
			continue
		}
		for _, arg := range args {
			if filepath.Base(strings.TrimSpace(arg)) == scriptName {
				pids = append(pids, p.Pid)
				break
			}
		}
	}
	return pids, nil
}
