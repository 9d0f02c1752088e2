package script

import (
	"os/exec"
	"strconv"

	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/fieldunit/fwwatch/pkg/platform"
	"github.com/fieldunit/fwwatch/pkg/supervisor"
)

// Assert Platform as a platform implementor.
var _ platform.Platform = (*Platform)(nil)

// Platform downloads a well known install script with curl and runs it with
// sh from the work directory.
type Platform struct {
	log        logging.Logger
	url        string
	workDir    string
	deviceType string

	lookPath func(string) (string, error)
}

func New(log logging.Logger, url, workDir, deviceType string) *Platform {
	return &Platform{
		log:        log,
		url:        url,
		workDir:    workDir,
		deviceType: deviceType,
		lookPath:   exec.LookPath,
	}
}

// Status reports the tools that could not be found on PATH.
func (p *Platform) Status() (platform.Status, error) {
	p.log.Debug("querying status")
	var missing status
	for _, bin := range []string{CommandDownload, CommandInstall} {
		if _, err := p.lookPath(bin); err != nil {
			p.log.WithError(err).WithField("bin", bin).Warn("platform tool not found")
			missing = append(missing, bin)
		}
	}
	return missing, nil
}

func (p *Platform) DownloadCommand(target int) supervisor.Command {
	p.log.WithField("target", target).Debug("resolving download command")
	return supervisor.Command{
		Name: CommandDownload,
		Args: []string{"--fail", "--silent", "--show-error", "--location", "--output", ScriptName, p.url},
		Dir:  p.workDir,
	}
}

func (p *Platform) InstallCommand(target int) supervisor.Command {
	p.log.WithField("target", target).Debug("resolving install command")
	return supervisor.Command{
		Name: CommandInstall,
		Args: []string{ScriptName},
		Dir:  p.workDir,
		Env: []string{
			EnvTargetVersion + "=" + strconv.Itoa(target),
			EnvDeviceType + "=" + p.deviceType,
		},
	}
}

type status []string

func (s status) OK() bool          { return len(s) == 0 }
func (s status) Missing() []string { return s }
