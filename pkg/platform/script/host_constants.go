package script

type hostCommand = string

const (
	// CommandDownload fetches the install script.
	CommandDownload hostCommand = "curl"
	// CommandInstall runs the install script.
	CommandInstall hostCommand = "sh"
)

const (
	// ScriptName is the local file name of the downloaded install script.
	ScriptName = "install.sh"

	// EnvTargetVersion carries the requested version to the install script.
	EnvTargetVersion = "TARGET_VERSION"
	// EnvDeviceType carries the device type identifier to the install script.
	EnvDeviceType = "DUT"
)
