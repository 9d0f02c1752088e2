package orchestrator

// Phase is one of the two sequential stages of an update.
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseInstall  Phase = "install"
)

// OutcomeKind classifies how a phase ended.
type OutcomeKind int

const (
	Completed OutcomeKind = iota
	Failed
	TimedOut
	Aborted
)

func (k OutcomeKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Outcome is the transient result of a phase. Only the terminal update result
// is ever stored on the device.
type Outcome struct {
	Kind OutcomeKind
	// Err is the reason for anything but Completed.
	Err error
}

func (o Outcome) OK() bool {
	return o.Kind == Completed
}
