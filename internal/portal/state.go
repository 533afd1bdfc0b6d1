package portal

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Report struct {
	Filename string
	Data     []byte
}

// Snapshot of the submission state machine. Which fields are meaningful
// depends on Phase: Progress while uploading, Report and Message on
// success, Err on failure.
type State struct {
	Err      error
	Report   *Report
	Message  string
	Phase    Phase
	Progress int
}

func (s State) ErrorMessage() string {
	if s.Phase != PhaseFailed || s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
