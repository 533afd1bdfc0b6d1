package portal

// What a front end should show for a state. Derived, never stored.
type View struct {
	Message          string
	Error            string
	DownloadFilename string
	Phase            Phase
	Progress         int
	DownloadSize     int
	SubmitEnabled    bool
	ShowProgress     bool
	ShowDownload     bool
}

// Maps a state and the standing selection error onto a View. ready is
// whether both artifacts are selected.
func Present(s State, selectionErr error, ready bool) View {
	v := View{Phase: s.Phase}

	switch s.Phase {
	case PhaseIdle:
		v.SubmitEnabled = ready
		if selectionErr != nil {
			v.Error = selectionErr.Error()
		}
	case PhaseUploading:
		v.ShowProgress = true
		v.Progress = s.Progress
	case PhaseSucceeded:
		v.SubmitEnabled = ready
		v.Message = s.Message
		if s.Report != nil {
			v.ShowDownload = true
			v.DownloadFilename = s.Report.Filename
			v.DownloadSize = len(s.Report.Data)
		}
	case PhaseFailed:
		v.SubmitEnabled = ready
		v.Error = s.ErrorMessage()
	}

	return v
}
