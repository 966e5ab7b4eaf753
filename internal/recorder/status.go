package recorder

// Status is the externally observable state of one recording attempt.
//
// State machine:
//
//	Checking → {NotLive, Recording}
//	Recording → {StoppedManually, EndedNaturally, ToolMissing, ProcessError}
//
// Everything on the right-hand side is terminal for the attempt.
type Status int32

const (
	StatusChecking Status = iota
	StatusNotLive
	StatusRecording
	StatusStoppedManually
	StatusEndedNaturally
	StatusToolMissing
	StatusProcessError
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "Checking"
	case StatusNotLive:
		return "NotLive"
	case StatusRecording:
		return "Recording"
	case StatusStoppedManually:
		return "StoppedManually"
	case StatusEndedNaturally:
		return "EndedNaturally"
	case StatusToolMissing:
		return "ToolMissing"
	case StatusProcessError:
		return "ProcessError"
	default:
		return "Unknown"
	}
}

// Color maps the status to its display severity.
func (s Status) Color() string {
	switch s {
	case StatusChecking:
		return "orange"
	case StatusNotLive:
		return "yellow"
	case StatusRecording:
		return "green"
	case StatusStoppedManually, StatusEndedNaturally:
		return "gray"
	case StatusToolMissing, StatusProcessError:
		return "red"
	default:
		return "gray"
	}
}

// Terminal reports whether the attempt has finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusChecking, StatusRecording:
		return false
	default:
		return true
	}
}
