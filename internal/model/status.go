package model

import "fmt"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
)

const (
	BatchNotStarted  = "not_started"
	BatchInProgress  = "in_progress"
	BatchCompleted   = "completed"
	BatchInterrupted = "interrupted"
)

// Outcome reasons recorded alongside a terminal job status.
const (
	ReasonDownloaded        = "downloaded"
	ReasonAlreadyComplete   = "already_complete"
	ReasonAuthRequired      = "auth_required"
	ReasonNotFound          = "not_found"
	ReasonNetwork           = "network"
	ReasonMissingDependency = "missing_dependency"
	ReasonPartial           = "partial"
	ReasonDownloadError     = "download_error"
	ReasonTimeout           = "timeout"
	ReasonInterrupted       = "interrupted"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	},
	StatusSucceeded: {},
	StatusFailed:    {},
	StatusTimedOut:  {},
}

var allowedBatchTransitions = map[string]map[string]bool{
	BatchNotStarted: {
		BatchInProgress: true,
	},
	BatchInProgress: {
		BatchCompleted:   true,
		BatchInterrupted: true,
	},
	BatchCompleted:   {},
	BatchInterrupted: {},
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func CanTransitionBatch(from, to string) bool {
	next, ok := allowedBatchTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// JobState tracks one playlist job through its lifecycle.
type JobState struct {
	Job    PlaylistJob
	Status string
}

func TransitionJobStatus(state *JobState, toStatus string) error {
	from := state.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (index=%d url=%s)", from, toStatus, state.Job.Index, state.Job.URL)
	}
	state.Status = toStatus
	return nil
}

func TransitionBatchState(report *RunReport, toState string) error {
	from := report.State
	if !CanTransitionBatch(from, toState) {
		return fmt.Errorf("invalid batch state transition: %q -> %q (run_id=%s)", from, toState, report.RunID)
	}
	report.State = toState
	return nil
}
