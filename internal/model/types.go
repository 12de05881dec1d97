package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaylistJob is one line of the playlist list, in file order.
type PlaylistJob struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

type JobOutcome struct {
	Status          string        `json:"status"`
	Reason          string        `json:"reason,omitempty"`
	Diagnostic      string        `json:"diagnostic,omitempty"`
	Title           string        `json:"title,omitempty"`
	Folder          string        `json:"folder,omitempty"`
	VideosTotal     int           `json:"videos_total,omitempty"`
	VideosDone      int           `json:"videos_done,omitempty"`
	AlreadyComplete bool          `json:"already_complete,omitempty"`
	Elapsed         time.Duration `json:"elapsed_ns,omitempty"`
}

// DisplayName is the resolved playlist title, or the job URL when none was resolved.
func (o JobOutcome) DisplayName(job PlaylistJob) string {
	if t := strings.TrimSpace(o.Title); t != "" {
		return t
	}
	return job.URL
}

// JobProgress is a presentation-only snapshot of a running job.
type JobProgress struct {
	Phase       string
	Title       string
	VideoTitle  string
	VideoIndex  int
	VideosTotal int
	Percent     string
	Speed       string
	ETA         string
}

type ReportEntry struct {
	Job     PlaylistJob `json:"job"`
	Outcome JobOutcome  `json:"outcome"`
}

// RunReport is the ordered record of one batch run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	State      string        `json:"state"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	TimedOut   int           `json:"timed_out"`
	Entries    []ReportEntry `json:"entries"`
}

func NewRunReport(now time.Time) RunReport {
	return RunReport{
		RunID:     uuid.NewString(),
		CreatedAt: now,
		State:     BatchNotStarted,
		Entries:   []ReportEntry{},
	}
}

func (r *RunReport) Append(job PlaylistJob, outcome JobOutcome) {
	r.Entries = append(r.Entries, ReportEntry{Job: job, Outcome: outcome})
	r.recomputeCounts()
}

// FailedForSummary counts timeouts as failures.
func (r RunReport) FailedForSummary() int {
	return r.Failed + r.TimedOut
}

func (r RunReport) FailedEntries() []ReportEntry {
	out := make([]ReportEntry, 0, r.FailedForSummary())
	for _, e := range r.Entries {
		if e.Outcome.Status != StatusSucceeded {
			out = append(out, e)
		}
	}
	return out
}

func (r *RunReport) recomputeCounts() {
	succeeded := 0
	failed := 0
	timedOut := 0
	for _, e := range r.Entries {
		switch e.Outcome.Status {
		case StatusSucceeded:
			succeeded++
		case StatusTimedOut:
			timedOut++
		default:
			failed++
		}
	}
	r.Total = len(r.Entries)
	r.Succeeded = succeeded
	r.Failed = failed
	r.TimedOut = timedOut
}
