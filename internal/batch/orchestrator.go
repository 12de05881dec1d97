package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yt-playlist-recovery/internal/model"
	"yt-playlist-recovery/internal/runstore"
)

// ErrInterrupted is returned by Execute when ctx was cancelled before every
// job ran. The report returned alongside it is still finalized.
var ErrInterrupted = errors.New("batch interrupted")

type JobRunner interface {
	Run(ctx context.Context, job model.PlaylistJob, onProgress func(model.JobProgress)) model.JobOutcome
}

// Recorder is the durable run log.
type Recorder interface {
	Begin(report model.RunReport) error
	Record(job model.PlaylistJob, outcome model.JobOutcome) error
	Finalize(report model.RunReport) error
}

type Orchestrator struct {
	OutputDir string
	Runner    JobRunner
	Log       Recorder
	Observer  Observer
	MkdirAll  func(path string) error
	Now       func() time.Time
}

// Execute runs jobs one at a time in order. Individual job failures never
// stop the batch; only cancellation of ctx does.
func (o *Orchestrator) Execute(ctx context.Context, jobs []model.PlaylistJob) (model.RunReport, error) {
	if o.Runner == nil {
		return model.RunReport{}, fmt.Errorf("batch: job runner is required")
	}
	obs := o.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	mkdir := o.MkdirAll
	if mkdir == nil {
		mkdir = runstore.Mkdir
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}

	report := model.NewRunReport(now())
	if strings.TrimSpace(o.OutputDir) == "" {
		return report, fmt.Errorf("batch: output directory is required")
	}
	if err := mkdir(o.OutputDir); err != nil {
		return report, fmt.Errorf("prepare output directory: %w", err)
	}
	if err := model.TransitionBatchState(&report, model.BatchInProgress); err != nil {
		return report, err
	}

	warn := func(format string, args ...any) {
		obs.OnWarning(fmt.Sprintf(format, args...))
	}
	if o.Log != nil {
		if err := o.Log.Begin(report); err != nil {
			warn("log header not written: %v", err)
		}
	}
	obs.OnBatchStart(report, len(jobs))

	interrupted := false
	for _, job := range jobs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		state := model.JobState{Job: job}
		if err := model.TransitionJobStatus(&state, model.StatusPending); err != nil {
			return report, err
		}
		if err := model.TransitionJobStatus(&state, model.StatusRunning); err != nil {
			return report, err
		}
		obs.OnJobStart(job, len(jobs))

		outcome := o.Runner.Run(ctx, job, func(p model.JobProgress) {
			obs.OnJobProgress(job, p)
		})
		if !model.IsTerminalStatus(outcome.Status) {
			outcome = model.JobOutcome{
				Status:     model.StatusFailed,
				Reason:     model.ReasonDownloadError,
				Diagnostic: fmt.Sprintf("runner returned non-terminal status %q", outcome.Status),
				Title:      outcome.Title,
			}
		}
		if err := model.TransitionJobStatus(&state, outcome.Status); err != nil {
			return report, err
		}

		report.Append(job, outcome)
		if o.Log != nil {
			if err := o.Log.Record(job, outcome); err != nil {
				warn("log entry for %s not written: %v", job.URL, err)
			}
		}
		obs.OnJobDone(job, outcome)

		if outcome.Reason == model.ReasonInterrupted || ctx.Err() != nil {
			interrupted = true
			break
		}
	}

	final := model.BatchCompleted
	if interrupted {
		final = model.BatchInterrupted
	}
	report.FinishedAt = now()
	if err := model.TransitionBatchState(&report, final); err != nil {
		return report, err
	}
	if o.Log != nil {
		if err := o.Log.Finalize(report); err != nil {
			warn("log summary not written: %v", err)
		}
	}
	obs.OnBatchDone(report)

	if interrupted {
		return report, ErrInterrupted
	}
	return report, nil
}
