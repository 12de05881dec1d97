package batch

import "yt-playlist-recovery/internal/model"

// Observer receives batch events for presentation. Implementations must be
// safe for concurrent use: OnJobProgress may arrive from downloader goroutines.
type Observer interface {
	OnBatchStart(report model.RunReport, total int)
	OnJobStart(job model.PlaylistJob, total int)
	OnJobProgress(job model.PlaylistJob, p model.JobProgress)
	OnJobDone(job model.PlaylistJob, outcome model.JobOutcome)
	OnWarning(msg string)
	OnBatchDone(report model.RunReport)
}

type NopObserver struct{}

func (NopObserver) OnBatchStart(model.RunReport, int)                  {}
func (NopObserver) OnJobStart(model.PlaylistJob, int)                  {}
func (NopObserver) OnJobProgress(model.PlaylistJob, model.JobProgress) {}
func (NopObserver) OnJobDone(model.PlaylistJob, model.JobOutcome)      {}
func (NopObserver) OnWarning(string)                                   {}
func (NopObserver) OnBatchDone(model.RunReport)                        {}
