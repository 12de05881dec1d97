package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"yt-playlist-recovery/internal/model"
	"yt-playlist-recovery/internal/ytdlp"
)

// Completion is what the ledger remembers about a fully downloaded playlist.
type Completion struct {
	URL         string
	Title       string
	Folder      string
	VideoCount  int
	CompletedAt time.Time
}

type Ledger interface {
	Lookup(url string) (Completion, bool, error)
	MarkComplete(c Completion) error
}

type Options struct {
	OutputDir    string
	CookiesPath  string
	Quality      string
	JobTimeout   time.Duration
	ProbeTimeout time.Duration
	KillGrace    time.Duration

	Downloader Downloader
	Fallback   FallbackProber
	Ledger     Ledger
	// Warn receives non-fatal problems such as ledger write failures.
	Warn func(msg string)
	Now  func() time.Time
}

type Runner struct {
	opts Options
}

func New(opts Options) (*Runner, error) {
	if opts.Downloader == nil {
		return nil, fmt.Errorf("runner: downloader is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("runner: output directory is required")
	}
	if opts.JobTimeout <= 0 {
		return nil, fmt.Errorf("runner: job timeout must be positive")
	}
	if opts.ProbeTimeout <= 0 || opts.ProbeTimeout > opts.JobTimeout {
		opts.ProbeTimeout = opts.JobTimeout
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Warn == nil {
		opts.Warn = func(string) {}
	}
	return &Runner{opts: opts}, nil
}

// attemptState is shared between the runner and a download attempt so a
// timed-out job can still report what had been resolved.
type attemptState struct {
	mu     sync.Mutex
	title  string
	folder string
	total  int
}

func (s *attemptState) set(title, folder string, total int) {
	s.mu.Lock()
	s.title, s.folder, s.total = title, folder, total
	s.mu.Unlock()
}

func (s *attemptState) get() (string, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.folder, s.total
}

type attemptResult struct {
	outcome model.JobOutcome
	err     error
}

// Run executes one playlist job and always returns a terminal outcome.
// onProgress may be nil and may be called from other goroutines.
func (r *Runner) Run(ctx context.Context, job model.PlaylistJob, onProgress func(model.JobProgress)) model.JobOutcome {
	start := r.opts.Now()
	// An abandoned attempt may keep reporting after Run returns; those
	// updates belong to a finished job and are dropped.
	var emitMu sync.Mutex
	returned := false
	emit := func(p model.JobProgress) {
		if onProgress == nil {
			return
		}
		emitMu.Lock()
		defer emitMu.Unlock()
		if !returned {
			onProgress(p)
		}
	}
	defer func() {
		emitMu.Lock()
		returned = true
		emitMu.Unlock()
	}()

	if out, ok := r.alreadyComplete(job); ok {
		out.Elapsed = r.opts.Now().Sub(start)
		return out
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.opts.JobTimeout)
	defer cancel()

	state := &attemptState{}
	done := make(chan attemptResult, 1)
	go func() {
		out, err := r.attempt(jobCtx, job, state, emit)
		done <- attemptResult{outcome: out, err: err}
	}()

	var out model.JobOutcome
	select {
	case res := <-done:
		if res.err != nil && ytdlp.IsContextError(res.err) {
			out = r.abandonedOutcome(ctx, state)
		} else {
			out = res.outcome
		}
	case <-jobCtx.Done():
		grace := time.NewTimer(r.opts.KillGrace)
		select {
		case <-done:
		case <-grace.C:
			r.opts.Warn(fmt.Sprintf("downloader for %s did not stop within %s; abandoning it", job.URL, r.opts.KillGrace))
		}
		grace.Stop()
		out = r.abandonedOutcome(ctx, state)
	}
	out.Elapsed = r.opts.Now().Sub(start)
	return out
}

func (r *Runner) alreadyComplete(job model.PlaylistJob) (model.JobOutcome, bool) {
	if r.opts.Ledger == nil {
		return model.JobOutcome{}, false
	}
	c, ok, err := r.opts.Ledger.Lookup(job.URL)
	if err != nil {
		r.opts.Warn(fmt.Sprintf("completion ledger lookup for %s: %v", job.URL, err))
		return model.JobOutcome{}, false
	}
	if !ok || c.VideoCount <= 0 {
		return model.JobOutcome{}, false
	}
	have, err := countCompleteMedia(c.Folder)
	if err != nil || have < c.VideoCount {
		return model.JobOutcome{}, false
	}
	return model.JobOutcome{
		Status:          model.StatusSucceeded,
		Reason:          model.ReasonAlreadyComplete,
		Title:           c.Title,
		Folder:          c.Folder,
		VideosTotal:     c.VideoCount,
		VideosDone:      have,
		AlreadyComplete: true,
	}, true
}

// abandonedOutcome describes a job whose context ended before the downloader
// finished: a timeout when the batch is still live, an interruption otherwise.
func (r *Runner) abandonedOutcome(parent context.Context, state *attemptState) model.JobOutcome {
	title, folder, total := state.get()
	doneCount, _ := countCompleteMedia(folder)
	out := model.JobOutcome{
		Title:       title,
		Folder:      folder,
		VideosTotal: total,
		VideosDone:  doneCount,
	}
	if parent.Err() != nil {
		out.Status = model.StatusFailed
		out.Reason = model.ReasonInterrupted
		out.Diagnostic = "interrupted by operator"
		return out
	}
	out.Status = model.StatusTimedOut
	out.Reason = model.ReasonTimeout
	out.Diagnostic = fmt.Sprintf("timed out after %s", r.opts.JobTimeout)
	return out
}

func (r *Runner) attempt(ctx context.Context, job model.PlaylistJob, state *attemptState, emit func(model.JobProgress)) (model.JobOutcome, error) {
	emit(model.JobProgress{Phase: "probing"})

	info, err := r.probe(ctx, job)
	if err != nil && ctx.Err() != nil {
		return model.JobOutcome{}, ctx.Err()
	}

	folder := filepath.Join(r.opts.OutputDir, FolderName(info.Title, job.URL))
	state.set(info.Title, folder, info.Count)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return model.JobOutcome{
			Status:      model.StatusFailed,
			Reason:      model.ReasonDownloadError,
			Diagnostic:  fmt.Sprintf("create playlist folder: %v", err),
			Title:       info.Title,
			Folder:      folder,
			VideosTotal: info.Count,
		}, nil
	}

	emit(model.JobProgress{Phase: "downloading", Title: info.Title, VideosTotal: info.Count})

	tracker := ytdlp.NewProgressTracker()
	dlErr := r.opts.Downloader.Download(ctx, DownloadRequest{
		URL:         job.URL,
		Folder:      folder,
		CookiesPath: r.opts.CookiesPath,
		Quality:     r.opts.Quality,
		OnLine: func(stream ytdlp.OutputStream, line string) {
			if !tracker.Handle(stream, line) {
				return
			}
			emit(progressFromSnapshot(tracker.Snapshot(), info))
		},
	})
	if dlErr != nil && ctx.Err() != nil {
		return model.JobOutcome{}, ctx.Err()
	}

	snap := tracker.Snapshot()
	title := info.Title
	if title == "" {
		title = snap.PlaylistTitle
	}
	total := info.Count
	if total == 0 {
		total = snap.VideosTotal
	}
	state.set(title, folder, total)

	have, countErr := countCompleteMedia(folder)
	if countErr != nil {
		r.opts.Warn(fmt.Sprintf("count files in %s: %v", folder, countErr))
	}

	out := model.JobOutcome{
		Title:       title,
		Folder:      folder,
		VideosTotal: total,
		VideosDone:  have,
	}
	if dlErr != nil {
		out.Status = model.StatusFailed
		out.Reason, out.Diagnostic = classifyFailure(dlErr, have)
		return out, nil
	}

	out.Status = model.StatusSucceeded
	out.Reason = model.ReasonDownloaded
	if total > 0 && have >= total {
		r.recordComplete(job, out)
	}
	return out, nil
}

// probe resolves title and count. Failure is not fatal to the job: the
// result is simply empty and the download still runs.
func (r *Runner) probe(ctx context.Context, job model.PlaylistJob) (ytdlp.PlaylistInfo, error) {
	probeCtx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
	defer cancel()

	info, err := r.opts.Downloader.Probe(probeCtx, ProbeRequest{URL: job.URL, CookiesPath: r.opts.CookiesPath})
	if err == nil {
		return info, nil
	}
	if ctx.Err() != nil {
		return ytdlp.PlaylistInfo{}, err
	}
	r.opts.Warn(fmt.Sprintf("metadata probe for %s failed: %s", job.URL, firstLine(err.Error())))

	if r.opts.Fallback == nil || ytdlp.PlaylistIDFromURL(job.URL) == "" {
		return ytdlp.PlaylistInfo{}, err
	}
	fbCtx, fbCancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
	defer fbCancel()
	fb, fbErr := r.opts.Fallback.ProbePlaylist(fbCtx, job.URL)
	if fbErr != nil {
		return ytdlp.PlaylistInfo{}, errors.Join(err, fbErr)
	}
	return fb, nil
}

func (r *Runner) recordComplete(job model.PlaylistJob, out model.JobOutcome) {
	if r.opts.Ledger == nil {
		return
	}
	err := r.opts.Ledger.MarkComplete(Completion{
		URL:         job.URL,
		Title:       out.Title,
		Folder:      out.Folder,
		VideoCount:  out.VideosTotal,
		CompletedAt: r.opts.Now().UTC(),
	})
	if err != nil {
		r.opts.Warn(fmt.Sprintf("record %s as complete: %v", job.URL, err))
	}
}

func classifyFailure(err error, have int) (string, string) {
	text := err.Error()
	var cmdErr *ytdlp.CommandError
	if errors.As(err, &cmdErr) {
		if errText := cmdErr.ErrorText(); errText != "" {
			text = errText
		}
	}
	diag := truncateRunes(ytdlp.FirstErrorLine(text), 500)

	kind := ytdlp.Classify(text)
	if kind == ytdlp.FailureDependency {
		return model.ReasonMissingDependency, diag
	}
	if have > 0 {
		return model.ReasonPartial, diag
	}
	switch kind {
	case ytdlp.FailureAuth:
		return model.ReasonAuthRequired, diag
	case ytdlp.FailureNotFound:
		return model.ReasonNotFound, diag
	case ytdlp.FailureNetwork:
		return model.ReasonNetwork, diag
	default:
		return model.ReasonDownloadError, diag
	}
}

func progressFromSnapshot(s ytdlp.Progress, info ytdlp.PlaylistInfo) model.JobProgress {
	title := info.Title
	if title == "" {
		title = s.PlaylistTitle
	}
	total := s.VideosTotal
	if total == 0 {
		total = info.Count
	}
	p := model.JobProgress{
		Phase:       s.Phase,
		Title:       title,
		VideoTitle:  s.VideoTitle,
		VideoIndex:  s.VideoIndex,
		VideosTotal: total,
		Speed:       s.Speed,
		ETA:         s.ETA,
	}
	if s.Percent > 0 {
		p.Percent = fmt.Sprintf("%.1f%%", s.Percent)
	}
	return p
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
