package batch

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"yt-playlist-recovery/internal/model"
)

// LineObserver prints plain progress lines, suitable for pipes and log capture.
type LineObserver struct {
	Out      io.Writer
	Err      io.Writer
	Interval time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	lastPrint time.Time
	lastVideo int
	announced bool
	total     int
}

func NewLineObserver(out, errOut io.Writer) *LineObserver {
	return &LineObserver{Out: out, Err: errOut, Interval: 2 * time.Second, Now: time.Now}
}

func (l *LineObserver) OnBatchStart(report model.RunReport, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	fmt.Fprintf(l.Out, "Processing %d playlists (run %s)\n", total, report.RunID)
}

func (l *LineObserver) OnJobStart(job model.PlaylistJob, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	l.lastPrint = time.Time{}
	l.lastVideo = 0
	l.announced = false
	fmt.Fprintf(l.Out, "\n[%d/%d] Processing: %s\n", job.Index, total, job.URL)
}

func (l *LineObserver) OnJobProgress(job model.PlaylistJob, p model.JobProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.Phase == "probing" {
		fmt.Fprintln(l.Out, "Fetching playlist metadata...")
		return
	}
	if !l.announced && p.Phase == "downloading" {
		l.announced = true
		title := strings.TrimSpace(p.Title)
		switch {
		case title != "" && p.VideosTotal > 0:
			fmt.Fprintf(l.Out, "Playlist: %q (%d videos)\n", title, p.VideosTotal)
		case title != "":
			fmt.Fprintf(l.Out, "Playlist: %q\n", title)
		}
	}
	if p.VideoIndex == 0 {
		return
	}

	now := l.now()
	if p.VideoIndex == l.lastVideo && now.Sub(l.lastPrint) < l.Interval {
		return
	}
	l.lastVideo = p.VideoIndex
	l.lastPrint = now

	parts := []string{fmt.Sprintf("[%d/%d]", job.Index, l.total)}
	if t := strings.TrimSpace(p.Title); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, fmt.Sprintf("video %d/%d", p.VideoIndex, p.VideosTotal))
	if vt := strings.TrimSpace(p.VideoTitle); vt != "" {
		parts = append(parts, vt)
	}
	if p.Percent != "" {
		parts = append(parts, p.Percent)
	}
	if p.Speed != "" {
		parts = append(parts, p.Speed)
	}
	if p.ETA != "" {
		parts = append(parts, "ETA "+p.ETA)
	}
	fmt.Fprintln(l.Out, strings.Join(parts, "  "))
}

func (l *LineObserver) OnJobDone(job model.PlaylistJob, o model.JobOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.Out, outcomeLine(o))
}

func (l *LineObserver) OnWarning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.Err
	if w == nil {
		w = l.Out
	}
	fmt.Fprintf(w, "warning: %s\n", msg)
}

func (l *LineObserver) OnBatchDone(report model.RunReport) {}

func (l *LineObserver) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// outcomeLine is the short console form of an outcome.
func outcomeLine(o model.JobOutcome) string {
	switch o.Status {
	case model.StatusSucceeded:
		switch {
		case o.AlreadyComplete:
			return fmt.Sprintf("✓ Already complete (%d videos)", o.VideosDone)
		case o.VideosTotal > 0 && o.VideosDone < o.VideosTotal:
			return fmt.Sprintf("✓ Playlist downloaded (%d/%d videos, %d skipped)", o.VideosDone, o.VideosTotal, o.VideosTotal-o.VideosDone)
		case o.VideosTotal > 0:
			return fmt.Sprintf("✓ Playlist downloaded (%d/%d videos)", o.VideosDone, o.VideosTotal)
		default:
			return "✓ Playlist downloaded"
		}
	case model.StatusTimedOut:
		return fmt.Sprintf("⏱ %s (%d videos saved, partial files kept for resume)", o.Diagnostic, o.VideosDone)
	default:
		if d := strings.TrimSpace(o.Diagnostic); d != "" {
			return fmt.Sprintf("✗ Playlist was not able to download [%s]: %s", o.Reason, d)
		}
		return fmt.Sprintf("✗ Playlist was not able to download [%s]", o.Reason)
	}
}
