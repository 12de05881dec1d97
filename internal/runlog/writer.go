package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yt-playlist-recovery/internal/model"
)

const (
	SymbolSucceeded = "✓"
	SymbolFailed    = "✗"
	SymbolTimedOut  = "⏱"

	timestampLayout = "2006-01-02 15:04:05"
)

// Writer appends a human-readable record of each run to a single file.
// Every call opens, writes, syncs and closes, so whatever was recorded before
// a crash is already on disk. Existing content is never rewritten.
type Writer struct {
	Path string
	Now  func() time.Time
}

func New(path string) *Writer {
	return &Writer{Path: path, Now: time.Now}
}

func (w *Writer) Begin(report model.RunReport) error {
	var b strings.Builder
	b.WriteString("\n=== YouTube Recovery Log ===\n")
	fmt.Fprintf(&b, "Run: %s\n", report.RunID)
	fmt.Fprintf(&b, "Started: %s\n", report.CreatedAt.Local().Format(timestampLayout))
	b.WriteString("\n")
	return w.append(b.String())
}

func (w *Writer) Record(job model.PlaylistJob, outcome model.JobOutcome) error {
	return w.append(FormatOutcome(job, outcome) + "\n")
}

func (w *Writer) Finalize(report model.RunReport) error {
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = w.now()
	}

	var b strings.Builder
	b.WriteString("\n=== Summary ===\n")
	fmt.Fprintf(&b, "Total playlists: %d\n", report.Total)
	fmt.Fprintf(&b, "Succeeded: %d\n", report.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n", report.FailedForSummary())
	fmt.Fprintf(&b, "  of which timed out: %d\n", report.TimedOut)
	if report.State == model.BatchInterrupted {
		b.WriteString("State: interrupted by operator\n")
	} else {
		fmt.Fprintf(&b, "State: %s\n", report.State)
	}
	fmt.Fprintf(&b, "Finished: %s\n", finished.Local().Format(timestampLayout))

	if failed := report.FailedEntries(); len(failed) > 0 {
		b.WriteString("Failed playlists:\n")
		for _, e := range failed {
			fmt.Fprintf(&b, "  - %s (%s)\n", e.Outcome.DisplayName(e.Job), e.Job.URL)
		}
	}
	return w.append(b.String())
}

// FormatOutcome renders the single log line for one job.
func FormatOutcome(job model.PlaylistJob, o model.JobOutcome) string {
	name := o.DisplayName(job)
	var line, detail string
	switch o.Status {
	case model.StatusSucceeded:
		line = SymbolSucceeded + " Playlist downloaded - " + name
		detail = successDetail(o)
	case model.StatusTimedOut:
		line = SymbolTimedOut + " Playlist timed out - " + name
		detail = o.Diagnostic
		if o.VideosTotal > 0 {
			detail = joinDetail(detail, fmt.Sprintf("%d/%d videos saved", o.VideosDone, o.VideosTotal))
		}
	default:
		line = SymbolFailed + " Playlist was not able to download - " + name
		detail = o.Reason
		if d := strings.TrimSpace(o.Diagnostic); d != "" {
			detail = joinDetail(detail, d)
		}
	}
	if detail != "" {
		line += " (" + detail + ")"
	}
	return line
}

func successDetail(o model.JobOutcome) string {
	switch {
	case o.AlreadyComplete:
		return fmt.Sprintf("already complete, %d videos", o.VideosDone)
	case o.VideosTotal <= 0:
		if o.VideosDone > 0 {
			return fmt.Sprintf("%d videos", o.VideosDone)
		}
		return ""
	case o.VideosDone >= o.VideosTotal:
		return "100% complete"
	default:
		return fmt.Sprintf("%d/%d videos, %d skipped", o.VideosDone, o.VideosTotal, o.VideosTotal-o.VideosDone)
	}
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + ": " + b
}

func (w *Writer) append(s string) error {
	if strings.TrimSpace(w.Path) == "" {
		return fmt.Errorf("log path is not configured")
	}
	if dir := filepath.Dir(w.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", w.Path, err)
	}
	if _, err := f.WriteString(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log %s: %w", w.Path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync log %s: %w", w.Path, err)
	}
	return f.Close()
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
