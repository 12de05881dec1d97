package ytdlp

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	rePct         = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reSpeed       = regexp.MustCompile(`\bat\s+([^\s]+)`)
	reETA         = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
	reItem        = regexp.MustCompile(`Downloading (?:item|video) ([0-9]+) of ([0-9]+)`)
	rePlaylist    = regexp.MustCompile(`^\[download\] Downloading playlist:\s*(.+)$`)
	reDestination = regexp.MustCompile(`^\[(?:download|Merger)\] (?:Destination:|Merging formats into) "?(.+?)"?$`)
	reAlready     = regexp.MustCompile(`^\[download\] (.+) has already been downloaded`)
)

// Progress is a snapshot of what yt-dlp has reported so far for one playlist.
type Progress struct {
	Phase         string
	PlaylistTitle string
	VideoTitle    string
	VideoIndex    int
	VideosTotal   int
	Percent       float64
	Speed         string
	ETA           string
}

// ProgressTracker folds yt-dlp output lines into a Progress snapshot.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu  sync.Mutex
	cur Progress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{cur: Progress{Phase: "starting"}}
}

// Handle consumes one line and reports whether the snapshot changed.
func (p *ProgressTracker) Handle(stream OutputStream, line string) bool {
	l := strings.TrimSpace(line)
	if l == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.cur

	switch {
	case strings.HasPrefix(l, "[youtube") || strings.HasPrefix(l, "[info]"):
		if p.cur.Phase == "starting" {
			p.cur.Phase = "preparing"
		}
	case strings.HasPrefix(l, "[Merger]"):
		p.cur.Phase = "merging"
	}

	if m := rePlaylist.FindStringSubmatch(l); len(m) > 1 {
		p.cur.PlaylistTitle = strings.TrimSpace(m[1])
	}
	if m := reItem.FindStringSubmatch(l); len(m) > 2 {
		idx, errI := strconv.Atoi(m[1])
		total, errT := strconv.Atoi(m[2])
		if errI == nil && errT == nil {
			p.cur.VideoIndex = idx
			p.cur.VideosTotal = total
			p.cur.Percent = 0
			p.cur.Speed = ""
			p.cur.ETA = ""
			p.cur.Phase = "downloading"
		}
	}
	if m := reDestination.FindStringSubmatch(l); len(m) > 1 {
		p.cur.VideoTitle = titleFromPath(m[1])
	}
	if m := reAlready.FindStringSubmatch(l); len(m) > 1 {
		p.cur.VideoTitle = titleFromPath(m[1])
		p.cur.Percent = 100
	}
	if strings.HasPrefix(l, "[download]") && stream == StreamStdout {
		if m := rePct.FindStringSubmatch(l); len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.cur.Percent = v
				p.cur.Phase = "downloading"
			}
		}
		if m := reSpeed.FindStringSubmatch(l); len(m) > 1 && strings.Contains(strings.ToLower(m[1]), "b/s") {
			p.cur.Speed = m[1]
		}
		if m := reETA.FindStringSubmatch(l); len(m) > 1 {
			p.cur.ETA = m[1]
		}
	}

	return p.cur != before
}

func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

func titleFromPath(p string) string {
	base := filepath.Base(strings.TrimSpace(p))
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	// Format-specific intermediates look like "Title.f137".
	if ext := filepath.Ext(base); strings.HasPrefix(ext, ".f") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
