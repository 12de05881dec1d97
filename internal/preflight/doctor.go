package preflight

import (
	"strings"

	"yt-playlist-recovery/internal/runstore"
	"yt-playlist-recovery/internal/ytdlp"
)

type Options struct {
	BaseDir   string
	OutputDir string
}

type Result struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Add appends a check and folds it into the overall result.
func (r *Result) Add(c Check) {
	r.Checks = append(r.Checks, c)
	r.OK = r.OK && c.OK
}

// Doctor reports whether this machine can run a batch: both external tools
// on PATH and writable base and output directories.
func Doctor(opts Options) Result {
	res := Result{OK: true, Checks: make([]Check, 0, 4)}

	dep := ytdlp.DependencyStatus()
	res.Add(Check{
		Name:    "dependency:yt-dlp",
		OK:      dep.YTDLPFound,
		Message: dependencyMessage(dep.YTDLPFound, dep.YTDLPPath, "yt-dlp"),
	})
	res.Add(Check{
		Name:    "dependency:ffmpeg",
		OK:      dep.FFmpegFound,
		Message: dependencyMessage(dep.FFmpegFound, dep.FFmpegPath, "ffmpeg"),
	})

	ok, msg := writableDir(opts.BaseDir)
	res.Add(Check{Name: "directory:base", OK: ok, Message: msg})
	ok, msg = writableDir(opts.OutputDir)
	res.Add(Check{Name: "directory:output", OK: ok, Message: msg})

	return res
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH"
}

func writableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.CheckWritableDir(path); err != nil {
		return false, err.Error()
	}
	return true, path + " writable"
}
