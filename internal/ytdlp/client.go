package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// OutputTemplate places one file per video inside the playlist folder.
const OutputTemplate = "%(title)s.%(ext)s"

type ProbeOptions struct {
	SourceURL   string
	CookiesPath string
	KillGrace   time.Duration
}

type PlaylistInfo struct {
	Title string
	Count int
}

type DownloadOptions struct {
	SourceURL   string
	FolderPath  string
	CookiesPath string
	Quality     string
	KillGrace   time.Duration
	Stdout      io.Writer
	Stderr      io.Writer
	EchoOutput  bool
	Progress    func(stream OutputStream, line string)
}

// CommandError carries the tail of yt-dlp output for a failed invocation.
// Errors holds the ERROR lines from stderr, kept even when they scrolled out
// of the Stderr tail.
type CommandError struct {
	Err    error
	Errors string
	Stderr string
	Stdout string
}

func (e *CommandError) Error() string {
	if text := e.ErrorText(); text != "" {
		return fmt.Sprintf("yt-dlp failed: %v\n%s", e.Err, text)
	}
	return fmt.Sprintf("yt-dlp failed: %v", e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ErrorText is the text a failure is classified from: the ERROR lines when
// yt-dlp printed any, otherwise the stderr tail. Stdout is progress noise.
func (e *CommandError) ErrorText() string {
	if errs := strings.TrimSpace(e.Errors); errs != "" {
		return errs
	}
	return strings.TrimSpace(e.Stderr)
}

type DependencyReport struct {
	YTDLPFound  bool   `json:"yt_dlp_found"`
	YTDLPPath   string `json:"yt_dlp_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

func CheckDependencies() error {
	report := DependencyStatus()
	if !report.YTDLPFound {
		return fmt.Errorf("missing dependency: yt-dlp is not installed or not on PATH")
	}
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is required to merge best-quality formats and was not found on PATH")
	}
	return nil
}

type ytDLPCollection struct {
	Title         string            `json:"title"`
	PlaylistCount int               `json:"playlist_count"`
	Entries       []json.RawMessage `json:"entries"`
}

// ProbePlaylist resolves the playlist title and entry count without downloading.
func ProbePlaylist(ctx context.Context, opts ProbeOptions) (PlaylistInfo, error) {
	if strings.TrimSpace(opts.SourceURL) == "" {
		return PlaylistInfo{}, fmt.Errorf("source URL is required")
	}

	args := []string{"--flat-playlist", "-J"}
	if strings.TrimSpace(opts.CookiesPath) != "" {
		cookiesPath, err := resolveCookiesPath(opts.CookiesPath)
		if err != nil {
			return PlaylistInfo{}, err
		}
		args = append(args, "--cookies", cookiesPath)
	}
	args = append(args, opts.SourceURL)

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	configureProcess(cmd, opts.KillGrace)
	var stdout bytes.Buffer
	capture := newOutputCapture()
	stderrLines := &lineWriter{emit: func(line string) { capture.add(StreamStderr, line) }}
	cmd.Stdout = &stdout
	cmd.Stderr = stderrLines

	err := cmd.Run()
	stderrLines.Flush()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PlaylistInfo{}, fmt.Errorf("yt-dlp probe interrupted: %w", ctxErr)
		}
		return PlaylistInfo{}, capture.commandError(err)
	}
	if stdout.Len() == 0 {
		return PlaylistInfo{}, fmt.Errorf("yt-dlp returned empty output")
	}
	return parsePlaylistJSON(stdout.Bytes())
}

func parsePlaylistJSON(data []byte) (PlaylistInfo, error) {
	var raw ytDLPCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return PlaylistInfo{}, fmt.Errorf("parse yt-dlp playlist JSON: %w", err)
	}
	info := PlaylistInfo{
		Title: strings.TrimSpace(raw.Title),
		Count: len(raw.Entries),
	}
	if info.Count == 0 && raw.PlaylistCount > 0 {
		info.Count = raw.PlaylistCount
	}
	return info, nil
}

// DownloadPlaylist downloads every video of the playlist into FolderPath,
// skipping files that already exist and resuming partial ones.
func DownloadPlaylist(ctx context.Context, opts DownloadOptions) error {
	args, err := downloadArgs(opts)
	if err != nil {
		return err
	}
	return runCommand(ctx, args, opts)
}

func downloadArgs(opts DownloadOptions) ([]string, error) {
	if strings.TrimSpace(opts.SourceURL) == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	if strings.TrimSpace(opts.FolderPath) == "" {
		return nil, fmt.Errorf("output folder is required")
	}

	args := []string{
		"--newline",
		"--yes-playlist",
		"--ignore-errors",
		"--no-abort-on-error",
		"--no-overwrites",
		"--continue",
		"-f", selectFormat(opts.Quality),
		"--merge-output-format", "mp4",
		"--socket-timeout", "30",
		"--retries", "3",
		"--fragment-retries", "5",
		"-o", filepath.Join(opts.FolderPath, OutputTemplate),
	}
	if strings.TrimSpace(opts.CookiesPath) != "" {
		cookiesPath, err := resolveCookiesPath(opts.CookiesPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--cookies", cookiesPath)
	}
	args = append(args, opts.SourceURL)
	return args, nil
}

func selectFormat(rawQuality string) string {
	quality := strings.ToLower(strings.TrimSpace(rawQuality))
	switch quality {
	case "1080p", "1080", "hd":
		return "bv*[height<=1080]+ba/b[height<=1080]"
	case "720p", "720", "sd", "small":
		return "bv*[height<=720]+ba/b[height<=720]"
	default:
		return "bv*+ba/b"
	}
}

func runCommand(ctx context.Context, args []string, opts DownloadOptions) error {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	configureProcess(cmd, opts.KillGrace)

	capture := newOutputCapture()
	handle := func(stream OutputStream, echoW io.Writer) func(string) {
		return func(line string) {
			capture.add(stream, line)
			if opts.EchoOutput && echoW != nil {
				_, _ = io.WriteString(echoW, line+"\n")
			}
			if opts.Progress != nil {
				opts.Progress(stream, line)
			}
		}
	}
	stdoutLines := &lineWriter{emit: handle(StreamStdout, opts.Stdout)}
	stderrLines := &lineWriter{emit: handle(StreamStderr, opts.Stderr)}
	cmd.Stdout = stdoutLines
	cmd.Stderr = stderrLines

	err := cmd.Run()
	stdoutLines.Flush()
	stderrLines.Flush()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("yt-dlp terminated: %w", ctxErr)
		}
		return capture.commandError(err)
	}
	return nil
}

// lineWriter splits process output into lines on LF or CR so yt-dlp's
// carriage-return progress updates arrive one by one.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		advance, token, _ := splitByNewlineOrCR(w.buf, false)
		if advance == 0 {
			break
		}
		w.buf = w.buf[advance:]
		if token != nil {
			w.emit(string(token))
		}
	}
	if len(w.buf) > 1024*1024 {
		w.emit(string(w.buf))
		w.buf = w.buf[:0]
	}
	return len(p), nil
}

func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, token, _ := splitByNewlineOrCR(w.buf, true); token != nil {
		w.emit(string(token))
	}
	w.buf = nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

const (
	maxStreamTail = 8192
	maxErrorTail  = 16384
)

// outputCapture keeps what a failed run needs for its diagnostic: the most
// recent output of each stream and the ERROR lines from stderr.
type outputCapture struct {
	mu     sync.Mutex
	stdout outputTail
	stderr outputTail
	errors outputTail
}

func newOutputCapture() *outputCapture {
	return &outputCapture{
		stdout: outputTail{max: maxStreamTail},
		stderr: outputTail{max: maxStreamTail},
		errors: outputTail{max: maxErrorTail},
	}
}

func (c *outputCapture) add(stream OutputStream, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stream == StreamStderr {
		c.stderr.add(line)
		if strings.HasPrefix(strings.TrimSpace(line), "ERROR:") {
			c.errors.add(line)
		}
		return
	}
	c.stdout.add(line)
}

func (c *outputCapture) commandError(err error) *CommandError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &CommandError{
		Err:    err,
		Errors: c.errors.String(),
		Stderr: c.stderr.String(),
		Stdout: c.stdout.String(),
	}
}

// outputTail holds the last lines of a stream within a byte budget.
type outputTail struct {
	lines []string
	size  int
	max   int
}

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(line) > t.max {
		cut := t.max
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > t.max && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *outputTail) String() string {
	return strings.Join(t.lines, "\n")
}

func resolveCookiesPath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve cookies path %s: %w", p, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cookies file %s: %w", abs, err)
	}
	return abs, nil
}

// IsContextError reports whether err stems from a cancelled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
