package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"yt-playlist-recovery/internal/model"
	"yt-playlist-recovery/internal/ytdlp"
)

type stubDownloader struct {
	probe    func(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error)
	download func(ctx context.Context, req DownloadRequest) error

	probes    atomic.Int32
	downloads atomic.Int32
}

func (s *stubDownloader) Probe(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
	s.probes.Add(1)
	if s.probe == nil {
		return ytdlp.PlaylistInfo{}, nil
	}
	return s.probe(ctx, req)
}

func (s *stubDownloader) Download(ctx context.Context, req DownloadRequest) error {
	s.downloads.Add(1)
	if s.download == nil {
		return nil
	}
	return s.download(ctx, req)
}

type memLedger struct {
	mu      sync.Mutex
	entries map[string]Completion
	failSet error
}

func newMemLedger() *memLedger { return &memLedger{entries: map[string]Completion{}} }

func (m *memLedger) Lookup(url string) (Completion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[url]
	return c, ok, nil
}

func (m *memLedger) MarkComplete(c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.entries[c.URL] = c
	return nil
}

func writeVideos(t *testing.T, folder string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(folder, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newRunner(t *testing.T, dl Downloader, mutate func(*Options)) (*Runner, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "downloads")
	opts := Options{
		OutputDir:    out,
		CookiesPath:  "cookies.txt",
		Quality:      "best",
		JobTimeout:   5 * time.Second,
		ProbeTimeout: time.Second,
		KillGrace:    200 * time.Millisecond,
		Downloader:   dl,
	}
	if mutate != nil {
		mutate(&opts)
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r, out
}

var job = model.PlaylistJob{Index: 1, URL: "https://www.youtube.com/playlist?list=PLtest"}

func TestRun_SuccessCountsVideosAndRecordsLedger(t *testing.T) {
	ledger := newMemLedger()
	dl := &stubDownloader{
		probe: func(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
			return ytdlp.PlaylistInfo{Title: "Lectures: Part 1/2", Count: 2}, nil
		},
		download: func(ctx context.Context, req DownloadRequest) error {
			req.OnLine(ytdlp.StreamStdout, "[download] Downloading item 1 of 2")
			writeVideos(t, req.Folder, "one.mp4", "two.mkv", "three.mp4.part")
			return nil
		},
	}
	r, out := newRunner(t, dl, func(o *Options) { o.Ledger = ledger })

	var progress []model.JobProgress
	var mu sync.Mutex
	got := r.Run(context.Background(), job, func(p model.JobProgress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	if got.Status != model.StatusSucceeded || got.Reason != model.ReasonDownloaded {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	if got.VideosDone != 2 || got.VideosTotal != 2 {
		t.Fatalf("expected 2/2 videos, got %d/%d", got.VideosDone, got.VideosTotal)
	}
	if got.Folder != filepath.Join(out, "Lectures Part 12") {
		t.Fatalf("unexpected folder %q", got.Folder)
	}
	if _, ok, _ := ledger.Lookup(job.URL); !ok {
		t.Fatal("expected playlist recorded complete")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(progress) < 2 || progress[0].Phase != "probing" {
		t.Fatalf("expected probing then downloading progress, got %+v", progress)
	}
}

func TestRun_AlreadyCompleteSkipsDownloader(t *testing.T) {
	ledger := newMemLedger()
	folder := filepath.Join(t.TempDir(), "Done")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	writeVideos(t, folder, "a.mp4", "b.mp4")
	ledger.entries[job.URL] = Completion{URL: job.URL, Title: "Done", Folder: folder, VideoCount: 2}

	dl := &stubDownloader{}
	r, _ := newRunner(t, dl, func(o *Options) { o.Ledger = ledger })
	got := r.Run(context.Background(), job, nil)

	if got.Status != model.StatusSucceeded || !got.AlreadyComplete || got.Reason != model.ReasonAlreadyComplete {
		t.Fatalf("expected already-complete success, got %+v", got)
	}
	if dl.probes.Load() != 0 || dl.downloads.Load() != 0 {
		t.Fatalf("expected zero downloader calls, got probe=%d download=%d", dl.probes.Load(), dl.downloads.Load())
	}
}

func TestRun_LedgerEntryIgnoredWhenFilesMissing(t *testing.T) {
	ledger := newMemLedger()
	folder := filepath.Join(t.TempDir(), "Gone")
	ledger.entries[job.URL] = Completion{URL: job.URL, Folder: folder, VideoCount: 3}

	dl := &stubDownloader{}
	r, _ := newRunner(t, dl, func(o *Options) { o.Ledger = ledger })
	_ = r.Run(context.Background(), job, nil)
	if dl.downloads.Load() != 1 {
		t.Fatalf("expected download when ledger folder is incomplete, got %d", dl.downloads.Load())
	}
}

func TestRun_FailureClassification(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		files  []string
		want   string
	}{
		{name: "auth", stderr: "ERROR: [youtube] x: Sign in to confirm your age", want: model.ReasonAuthRequired},
		{name: "not found", stderr: "ERROR: [youtube:tab] PLx: The playlist does not exist.", want: model.ReasonNotFound},
		{name: "network", stderr: "ERROR: HTTP Error 503: Service Unavailable", want: model.ReasonNetwork},
		{name: "dependency", stderr: "ERROR: ffmpeg could not be found", files: []string{"a.mp4"}, want: model.ReasonMissingDependency},
		{name: "partial", stderr: "ERROR: [youtube] y: Private video", files: []string{"a.mp4"}, want: model.ReasonPartial},
		{name: "other", stderr: "ERROR: odd", want: model.ReasonDownloadError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dl := &stubDownloader{
				download: func(ctx context.Context, req DownloadRequest) error {
					writeVideos(t, req.Folder, tc.files...)
					return &ytdlp.CommandError{Err: errors.New("exit status 1"), Stderr: tc.stderr}
				},
			}
			r, _ := newRunner(t, dl, nil)
			got := r.Run(context.Background(), job, nil)
			if got.Status != model.StatusFailed {
				t.Fatalf("expected failed, got %+v", got)
			}
			if got.Reason != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got.Reason)
			}
			if got.Diagnostic == "" || strings.HasPrefix(got.Diagnostic, "ERROR:") {
				t.Fatalf("expected trimmed diagnostic, got %q", got.Diagnostic)
			}
		})
	}
}

func TestRun_FailureIgnoresStdoutText(t *testing.T) {
	dl := &stubDownloader{
		download: func(ctx context.Context, req DownloadRequest) error {
			return &ytdlp.CommandError{
				Err:    errors.New("exit status 1"),
				Errors: "ERROR: [youtube] x: Requested format is not available",
				Stdout: "[download] Destination: /d/Movie Not Found Trailer.mp4\n[download] 12.0% of 429.10MiB",
			}
		},
	}
	r, _ := newRunner(t, dl, nil)
	got := r.Run(context.Background(), job, nil)
	if got.Reason != model.ReasonDownloadError {
		t.Fatalf("expected download_error from the ERROR line, got %q", got.Reason)
	}
	if !strings.Contains(got.Diagnostic, "Requested format is not available") {
		t.Fatalf("unexpected diagnostic %q", got.Diagnostic)
	}
}

func TestRun_LongMultibyteDiagnosticStaysValid(t *testing.T) {
	dl := &stubDownloader{
		download: func(ctx context.Context, req DownloadRequest) error {
			return &ytdlp.CommandError{
				Err:    errors.New("exit status 1"),
				Errors: "ERROR: x" + strings.Repeat("é", 400),
			}
		},
	}
	r, _ := newRunner(t, dl, nil)
	got := r.Run(context.Background(), job, nil)
	if len(got.Diagnostic) > 500 || len(got.Diagnostic) < 490 {
		t.Fatalf("expected diagnostic cut near 500 bytes, got %d", len(got.Diagnostic))
	}
	if !utf8.ValidString(got.Diagnostic) {
		t.Fatalf("diagnostic split a rune: %q", got.Diagnostic[len(got.Diagnostic)-4:])
	}
}

func TestRun_AbandonedDownloaderProgressIsDropped(t *testing.T) {
	late := make(chan struct{})
	dl := &stubDownloader{
		download: func(ctx context.Context, req DownloadRequest) error {
			<-ctx.Done()
			time.Sleep(300 * time.Millisecond)
			req.OnLine(ytdlp.StreamStdout, "[download] Downloading item 1 of 2")
			close(late)
			return ctx.Err()
		},
	}
	r, _ := newRunner(t, dl, func(o *Options) {
		o.JobTimeout = 50 * time.Millisecond
		o.KillGrace = 50 * time.Millisecond
	})

	var returned, lateProgress atomic.Bool
	got := r.Run(context.Background(), job, func(p model.JobProgress) {
		if returned.Load() {
			lateProgress.Store(true)
		}
	})
	returned.Store(true)
	if got.Status != model.StatusTimedOut {
		t.Fatalf("expected timed_out, got %+v", got)
	}

	select {
	case <-late:
	case <-time.After(3 * time.Second):
		t.Fatal("downloader never reported its late line")
	}
	if lateProgress.Load() {
		t.Fatal("progress delivered after Run returned")
	}
}

func TestRun_NeverReturningDownloaderTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	dl := &stubDownloader{
		download: func(ctx context.Context, req DownloadRequest) error {
			<-block
			return nil
		},
	}
	r, _ := newRunner(t, dl, func(o *Options) {
		o.JobTimeout = 100 * time.Millisecond
		o.KillGrace = 50 * time.Millisecond
	})

	start := time.Now()
	got := r.Run(context.Background(), job, nil)
	if got.Status != model.StatusTimedOut || got.Reason != model.ReasonTimeout {
		t.Fatalf("expected timed_out, got %+v", got)
	}
	if !strings.Contains(got.Diagnostic, "timed out after 100ms") {
		t.Fatalf("unexpected diagnostic %q", got.Diagnostic)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("runner did not abandon a stuck downloader")
	}
}

func TestRun_TimeoutKeepsPartialFilesUncounted(t *testing.T) {
	dl := &stubDownloader{
		probe: func(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
			return ytdlp.PlaylistInfo{Title: "Slow", Count: 3}, nil
		},
		download: func(ctx context.Context, req DownloadRequest) error {
			writeVideos(t, req.Folder, "one.mp4", "two.f137.mp4", "two.mp4.part")
			<-ctx.Done()
			return ctx.Err()
		},
	}
	r, _ := newRunner(t, dl, func(o *Options) { o.JobTimeout = 100 * time.Millisecond })

	got := r.Run(context.Background(), job, nil)
	if got.Status != model.StatusTimedOut {
		t.Fatalf("expected timed_out, got %+v", got)
	}
	if got.VideosDone != 1 || got.VideosTotal != 3 || got.Title != "Slow" {
		t.Fatalf("unexpected counts after timeout: %+v", got)
	}
	if _, err := os.Stat(filepath.Join(got.Folder, "two.mp4.part")); err != nil {
		t.Fatalf("partial file should be left in place: %v", err)
	}
}

func TestRun_ParentCancelIsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dl := &stubDownloader{
		download: func(dctx context.Context, req DownloadRequest) error {
			cancel()
			<-dctx.Done()
			return dctx.Err()
		},
	}
	r, _ := newRunner(t, dl, nil)
	got := r.Run(ctx, job, nil)
	if got.Status != model.StatusFailed || got.Reason != model.ReasonInterrupted {
		t.Fatalf("expected failed/interrupted, got %+v", got)
	}
}

type stubFallback struct {
	info ytdlp.PlaylistInfo
	err  error
}

func (s stubFallback) ProbePlaylist(ctx context.Context, sourceURL string) (ytdlp.PlaylistInfo, error) {
	return s.info, s.err
}

func TestRun_ProbeFailureUsesFallbackAndStillDownloads(t *testing.T) {
	var warnings []string
	dl := &stubDownloader{
		probe: func(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
			return ytdlp.PlaylistInfo{}, errors.New("probe exploded")
		},
	}
	r, out := newRunner(t, dl, func(o *Options) {
		o.Fallback = stubFallback{info: ytdlp.PlaylistInfo{Count: 4}}
		o.Warn = func(msg string) { warnings = append(warnings, msg) }
	})
	got := r.Run(context.Background(), job, nil)
	if got.Status != model.StatusSucceeded {
		t.Fatalf("probe failure must not fail the job: %+v", got)
	}
	if got.VideosTotal != 4 {
		t.Fatalf("expected fallback count 4, got %d", got.VideosTotal)
	}
	if got.Folder != filepath.Join(out, "PLtest") {
		t.Fatalf("expected identifier folder fallback, got %q", got.Folder)
	}
	if dl.downloads.Load() != 1 {
		t.Fatalf("expected one download call, got %d", dl.downloads.Load())
	}
	if len(warnings) == 0 {
		t.Fatal("expected a probe warning")
	}
}

func TestRun_LedgerWriteFailureIsWarningOnly(t *testing.T) {
	ledger := newMemLedger()
	ledger.failSet = errors.New("disk full")
	var warned atomic.Bool
	dl := &stubDownloader{
		probe: func(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
			return ytdlp.PlaylistInfo{Title: "One", Count: 1}, nil
		},
		download: func(ctx context.Context, req DownloadRequest) error {
			writeVideos(t, req.Folder, "v.webm")
			return nil
		},
	}
	r, _ := newRunner(t, dl, func(o *Options) {
		o.Ledger = ledger
		o.Warn = func(string) { warned.Store(true) }
	})
	got := r.Run(context.Background(), job, nil)
	if got.Status != model.StatusSucceeded {
		t.Fatalf("expected success despite ledger failure: %+v", got)
	}
	if !warned.Load() {
		t.Fatal("expected ledger failure warning")
	}
}

func TestNew_Validates(t *testing.T) {
	if _, err := New(Options{OutputDir: "x", JobTimeout: time.Second}); err == nil {
		t.Fatal("expected error without downloader")
	}
	if _, err := New(Options{Downloader: &stubDownloader{}, JobTimeout: time.Second}); err == nil {
		t.Fatal("expected error without output dir")
	}
	if _, err := New(Options{Downloader: &stubDownloader{}, OutputDir: "x"}); err == nil {
		t.Fatal("expected error without timeout")
	}
}
