package batch

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"yt-playlist-recovery/internal/model"
)

func TestLineObserver_ThrottlesProgressPerVideo(t *testing.T) {
	var out, errOut bytes.Buffer
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLineObserver(&out, &errOut)
	l.Now = func() time.Time { return clock }

	job := model.PlaylistJob{Index: 2, URL: "https://x/list?list=P"}
	l.OnBatchStart(model.RunReport{RunID: "r"}, 3)
	l.OnJobStart(job, 3)
	l.OnJobProgress(job, model.JobProgress{Phase: "probing"})
	l.OnJobProgress(job, model.JobProgress{Phase: "downloading", Title: "Physics", VideosTotal: 5})
	l.OnJobProgress(job, model.JobProgress{Phase: "downloading", Title: "Physics", VideoIndex: 1, VideosTotal: 5, Percent: "10.0%"})
	l.OnJobProgress(job, model.JobProgress{Phase: "downloading", Title: "Physics", VideoIndex: 1, VideosTotal: 5, Percent: "20.0%"})
	clock = clock.Add(3 * time.Second)
	l.OnJobProgress(job, model.JobProgress{Phase: "downloading", Title: "Physics", VideoIndex: 1, VideosTotal: 5, Percent: "30.0%"})
	l.OnJobProgress(job, model.JobProgress{Phase: "downloading", Title: "Physics", VideoTitle: "Lecture 2", VideoIndex: 2, VideosTotal: 5, Percent: "1.0%"})
	l.OnJobDone(job, model.JobOutcome{Status: model.StatusSucceeded, VideosDone: 4, VideosTotal: 5})
	l.OnWarning("ledger unavailable")

	got := out.String()
	for _, want := range []string{
		"[2/3] Processing: https://x/list?list=P",
		"Fetching playlist metadata...",
		`Playlist: "Physics" (5 videos)`,
		"[2/3]  Physics  video 1/5  10.0%",
		"video 1/5  30.0%",
		"video 2/5  Lecture 2  1.0%",
		"✓ Playlist downloaded (4/5 videos, 1 skipped)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "20.0%") {
		t.Fatalf("expected throttled update to be skipped:\n%s", got)
	}
	if !strings.Contains(errOut.String(), "warning: ledger unavailable") {
		t.Fatalf("expected warning on stderr, got %q", errOut.String())
	}
}

func TestOutcomeLine(t *testing.T) {
	cases := []struct {
		o    model.JobOutcome
		want string
	}{
		{model.JobOutcome{Status: model.StatusSucceeded, AlreadyComplete: true, VideosDone: 3}, "✓ Already complete (3 videos)"},
		{model.JobOutcome{Status: model.StatusSucceeded, VideosDone: 3, VideosTotal: 3}, "✓ Playlist downloaded (3/3 videos)"},
		{model.JobOutcome{Status: model.StatusSucceeded}, "✓ Playlist downloaded"},
		{model.JobOutcome{Status: model.StatusFailed, Reason: "auth_required", Diagnostic: "Sign in"}, "✗ Playlist was not able to download [auth_required]: Sign in"},
		{model.JobOutcome{Status: model.StatusTimedOut, Diagnostic: "timed out after 20m0s", VideosDone: 2}, "⏱ timed out after 20m0s (2 videos saved, partial files kept for resume)"},
	}
	for _, tc := range cases {
		if got := outcomeLine(tc.o); got != tc.want {
			t.Fatalf("got %q want %q", got, tc.want)
		}
	}
}
