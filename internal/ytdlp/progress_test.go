package ytdlp

import "testing"

func TestProgressTracker_PlaylistLines(t *testing.T) {
	p := NewProgressTracker()
	lines := []string{
		"[youtube:tab] Extracting URL: https://www.youtube.com/playlist?list=PL1",
		"[download] Downloading playlist: Physics 101",
		"[download] Downloading item 3 of 12",
		"[download] Destination: /tmp/Physics 101/Lecture 3.f137.mp4",
		"[download]  42.5% of 120.00MiB at 3.20MiB/s ETA 00:21",
	}
	for _, l := range lines {
		p.Handle(StreamStdout, l)
	}
	got := p.Snapshot()
	if got.PlaylistTitle != "Physics 101" {
		t.Fatalf("unexpected playlist title %q", got.PlaylistTitle)
	}
	if got.VideoIndex != 3 || got.VideosTotal != 12 {
		t.Fatalf("unexpected index %d/%d", got.VideoIndex, got.VideosTotal)
	}
	if got.VideoTitle != "Lecture 3" {
		t.Fatalf("unexpected video title %q", got.VideoTitle)
	}
	if got.Percent != 42.5 || got.Speed != "3.20MiB/s" || got.ETA != "00:21" {
		t.Fatalf("unexpected transfer fields: %+v", got)
	}
	if got.Phase != "downloading" {
		t.Fatalf("unexpected phase %q", got.Phase)
	}
}

func TestProgressTracker_AlreadyDownloaded(t *testing.T) {
	p := NewProgressTracker()
	p.Handle(StreamStdout, "[download] Downloading video 1 of 1")
	changed := p.Handle(StreamStdout, "[download] /tmp/List/Intro.mp4 has already been downloaded")
	if !changed {
		t.Fatal("expected snapshot change")
	}
	got := p.Snapshot()
	if got.Percent != 100 || got.VideoTitle != "Intro" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestProgressTracker_IgnoresBlankAndStderrPercent(t *testing.T) {
	p := NewProgressTracker()
	if p.Handle(StreamStdout, "   ") {
		t.Fatal("blank line should not change snapshot")
	}
	p.Handle(StreamStderr, "[download] 99% noise")
	if got := p.Snapshot(); got.Percent != 0 {
		t.Fatalf("stderr percent should be ignored, got %v", got.Percent)
	}
}

func TestPlaylistIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/playlist?list=PLabc":        "PLabc",
		"https://www.youtube.com/watch?v=x&list=PLdef&idx=2": "PLdef",
		"https://www.youtube.com/watch?v=x":                  "",
		"not a url %%":                                       "",
	}
	for in, want := range cases {
		if got := PlaylistIDFromURL(in); got != want {
			t.Fatalf("PlaylistIDFromURL(%q): got %q want %q", in, got, want)
		}
	}
}
