package runner

import (
	"context"
	"io"
	"time"

	"yt-playlist-recovery/internal/ytdlp"
)

type ProbeRequest struct {
	URL         string
	CookiesPath string
}

type DownloadRequest struct {
	URL         string
	Folder      string
	CookiesPath string
	Quality     string
	OnLine      func(stream ytdlp.OutputStream, line string)
}

// Downloader is the external collaborator that actually fetches playlists.
// Implementations must return promptly once ctx is done.
type Downloader interface {
	Probe(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error)
	Download(ctx context.Context, req DownloadRequest) error
}

// FallbackProber lists a playlist without the yt-dlp binary.
type FallbackProber interface {
	ProbePlaylist(ctx context.Context, sourceURL string) (ytdlp.PlaylistInfo, error)
}

// YTDLP runs the yt-dlp binary found on PATH.
type YTDLP struct {
	KillGrace time.Duration
	// Echo, when set, receives the raw yt-dlp output lines.
	Echo io.Writer
}

func (y YTDLP) Probe(ctx context.Context, req ProbeRequest) (ytdlp.PlaylistInfo, error) {
	return ytdlp.ProbePlaylist(ctx, ytdlp.ProbeOptions{
		SourceURL:   req.URL,
		CookiesPath: req.CookiesPath,
		KillGrace:   y.KillGrace,
	})
}

func (y YTDLP) Download(ctx context.Context, req DownloadRequest) error {
	return ytdlp.DownloadPlaylist(ctx, ytdlp.DownloadOptions{
		SourceURL:   req.URL,
		FolderPath:  req.Folder,
		CookiesPath: req.CookiesPath,
		Quality:     req.Quality,
		KillGrace:   y.KillGrace,
		Stdout:      y.Echo,
		Stderr:      y.Echo,
		EchoOutput:  y.Echo != nil,
		Progress:    req.OnLine,
	})
}
