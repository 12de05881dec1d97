package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	ytlib "github.com/ytget/ytdlp/v2"
)

// NativeProber lists playlist items through the in-process extractor. It is
// used when the yt-dlp probe fails, so a count can still be reported.
type NativeProber struct {
	// Limit caps the number of items fetched; zero fetches everything.
	Limit int
}

func (p NativeProber) ProbePlaylist(ctx context.Context, sourceURL string) (PlaylistInfo, error) {
	id := PlaylistIDFromURL(sourceURL)
	if id == "" {
		return PlaylistInfo{}, fmt.Errorf("could not extract playlist ID from URL: %s", sourceURL)
	}
	items, err := ytlib.New().GetPlaylistItemsAll(ctx, id, p.Limit)
	if err != nil {
		return PlaylistInfo{}, fmt.Errorf("list playlist %s: %w", id, err)
	}
	return PlaylistInfo{Count: len(items)}, nil
}

// PlaylistIDFromURL returns the value of the list= query parameter.
func PlaylistIDFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("list"))
}
