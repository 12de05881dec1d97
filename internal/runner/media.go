package runner

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"yt-playlist-recovery/internal/ytdlp"
)

var (
	mediaExt = map[string]struct{}{
		"mp4": {}, "mkv": {}, "webm": {}, "m4v": {},
		"mov": {}, "avi": {}, "flv": {}, "ts": {}, "m4a": {}, "mp3": {},
	}
	// yt-dlp keeps per-format streams as "<title>.f137.mp4" until they are merged.
	formatIntermediate = regexp.MustCompile(`\.f[0-9]+$`)
	reservedChars      = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaceRun           = regexp.MustCompile(`\s+`)
)

const unknownPlaylist = "Unknown Playlist"

// countCompleteMedia counts finished media files directly inside folder.
// Partial downloads and unmerged format streams are not counted.
func countCompleteMedia(folder string) (int, error) {
	if strings.TrimSpace(folder) == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isCompleteMedia(e.Name()) {
			n++
		}
	}
	return n, nil
}

func isCompleteMedia(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".part") || strings.HasSuffix(lower, ".ytdl") || strings.HasSuffix(lower, ".tmp") {
		return false
	}
	ext := filepath.Ext(lower)
	if _, ok := mediaExt[strings.TrimPrefix(ext, ".")]; !ok {
		return false
	}
	return !formatIntermediate.MatchString(strings.TrimSuffix(lower, ext))
}

// FolderName turns a playlist title into a directory name that is safe on
// every common filesystem. When title is unusable it falls back to the
// playlist id from the URL, then to the URL itself.
func FolderName(title, sourceURL string) string {
	if name := sanitizeFolderName(title); name != "" {
		return name
	}
	if name := sanitizeFolderName(ytdlp.PlaylistIDFromURL(sourceURL)); name != "" {
		return name
	}
	if name := sanitizeFolderName(sourceURL); name != "" {
		return name
	}
	return unknownPlaylist
}

func sanitizeFolderName(raw string) string {
	s := reservedChars.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .")
	if len(s) > 150 {
		s = strings.TrimRight(truncateRunes(s, 150), " .")
	}
	return s
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
