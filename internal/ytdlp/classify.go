package ytdlp

import "strings"

type FailureKind string

const (
	FailureAuth       FailureKind = "auth_required"
	FailureNotFound   FailureKind = "not_found"
	FailureNetwork    FailureKind = "network"
	FailureDependency FailureKind = "missing_dependency"
	FailureOther      FailureKind = "download_error"
)

var (
	dependencyHints = []string{
		"ffmpeg could not be found",
		"ffprobe could not be found",
		"ffmpeg is not installed",
		"executable file not found",
	}
	authHints = []string{
		"sign in to confirm",
		"private video",
		"members-only",
		"join this channel",
		"requires authentication",
		"login required",
		"cookies are no longer valid",
		"http error 401",
		"http error 403",
	}
	notFoundHints = []string{
		"playlist does not exist",
		"the playlist does not exist",
		"video unavailable",
		"this video has been removed",
		"http error 404",
		"not found",
		"unsupported url",
		"is not a valid url",
	}
	networkHints = []string{
		"429",
		"too many requests",
		"rate limit",
		"timed out",
		"timeout",
		"temporarily unavailable",
		"connection reset",
		"connection refused",
		"service unavailable",
		"network is unreachable",
		"name or service not known",
		"temporary failure in name resolution",
		"http error 5",
	}
)

// Classify maps yt-dlp error output to a coarse failure kind. Order matters:
// a missing ffmpeg is reported before anything else mentioned in the same text.
func Classify(output string) FailureKind {
	text := strings.ToLower(output)
	switch {
	case containsAny(text, dependencyHints):
		return FailureDependency
	case containsAny(text, authHints):
		return FailureAuth
	case containsAny(text, notFoundHints):
		return FailureNotFound
	case containsAny(text, networkHints):
		return FailureNetwork
	default:
		return FailureOther
	}
}

// FirstErrorLine picks the first "ERROR:" line from yt-dlp output, or the
// first non-empty line when none is marked.
func FirstErrorLine(output string) string {
	first := ""
	for _, line := range strings.Split(output, "\n") {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
		if first == "" {
			first = l
		}
	}
	return first
}

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}
