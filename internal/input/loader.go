package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"yt-playlist-recovery/internal/model"
)

// ErrMissingInput matches every *MissingInputError via errors.Is.
var ErrMissingInput = errors.New("required input missing")

type MissingInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Path, e.Reason)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

type Paths struct {
	ListPath    string
	CookiesPath string
}

type Inputs struct {
	Jobs        []model.PlaylistJob
	CookiesPath string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the playlist list and checks the cookies file. It only reads.
func Load(paths Paths) (Inputs, error) {
	jobs, err := readPlaylistList(paths.ListPath)
	if err != nil {
		return Inputs{}, err
	}
	if err := checkCookies(paths.CookiesPath); err != nil {
		return Inputs{}, err
	}
	return Inputs{Jobs: jobs, CookiesPath: paths.CookiesPath}, nil
}

func readPlaylistList(path string) ([]model.PlaylistJob, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &MissingInputError{Path: "playlist list", Reason: "path not configured"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, missingFromErr(path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	jobs := make([]model.PlaylistJob, 0)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		jobs = append(jobs, model.PlaylistJob{
			Index: len(jobs) + 1,
			URL:   line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, &MissingInputError{Path: path, Reason: "is unreadable", Err: err}
	}
	if len(jobs) == 0 {
		return nil, &MissingInputError{Path: path, Reason: "contains no playlist URLs"}
	}
	return jobs, nil
}

func checkCookies(path string) error {
	if strings.TrimSpace(path) == "" {
		return &MissingInputError{Path: "cookies file", Reason: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return missingFromErr(path, err)
	}
	if info.IsDir() {
		return &MissingInputError{Path: path, Reason: "is a directory"}
	}
	// The credential is opaque to us: only presence and non-emptiness are checked.
	data, err := os.ReadFile(path)
	if err != nil {
		return missingFromErr(path, err)
	}
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return &MissingInputError{Path: path, Reason: "is empty"}
	}
	return nil
}

func missingFromErr(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return &MissingInputError{Path: path, Reason: "not found", Err: err}
	}
	return &MissingInputError{Path: path, Reason: "is unreadable", Err: err}
}
