package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is resolved once at startup and never modified afterwards.
type Config struct {
	BaseDir      string
	ListPath     string
	CookiesPath  string
	OutputDir    string
	LogPath      string
	ReportPath   string
	LedgerDir    string
	JobTimeout   time.Duration
	ProbeTimeout time.Duration
	KillGrace    time.Duration
	Quality      string
	Progress     string
	RawOutput    bool
}

// Load resolves the configuration for a run rooted at baseDir. An empty baseDir
// falls back to YTPR_BASE_DIR, then the working directory. Values from
// <base>/.env and <base>/.env.local never override variables already present
// in the environment.
func Load(baseDir string) (Config, error) {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		base = strings.TrimSpace(os.Getenv(EnvBaseDir))
	}
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		base = wd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return Config{}, fmt.Errorf("resolve base directory %s: %w", base, err)
	}
	base = abs

	if err := loadEnvFiles(base); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseDir:     base,
		ListPath:    filepath.Join(base, DefaultListFile),
		CookiesPath: filepath.Join(base, DefaultCookiesFile),
		OutputDir:   resolvePath(base, getEnv(EnvOutputDir, DefaultOutputDir)),
		LogPath:     resolvePath(base, getEnv(EnvLogFile, DefaultLogFile)),
		ReportPath:  filepath.Join(base, DefaultReportFile),
		LedgerDir:   filepath.Join(base, DefaultLedgerDir),
	}

	if cfg.JobTimeout, err = durationEnv(EnvJobTimeout, DefaultJobTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ProbeTimeout, err = durationEnv(EnvProbeTimeout, DefaultProbeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.KillGrace, err = durationEnv(EnvKillGrace, DefaultKillGrace); err != nil {
		return Config{}, err
	}

	quality, ok := normalizeQuality(getEnv(EnvQuality, DefaultQuality))
	if !ok {
		return Config{}, fmt.Errorf("invalid %s %q (expected best, 1080p, or 720p)", EnvQuality, os.Getenv(EnvQuality))
	}
	cfg.Quality = quality

	progress, ok := normalizeProgressMode(getEnv(EnvProgress, DefaultProgressMode))
	if !ok {
		return Config{}, fmt.Errorf("invalid %s %q (expected auto, tui, plain, or off)", EnvProgress, os.Getenv(EnvProgress))
	}
	cfg.Progress = progress

	if raw := strings.TrimSpace(os.Getenv(EnvRawOutput)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvRawOutput, raw, err)
		}
		cfg.RawOutput = v
	}
	return cfg, nil
}

// loadEnvFiles reads the optional .env files. godotenv.Load never overrides
// variables set by the caller's environment.
func loadEnvFiles(base string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(base, name)
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// ParseProgressMode validates a progress mode given on the command line.
func ParseProgressMode(raw string) (string, error) {
	mode, ok := normalizeProgressMode(raw)
	if !ok {
		return "", fmt.Errorf("invalid progress mode %q (expected auto, tui, plain, or off)", raw)
	}
	return mode, nil
}

// ParseQuality validates a quality preset given on the command line.
func ParseQuality(raw string) (string, error) {
	q, ok := normalizeQuality(raw)
	if !ok {
		return "", fmt.Errorf("invalid quality %q (expected best, 1080p, or 720p)", raw)
	}
	return q, nil
}

func normalizeQuality(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", QualityBest:
		return QualityBest, true
	case Quality1080p, "1080", "hd":
		return Quality1080p, true
	case Quality720p, "720", "sd":
		return Quality720p, true
	default:
		return "", false
	}
}

func normalizeProgressMode(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ProgressAuto:
		return ProgressAuto, true
	case ProgressTUI, "dashboard":
		return ProgressTUI, true
	case ProgressPlain, "lines":
		return ProgressPlain, true
	case ProgressOff, "none":
		return ProgressOff, true
	default:
		return "", false
	}
}
