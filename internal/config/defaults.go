package config

import "time"

const (
	DefaultListFile    = "list.txt"
	DefaultCookiesFile = "cookies.txt"
	DefaultOutputDir   = "downloads"
	DefaultLogFile     = "download_log.txt"
	DefaultReportFile  = "recovery_report.json"
	DefaultLedgerDir   = ".recovery-ledger"

	DefaultJobTimeout   = 20 * time.Minute
	DefaultProbeTimeout = 120 * time.Second
	DefaultKillGrace    = 10 * time.Second
	DefaultQuality      = QualityBest
	DefaultProgressMode = ProgressAuto

	QualityBest  = "best"
	Quality1080p = "1080p"
	Quality720p  = "720p"

	ProgressAuto  = "auto"
	ProgressTUI   = "tui"
	ProgressPlain = "plain"
	ProgressOff   = "off"
)

const (
	EnvBaseDir      = "YTPR_BASE_DIR"
	EnvOutputDir    = "YTPR_OUTPUT_DIR"
	EnvLogFile      = "YTPR_LOG_FILE"
	EnvJobTimeout   = "YTPR_JOB_TIMEOUT"
	EnvProbeTimeout = "YTPR_PROBE_TIMEOUT"
	EnvKillGrace    = "YTPR_KILL_GRACE"
	EnvQuality      = "YTPR_QUALITY"
	EnvProgress     = "YTPR_PROGRESS"
	EnvRawOutput    = "YTPR_RAW_OUTPUT"
)
