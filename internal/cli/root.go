package cli

import "fmt"

// Run dispatches a command line. No arguments runs the recovery batch.
func Run(args []string) error {
	if len(args) == 0 {
		return runRecover(nil)
	}

	switch args[0] {
	case "run":
		return runRecover(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "report":
		return runReport(args[1:])
	case "ledger":
		return runLedger(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("yt-playlist-recovery: download every playlist in list.txt, one at a time")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  yt-playlist-recovery               run the batch in the current directory")
	fmt.Println("  yt-playlist-recovery run [flags]   same, with overrides")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      process list.txt with cookies.txt into downloads/")
	fmt.Println("  doctor   check yt-dlp, ffmpeg, inputs, and directories")
	fmt.Println("  report   show the last run report")
	fmt.Println("  ledger   list or forget playlists recorded as complete")
	fmt.Println()
	fmt.Println("Files (relative to the base directory):")
	fmt.Println("  list.txt              one playlist URL per line (# comments allowed)")
	fmt.Println("  cookies.txt           browser cookies in Netscape format")
	fmt.Println("  downloads/            one folder per playlist")
	fmt.Println("  download_log.txt      append-only log, one line per playlist")
	fmt.Println("  recovery_report.json  machine-readable report of the last run")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  YTPR_BASE_DIR, YTPR_OUTPUT_DIR, YTPR_LOG_FILE, YTPR_JOB_TIMEOUT (20m),")
	fmt.Println("  YTPR_PROBE_TIMEOUT (120s), YTPR_KILL_GRACE (10s), YTPR_QUALITY (best|1080p|720p),")
	fmt.Println("  YTPR_PROGRESS (auto|tui|plain|off), YTPR_RAW_OUTPUT (true|false)")
	fmt.Println("  Values may also come from .env or .env.local in the base directory.")
}
