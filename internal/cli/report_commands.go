package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"yt-playlist-recovery/internal/config"
	"yt-playlist-recovery/internal/ledger"
	"yt-playlist-recovery/internal/model"
	"yt-playlist-recovery/internal/runlog"
	"yt-playlist-recovery/internal/runstore"
)

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	baseDir := fs.String("base-dir", "", "directory holding the run report (default: current directory)")
	jsonOut := fs.Bool("json", false, "print the raw report JSON")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*baseDir)
	if err != nil {
		return err
	}
	var report model.RunReport
	if err := runstore.ReadJSON(cfg.ReportPath, &report); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no run report at %s; run a batch first", cfg.ReportPath)
		}
		return err
	}
	if *jsonOut {
		return printJSON(report)
	}

	fmt.Printf("Run %s (%s)\n", report.RunID, report.State)
	for _, e := range report.Entries {
		fmt.Println("  " + runlog.FormatOutcome(e.Job, e.Outcome))
	}
	printSummary(os.Stdout, report, cfg.LogPath)
	return nil
}

func runLedger(args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	baseDir := fs.String("base-dir", "", "directory holding the ledger (default: current directory)")
	forget := fs.String("forget", "", "playlist URL to remove so the next run checks it again")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*baseDir)
	if err != nil {
		return err
	}
	lock, err := runstore.AcquireRunLock(cfg.BaseDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := ledger.Open(cfg.LedgerDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if url := strings.TrimSpace(*forget); url != "" {
		if err := store.Forget(url); err != nil {
			return err
		}
		fmt.Println("forgot:", url)
		return nil
	}

	entries, err := store.List()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("no playlists recorded as complete")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %d videos  %s\n  %s\n", e.CompletedAt.Local().Format("2006-01-02 15:04"), e.VideoCount, e.Title, e.URL)
	}
	return nil
}
