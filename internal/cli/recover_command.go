package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"yt-playlist-recovery/internal/batch"
	"yt-playlist-recovery/internal/config"
	"yt-playlist-recovery/internal/input"
	"yt-playlist-recovery/internal/ledger"
	"yt-playlist-recovery/internal/model"
	"yt-playlist-recovery/internal/runlog"
	"yt-playlist-recovery/internal/runner"
	"yt-playlist-recovery/internal/runstore"
	"yt-playlist-recovery/internal/ytdlp"
)

type recoverFlags struct {
	baseDir  string
	progress string
	quality  string
	jsonOut  bool
	noLedger bool
}

func runRecover(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var f recoverFlags
	fs.StringVar(&f.baseDir, "base-dir", "", "directory holding list.txt and cookies.txt (default: current directory)")
	fs.StringVar(&f.progress, "progress", "", "progress display: auto, tui, plain, or off")
	fs.StringVar(&f.quality, "quality", "", "video quality: best, 1080p, or 720p")
	fs.BoolVar(&f.jsonOut, "json", false, "print the run report as JSON instead of a summary")
	fs.BoolVar(&f.noLedger, "no-ledger", false, "ignore the completion ledger and re-check every playlist")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg, err := config.Load(f.baseDir)
	if err != nil {
		return err
	}
	if strings.TrimSpace(f.progress) != "" {
		if cfg.Progress, err = config.ParseProgressMode(f.progress); err != nil {
			return err
		}
	}
	if strings.TrimSpace(f.quality) != "" {
		if cfg.Quality, err = config.ParseQuality(f.quality); err != nil {
			return err
		}
	}

	in, err := input.Load(input.Paths{ListPath: cfg.ListPath, CookiesPath: cfg.CookiesPath})
	if err != nil {
		return err
	}
	if err := ytdlp.CheckDependencies(); err != nil {
		return err
	}

	lock, err := runstore.AcquireRunLock(cfg.BaseDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			warnf("%v", err)
		}
	}()

	var store *ledger.Store
	if !f.noLedger {
		store, err = ledger.Open(cfg.LedgerDir)
		if err != nil {
			warnf("completion ledger unavailable, every playlist will be checked: %v", err)
			store = nil
		}
		defer func() {
			if err := store.Close(); err != nil {
				warnf("close completion ledger: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mode := resolveProgressMode(cfg.Progress)
	obs, dash := newObserver(mode, cancel)

	var echo io.Writer
	if cfg.RawOutput && mode != config.ProgressTUI {
		echo = os.Stderr
	}
	opts := runner.Options{
		OutputDir:    cfg.OutputDir,
		CookiesPath:  in.CookiesPath,
		Quality:      cfg.Quality,
		JobTimeout:   cfg.JobTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
		KillGrace:    cfg.KillGrace,
		Downloader:   runner.YTDLP{KillGrace: cfg.KillGrace, Echo: echo},
		Fallback:     ytdlp.NativeProber{},
		Warn:         obs.OnWarning,
	}
	if store != nil {
		opts.Ledger = ledgerAdapter{store: store}
	}
	r, err := runner.New(opts)
	if err != nil {
		if dash != nil {
			_ = dash.Stop()
		}
		return err
	}

	orch := &batch.Orchestrator{
		OutputDir: cfg.OutputDir,
		Runner:    r,
		Log:       runlog.New(cfg.LogPath),
		Observer:  obs,
	}
	report, runErr := orch.Execute(ctx, in.Jobs)
	if dash != nil {
		if report.State == model.BatchNotStarted {
			_ = dash.Stop()
		} else if err := dash.Wait(); err != nil {
			warnf("progress view: %v", err)
		}
	}
	if runErr != nil && report.State == model.BatchNotStarted {
		return runErr
	}

	if err := runstore.WriteJSON(cfg.ReportPath, report); err != nil {
		warnf("write run report: %v", err)
	}

	if f.jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printSummary(os.Stdout, report, cfg.LogPath)
	}

	if errors.Is(runErr, batch.ErrInterrupted) {
		return fmt.Errorf("run interrupted after %d of %d playlists", len(report.Entries), len(in.Jobs))
	}
	return runErr
}

// resolveProgressMode turns auto into a concrete mode for this terminal.
func resolveProgressMode(mode string) string {
	if mode != config.ProgressAuto {
		return mode
	}
	if isTerminal(os.Stdout) && isTerminal(os.Stdin) {
		return config.ProgressTUI
	}
	return config.ProgressPlain
}

func newObserver(mode string, cancel context.CancelFunc) (batch.Observer, *batch.Dashboard) {
	switch mode {
	case config.ProgressTUI:
		d := batch.NewDashboard(os.Stdin, os.Stdout, cancel)
		d.Start()
		return d, d
	case config.ProgressOff:
		return quietObserver{}, nil
	default:
		return batch.NewLineObserver(os.Stdout, os.Stderr), nil
	}
}

// quietObserver drops progress but still surfaces warnings.
type quietObserver struct {
	batch.NopObserver
}

func (quietObserver) OnWarning(msg string) { warnf("%s", msg) }

type ledgerAdapter struct {
	store *ledger.Store
}

func (a ledgerAdapter) Lookup(url string) (runner.Completion, bool, error) {
	e, ok, err := a.store.Lookup(url)
	if err != nil || !ok {
		return runner.Completion{}, ok, err
	}
	return runner.Completion(e), true, nil
}

func (a ledgerAdapter) MarkComplete(c runner.Completion) error {
	return a.store.MarkComplete(ledger.Entry(c))
}
