package cli

import (
	"flag"
	"fmt"

	"yt-playlist-recovery/internal/config"
	"yt-playlist-recovery/internal/input"
	"yt-playlist-recovery/internal/preflight"
)

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	baseDir := fs.String("base-dir", "", "directory holding list.txt and cookies.txt (default: current directory)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*baseDir)
	if err != nil {
		return err
	}
	res := preflight.Doctor(preflight.Options{BaseDir: cfg.BaseDir, OutputDir: cfg.OutputDir})

	in, inErr := input.Load(input.Paths{ListPath: cfg.ListPath, CookiesPath: cfg.CookiesPath})
	inputCheck := preflight.Check{Name: "inputs", OK: inErr == nil}
	if inErr != nil {
		inputCheck.Message = inErr.Error()
	} else {
		inputCheck.Message = fmt.Sprintf("%d playlists listed, cookies present", len(in.Jobs))
	}
	res.Add(inputCheck)

	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		fmt.Println("doctor:")
		for _, c := range res.Checks {
			status := "ok"
			if !c.OK {
				status = "fail"
			}
			fmt.Printf("  %s: %s (%s)\n", c.Name, status, c.Message)
		}
	}
	if !res.OK {
		return fmt.Errorf("doctor found issues")
	}
	return nil
}
