//go:build !unix

package ytdlp

import (
	"os/exec"
	"time"
)

func configureProcess(cmd *exec.Cmd, grace time.Duration) {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	cmd.WaitDelay = grace
}
