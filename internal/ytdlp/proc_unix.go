//go:build unix

package ytdlp

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// configureProcess puts yt-dlp in its own process group so cancellation also
// reaches the ffmpeg children it spawns for merging.
func configureProcess(cmd *exec.Cmd, grace time.Duration) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	cmd.WaitDelay = waitDelay(grace)
}

func waitDelay(grace time.Duration) time.Duration {
	if grace <= 0 {
		return 5 * time.Second
	}
	return grace
}
