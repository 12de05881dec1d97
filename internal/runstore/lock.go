package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLockDirName   = ".run.lock"
	runLockOwnerFile = "owner.json"
)

// ErrLocked is returned when another live process holds the base directory.
var ErrLocked = errors.New("base directory is locked by another run")

type RunLock struct {
	lockDir string
}

type runLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// AcquireRunLock takes the batch lock for baseDir. A lock left behind by a
// process that no longer exists on this host is reclaimed once.
func AcquireRunLock(baseDir string) (RunLock, error) {
	target := strings.TrimSpace(baseDir)
	if target == "" {
		return RunLock{}, fmt.Errorf("base directory is required")
	}

	lockDir := filepath.Join(target, runLockDirName)
	for attempt := 0; ; attempt++ {
		err := os.Mkdir(lockDir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return RunLock{}, fmt.Errorf("acquire run lock for %s: %w", target, err)
		}

		ownerPath := filepath.Join(lockDir, runLockOwnerFile)
		var owner runLockOwner
		readErr := ReadJSON(ownerPath, &owner)
		if readErr == nil && attempt == 0 && isStale(owner) {
			_ = os.Remove(ownerPath)
			_ = os.Remove(lockDir)
			continue
		}
		if readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
			return RunLock{}, fmt.Errorf(
				"%w: %s (pid=%d created_at=%s host=%s)",
				ErrLocked, target, owner.PID, owner.CreatedAt, owner.Hostname,
			)
		}
		return RunLock{}, fmt.Errorf("%w: %s", ErrLocked, target)
	}

	owner := runLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, runLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return RunLock{}, fmt.Errorf("write run lock owner for %s: %w", target, err)
	}

	return RunLock{lockDir: lockDir}, nil
}

func (l RunLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, runLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release run lock %s: %w", l.lockDir, err)
	}
	return nil
}

func isStale(owner runLockOwner) bool {
	if owner.PID <= 0 || owner.Hostname != hostnameOrUnknown() {
		return false
	}
	return !processAlive(owner.PID)
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
