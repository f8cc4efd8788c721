package jobs

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrLockHeld means another orchestrator owns the lock file; the caller should exit cleanly
var ErrLockHeld = errors.New("instance lock held by another process")

// InstanceLock is an exclusive advisory flock on a file
type InstanceLock struct {
	file *os.File
}

// AcquireInstanceLock takes a non-blocking exclusive flock on path.
// The lock is tied to the open file description, so a second acquisition
// fails even from the same process.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// pid is informational only
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	return &InstanceLock{file: f}, nil
}

// Release drops the lock. The file itself is left in place.
func (l *InstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
