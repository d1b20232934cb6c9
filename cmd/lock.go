package cmd

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/fetchd-app/fetchd/internal/config"
)

// instanceLock guards against two daemons fighting over the port file and
// the download directory.
var instanceLock *flock.Flock

// AcquireLock attempts to take the single-instance lock. It returns true
// when this process is the master instance and false when another daemon
// already holds the lock.
func AcquireLock() (bool, error) {
	lockPath := filepath.Join(config.FetchdDir(), "fetchd.lock")
	instanceLock = flock.New(lockPath)
	locked, err := instanceLock.TryLock()
	if err != nil {
		return false, err
	}
	return locked, nil
}

// ReleaseLock releases the single-instance lock if held.
func ReleaseLock() {
	if instanceLock != nil {
		_ = instanceLock.Unlock()
	}
}
