//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive advisory lock on path, creating it if needed.
func lockFile(path string) (func(), error) {
	handle, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerms)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // file descriptors fit in an int
	if err = unix.Flock(int(handle.Fd()), unix.LOCK_EX); err != nil {
		_ = handle.Close()

		return nil, err
	}

	return func() {
		_ = unix.Flock(int(handle.Fd()), unix.LOCK_UN) //nolint:gosec // see above
		_ = handle.Close()
	}, nil
}
