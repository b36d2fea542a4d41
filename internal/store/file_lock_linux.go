//go:build linux

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes an OS-level advisory exclusive lock on f's file
// descriptor via flock(2), so a second lotteryd process pointed at the same
// path cannot interleave writes with this one. Returns an unlock function.
func lockExclusive(f *os.File) (func(), error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() { _ = unix.Flock(int(f.Fd()), unix.LOCK_UN) }, nil
}
