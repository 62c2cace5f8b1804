//go:build darwin || freebsd || netbsd || openbsd

package sock

import "golang.org/x/sys/unix"

// newSocket creates a non-blocking, close-on-exec IPv4 stream socket.
// The flags cannot be set atomically here, so they are applied after
// creation.
func newSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
