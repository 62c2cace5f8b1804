//go:build linux

package sock

import "golang.org/x/sys/unix"

// newSocket creates a non-blocking, close-on-exec IPv4 stream socket.
func newSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}
