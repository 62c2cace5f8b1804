package sock

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

// pollFunc matches unix.Poll; tests substitute it.
type pollFunc func(fds []unix.PollFd, timeoutMs int) (int, error)

// connectEvents are the readiness bits that end the wait for a
// non-blocking connect.
const connectEvents = unix.POLLIN | unix.POLLOUT | unix.POLLHUP

// waitReady polls fd until it is ready or deadline passes.  An
// interrupted poll is retried with the time remaining until the
// original deadline, so signals neither fail the wait nor extend it.
func waitReady(poll pollFunc, now func() time.Time, fd int, deadline time.Time) (int, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: connectEvents}}
	for {
		n, err := poll(fds, remainingMillis(deadline, now()))
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// remainingMillis converts the time left until deadline into a poll
// timeout.  Partial milliseconds round up so the wait never ends early;
// a passed deadline yields 0 (check once, do not block).
func remainingMillis(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
