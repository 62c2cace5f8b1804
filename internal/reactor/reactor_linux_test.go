//go:build linux

package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func startManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, m.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after Close")
		}
	})
	return m
}

func TestManager_DispatchesReadable(t *testing.T) {
	m := startManager(t)
	a, b := socketPair(t)

	fired := make(chan int, 4)
	require.NoError(t, m.WatchFdForNonBlockingReads(a, func(fd int) { fired <- fd }))
	assert.True(t, m.Watching(a))

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	select {
	case fd := <-fired:
		assert.Equal(t, a, fd)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestManager_HangupIsReadable(t *testing.T) {
	m := startManager(t)
	a, b := socketPair(t)

	fired := make(chan struct{}, 4)
	require.NoError(t, m.WatchFdForNonBlockingReads(a, func(int) { fired <- struct{}{} }))
	require.NoError(t, unix.Shutdown(b, unix.SHUT_WR))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("hang-up not reported")
	}
}

func TestManager_StopWatching(t *testing.T) {
	m := startManager(t)
	a, b := socketPair(t)

	fired := make(chan struct{}, 4)
	require.NoError(t, m.WatchFdForNonBlockingReads(a, func(int) { fired <- struct{}{} }))
	require.NoError(t, m.StopWatchingFileDescriptor(a))
	assert.False(t, m.Watching(a))
	assert.ErrorIs(t, m.StopWatchingFileDescriptor(a), ErrFDNotRegistered)

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("callback fired after StopWatchingFileDescriptor")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManager_RegistrationErrors(t *testing.T) {
	m := startManager(t)
	a, _ := socketPair(t)

	assert.ErrorIs(t, m.WatchFdForNonBlockingReads(-1, func(int) {}), ErrFDOutOfRange)
	require.NoError(t, m.WatchFdForNonBlockingReads(a, func(int) {}))
	assert.ErrorIs(t, m.WatchFdForNonBlockingReads(a, func(int) {}), ErrFDAlreadyRegistered)

	require.Eventually(t, m.running.Load, time.Second, time.Millisecond)
	assert.ErrorIs(t, m.Run(context.Background()), ErrRunning)
}

func TestManager_RunStopsOnContext(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored context cancellation")
	}
}

func TestManager_ClosedRejectsWork(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "Close must be idempotent")

	assert.ErrorIs(t, m.WatchFdForNonBlockingReads(3, func(int) {}), ErrClosed)
	assert.ErrorIs(t, m.Run(context.Background()), ErrClosed)
}
