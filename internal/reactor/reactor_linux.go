//go:build linux

package reactor

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Manager watches descriptors with epoll and runs callbacks on its
// dispatch goroutine.
type Manager struct {
	epfd   int
	wakefd int

	mu       sync.RWMutex // protects watchers
	watchers map[int]ReadCallback

	eventBuf  [128]unix.EpollEvent
	closed    atomic.Bool
	running   atomic.Bool
	exited    chan struct{}
	closeOnce sync.Once
}

// New creates a Manager.  Call Run to start dispatching and Close to
// release the epoll instance.
func New() (*Manager, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, err
	}
	return &Manager{
		epfd:     epfd,
		wakefd:   wakefd,
		watchers: make(map[int]ReadCallback),
		exited:   make(chan struct{}),
	}, nil
}

// WatchFdForNonBlockingReads registers cb for read readiness on fd.
// THREAD SAFE.
func (m *Manager) WatchFdForNonBlockingReads(fd int, cb ReadCallback) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if fd < 0 || fd == m.wakefd || fd == m.epfd {
		return ErrFDOutOfRange
	}

	m.mu.Lock()
	if _, ok := m.watchers[fd]; ok {
		m.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	m.watchers[fd] = cb
	m.mu.Unlock()

	ev := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		m.mu.Lock()
		delete(m.watchers, fd) // rollback
		m.mu.Unlock()
		return err
	}
	return nil
}

// StopWatchingFileDescriptor removes fd from the interest set.
//
// A callback copied by the dispatch goroutine just before this call may
// still run once after it returns.
func (m *Manager) StopWatchingFileDescriptor(fd int) error {
	m.mu.Lock()
	if _, ok := m.watchers[fd]; !ok {
		m.mu.Unlock()
		return ErrFDNotRegistered
	}
	delete(m.watchers, fd)
	m.mu.Unlock()

	if m.closed.Load() {
		return nil
	}
	err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

// Watching reports whether fd is currently registered.
func (m *Manager) Watching(fd int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.watchers[fd]
	return ok
}

// Run dispatches events until ctx is done or Close is called.  Only one
// Run may be active per Manager.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(m.exited)
	if m.closed.Load() {
		return ErrClosed
	}

	stop := context.AfterFunc(ctx, m.wake)
	defer stop()

	for {
		n, err := unix.EpollWait(m.epfd, m.eventBuf[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if m.dispatch(n) || m.closed.Load() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// dispatch runs callbacks for n ready events and reports whether a
// wakeup was seen.  Callbacks are copied under the read lock and called
// outside it.
func (m *Manager) dispatch(n int) (woken bool) {
	for i := 0; i < n; i++ {
		fd := int(m.eventBuf[i].Fd)
		if fd == m.wakefd {
			m.drainWake()
			woken = true
			continue
		}

		m.mu.RLock()
		cb := m.watchers[fd]
		m.mu.RUnlock()

		if cb != nil {
			cb(fd)
		}
	}
	return woken
}

func (m *Manager) wake() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	unix.Write(m.wakefd, buf[:]) //nolint:errcheck
}

func (m *Manager) drainWake() {
	var buf [8]byte
	unix.Read(m.wakefd, buf[:]) //nolint:errcheck
}

// Close stops Run (waiting for it to return) and releases the epoll
// instance.  Registered descriptors are not closed.  Idempotent.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.wake()
		if m.running.Load() {
			<-m.exited
		}
		m.mu.Lock()
		clear(m.watchers)
		m.mu.Unlock()
		err = unix.Close(m.epfd)
		unix.Close(m.wakefd)
	})
	return err
}
