//go:build !linux

package reactor

import "context"

// Manager is unavailable off Linux; New always fails.
type Manager struct{}

// New reports ErrUnsupported.
func New() (*Manager, error) { return nil, ErrUnsupported }

func (m *Manager) WatchFdForNonBlockingReads(int, ReadCallback) error { return ErrUnsupported }
func (m *Manager) StopWatchingFileDescriptor(int) error               { return ErrUnsupported }
func (m *Manager) Watching(int) bool                                  { return false }
func (m *Manager) Run(context.Context) error                          { return ErrUnsupported }
func (m *Manager) Close() error                                       { return nil }
