package service

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultStatusResetDelay is the delay after which a terminal status reverts to idle.
const DefaultStatusResetDelay = 2 * time.Second

// A SyncState is the state of the sync status indicator.
type SyncState int

// Sync states.
const (
	StateIdle SyncState = iota
	StateSyncing
	StateSuccess
	StateError
)

func (s SyncState) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// A SyncStatus is a state of the indicator, Message is only set on error.
type SyncStatus struct {
	State   SyncState
	Message string
}

func (s SyncStatus) String() string {
	if s.State == StateError {
		return "error: " + s.Message
	}
	return s.State.String()
}

// Terminal returns true for success and error.
func (s SyncStatus) Terminal() bool {
	return s.State == StateSuccess || s.State == StateError
}

// A StatusIndicator tracks the sync status read by the presentation.
// Terminal statuses revert to idle after a delay.
type StatusIndicator struct {
	// notifying serializes transitions with their notifications so observers see them in order.
	notifying  sync.Mutex
	mu         sync.Mutex
	status     SyncStatus
	generation uint64
	debounced  func(func())
	observers  []func(SyncStatus)
}

// NewStatusIndicator returns an idle indicator reverting after delay, DefaultStatusResetDelay when delay is not positive.
func NewStatusIndicator(delay time.Duration) *StatusIndicator {
	if delay <= 0 {
		delay = DefaultStatusResetDelay
	}
	return &StatusIndicator{
		debounced: debounce.New(delay),
	}
}

// Status returns the current status.
func (s *StatusIndicator) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Observe registers a callback notified on every transition.
func (s *StatusIndicator) Observe(fn func(SyncStatus)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Syncing marks the beginning of a pass.
func (s *StatusIndicator) Syncing() {
	s.set(SyncStatus{State: StateSyncing})
}

// Succeed marks the end of a successful pass.
func (s *StatusIndicator) Succeed() {
	s.set(SyncStatus{State: StateSuccess})
}

// Fail marks the end of a failed pass.
func (s *StatusIndicator) Fail(message string) {
	s.set(SyncStatus{State: StateError, Message: message})
}

func (s *StatusIndicator) set(status SyncStatus) {
	s.notifying.Lock()
	defer s.notifying.Unlock()

	s.mu.Lock()
	s.status = status
	s.generation++
	generation := s.generation
	observers := append([]func(SyncStatus){}, s.observers...)
	s.mu.Unlock()

	if status.Terminal() {
		s.debounced(func() {
			s.revert(generation)
		})
	}

	for _, fn := range observers {
		fn(status)
	}
}

func (s *StatusIndicator) revert(generation uint64) {
	s.notifying.Lock()
	defer s.notifying.Unlock()

	s.mu.Lock()
	if s.generation != generation || !s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = SyncStatus{State: StateIdle}
	s.generation++
	observers := append([]func(SyncStatus){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(SyncStatus{State: StateIdle})
	}
}
