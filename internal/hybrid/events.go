package hybrid

import (
	"sync"

	"github.com/mdouchement/starving/internal/service"
)

// DefaultEventBuffer is the capacity of a subscription channel.
const DefaultEventBuffer = 32

type (
	// An Event is emitted by the Manager to its subscribers.
	Event interface {
		event()
	}

	// ImportSucceeded is emitted once a shared list has been imported.
	ImportSucceeded struct {
		ListID  string
		Count   int
		Message string
	}

	// ImportFailed is emitted when an import stops.
	ImportFailed struct {
		Reason service.ImportReason
		// Failure is the reason followed by the failure detail when there is one (e.g. "save-failed: <detail>").
		Failure string
		Message string
	}

	// SyncStatusChanged is emitted on every sync status transition.
	SyncStatusChanged struct {
		Status service.SyncStatus
	}
)

func (ImportSucceeded) event()   {}
func (ImportFailed) event()      {}
func (SyncStatusChanged) event() {}

type emitter struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func (e *emitter) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	if e.subscribers == nil {
		e.subscribers = map[chan Event]struct{}{}
	}
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subscribers, ch)
			e.mu.Unlock()
			close(ch)
		})
	}
}

// emit never blocks, a full subscriber misses the event.
func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
