// Package timer turns the widget's refresh delays into events on a channel
// consumed by a presenter loop.
package timer

import (
	"sync"
	"time"
)

// Event is sent when a scheduled refresh is due.
type Event struct {
	ID  int
	Due time.Time
}

// Service schedules one-shot refresh events.
// It owns ID generation, scheduling and cancellation. Events are delivered
// from timer goroutines; a delivery blocks until the receiver takes it or
// the service is closed.
type Service struct {
	events chan<- Event
	timers map[int]*entry
	nextID int
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

type entry struct {
	due  time.Time
	stop func() bool // time.Timer.Stop
}

// NewService creates a service that sends fired events to events.
func NewService(events chan<- Event) *Service {
	return &Service{
		events: events,
		timers: make(map[int]*entry),
		done:   make(chan struct{}),
	}
}

// After schedules an event d from now and returns its ID. After Close it
// returns 0 and schedules nothing.
func (s *Service) After(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	s.nextID++
	id := s.nextID

	due := time.Now().Add(d)
	t := time.AfterFunc(d, func() {
		s.fire(id)
	})
	s.timers[id] = &entry{due: due, stop: t.Stop}
	return id
}

// Reschedule cancels id and schedules a new event d from now.
func (s *Service) Reschedule(id int, d time.Duration) int {
	s.Cancel(id)
	return s.After(d)
}

func (s *Service) fire(id int) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok {
		s.mu.Unlock()
		return // Cancelled before firing
	}
	delete(s.timers, id)
	s.mu.Unlock()

	select {
	case s.events <- Event{ID: id, Due: e.due}:
	case <-s.done:
	}
}

// Cancel stops a pending event. Unknown IDs are ignored.
func (s *Service) Cancel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[id]; ok {
		e.stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of scheduled events not yet fired.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels every pending event and releases blocked deliveries.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, e := range s.timers {
		e.stop()
	}
	s.timers = make(map[int]*entry)
	close(s.done)
}
