package sinks

import (
	"context"
	"sync"

	"spellstorm/server/logging"
)

// Memory retains events in arrival order so integration tests can assert on
// the stream without scraping log output. Events are stored as handed over;
// the router already isolates them from the publisher.
type Memory struct {
	mu     sync.Mutex
	events []logging.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Write(event logging.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *Memory) Events() []logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logging.Event(nil), s.events...)
}

// EventsOfType filters the recorded events by type.
func (s *Memory) EventsOfType(eventType logging.EventType) []logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []logging.Event
	for _, event := range s.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *Memory) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

func (s *Memory) Close(context.Context) error {
	return nil
}
