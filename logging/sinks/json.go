package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"spellstorm/server/logging"
)

// JSON emits newline-delimited events. Writes land in a buffer that either
// flushes per event or on a timer, so steady traffic does not pay a syscall
// per line.
type JSON struct {
	mu       sync.Mutex
	buf      *bufio.Writer
	enc      *json.Encoder
	perWrite bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewJSON writes newline-delimited JSON to w. A non-positive flush interval
// flushes after every event instead of on a timer.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	s := &JSON{
		buf:      buf,
		enc:      json.NewEncoder(buf),
		perWrite: flushInterval <= 0,
		stop:     make(chan struct{}),
	}
	if !s.perWrite {
		go s.flushLoop(flushInterval)
	}
	return s
}

func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(event); err != nil {
		return err
	}
	if s.perWrite {
		return s.buf.Flush()
	}
	return nil
}

// Close flushes the buffer and stops the timer goroutine.
func (s *JSON) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Flush()
}

func (s *JSON) flushLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.buf.Flush()
			s.mu.Unlock()
		}
	}
}
