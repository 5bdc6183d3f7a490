package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies event timestamps so tests can pin time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives routed events. Write runs on a dedicated goroutine per sink
// and must treat the event as read-only.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// NamedSink pairs a sink with the name used in fallback log lines.
type NamedSink struct {
	Name string
	Sink Sink
}

// RouterStats reports router counters for the diagnostics endpoint.
type RouterStats struct {
	EventsTotal  uint64 `json:"eventsTotal"`
	DroppedTotal uint64 `json:"droppedTotal"`
}

// Router fans events out to sinks. Publish is non-blocking: events flow
// through a buffered queue to one dispatch goroutine, which stamps and
// isolates them before handing them to per-sink delivery lanes. A full queue
// sheds the event rather than stall the tick loop.
type Router struct {
	queue  chan Event
	stop   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	clock       Clock
	minSeverity Severity
	fields      map[string]any
	sinks       []*sinkQueue
	fallback    *log.Logger

	dropWarnEvery time.Duration
	nextDropWarn  atomic.Int64

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
}

// NewRouter starts a router over the given sinks. A nil clock falls back to
// the wall clock; nil sinks are skipped.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	queueSize := cfg.BufferSize
	if queueSize <= 0 {
		queueSize = 512
	}
	warnEvery := cfg.DropWarnInterval
	if warnEvery <= 0 {
		warnEvery = 5 * time.Second
	}
	r := &Router{
		queue:         make(chan Event, queueSize),
		stop:          make(chan struct{}),
		clock:         clock,
		minSeverity:   cfg.MinimumSeverity,
		fields:        cloneFieldMap(cfg.Fields),
		fallback:      log.New(os.Stderr, "[logging] ", log.LstdFlags),
		dropWarnEvery: warnEvery,
	}

	laneSize := queueSize
	if laneSize < 32 {
		laneSize = 32
	}
	if laneSize > 1024 {
		laneSize = 1024
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.sinks = append(r.sinks, &sinkQueue{
			name:     named.Name,
			sink:     named.Sink,
			in:       make(chan Event, laneSize),
			fallback: r.fallback,
		})
	}

	r.wg.Add(1)
	go r.dispatch()
	for _, lane := range r.sinks {
		r.wg.Add(1)
		go func(lane *sinkQueue) {
			defer r.wg.Done()
			lane.run()
		}(lane)
	}
	return r, nil
}

// Publish queues an event for delivery. Untyped events and publishes after
// Close are ignored.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.recordDrop(event)
	}
}

// dispatch owns the queue. On stop it flushes whatever is still queued, then
// closes the lanes so their goroutines drain and exit.
func (r *Router) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.queue:
			r.deliver(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.deliver(event)
				default:
					for _, lane := range r.sinks {
						close(lane.in)
					}
					return
				}
			}
		}
	}
}

// deliver stamps and isolates one event, then offers it to every lane. All
// lanes share the stamped value, so nothing may mutate it afterwards.
func (r *Router) deliver(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = isolate(event, r.fields)
	r.eventsTotal.Add(1)
	for _, lane := range r.sinks {
		lane.offer(event)
	}
}

// isolate rebuilds the event's shared slices and maps so sink goroutines
// never alias the publisher's data, folding router fields in along the way.
func isolate(event Event, fields map[string]any) Event {
	if len(event.Targets) > 0 {
		event.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if len(fields) > 0 {
		return mergeExtra(event, fields)
	}
	if event.Extra != nil {
		event.Extra = cloneFieldMap(event.Extra)
	}
	return event
}

func (r *Router) recordDrop(event Event) {
	r.droppedTotal.Add(1)
	now := time.Now().UnixNano()
	next := r.nextDropWarn.Load()
	if now < next {
		return
	}
	if r.nextDropWarn.CompareAndSwap(next, now+r.dropWarnEvery.Nanoseconds()) {
		r.fallback.Printf("queue full, dropped %s (tick %d)", event.Type, event.Tick)
	}
}

// Close stops intake, flushes queued events through the lanes, then closes
// the sinks. A second Close waits on the context and reports its error.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		r.wg.Wait()
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}
	var closeErr error
	for _, lane := range r.sinks {
		if err := lane.sink.Close(ctx); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// sinkQueue serializes writes to one sink. A failing sink backs off with a
// doubling delay so it cannot spin, and a full lane sheds the event so one
// slow sink never stalls the others.
type sinkQueue struct {
	name     string
	sink     Sink
	in       chan Event
	fallback *log.Logger
}

func (q *sinkQueue) offer(event Event) {
	select {
	case q.in <- event:
	default:
		q.fallback.Printf("sink %s lane full, dropped %s", q.name, event.Type)
	}
}

func (q *sinkQueue) run() {
	var backoff time.Duration
	for event := range q.in {
		if backoff > 0 {
			time.Sleep(backoff)
		}
		if err := q.sink.Write(event); err != nil {
			backoff = nextBackoff(backoff)
			q.fallback.Printf("sink %s write failed: %v (next write in %s)", q.name, err, backoff)
			continue
		}
		backoff = 0
	}
}

func nextBackoff(current time.Duration) time.Duration {
	const ceiling = 32 * time.Second
	if current <= 0 {
		return time.Second
	}
	if current >= ceiling/2 {
		return ceiling
	}
	return current * 2
}
