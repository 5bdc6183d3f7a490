package logging

import (
	"context"
	"time"
)

// EventType names a structured event, namespaced by domain ("combat.damage").
type EventType string

// Severity orders events for filtering. The router drops anything below its
// configured minimum before it reaches a sink.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// EntityKind tags an EntityRef with the table the entity lives in.
type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindEnemy   EntityKind = "enemy"
	EntityKindEffect  EntityKind = "effect"
	EntityKindWorld   EntityKind = "world"
)

// EntityRef points at one entity without retaining it.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Event is the unit every sink receives. Payload shapes live in the domain
// packages; the router itself only reads Type, Time, and Severity.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	TraceID  string         `json:"traceId,omitempty"`
}

// Coarse category labels for downstream log pipelines.
const (
	CategoryGameplay  = "gameplay"
	CategoryCombat    = "combat"
	CategoryStatus    = "status"
	CategoryLifecycle = "lifecycle"
)

// Publisher accepts events for delivery. Implementations must not block;
// the world publishes from inside the tick loop.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

// NopPublisher returns a publisher that discards everything. Headless worlds
// use it so call sites never nil-check.
func NopPublisher() Publisher {
	return PublisherFunc(func(context.Context, Event) {})
}

// WithFields wraps a publisher so every event carries the given extra fields.
// Keys the event set itself win over the decorator's.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	pinned := cloneFieldMap(fields)
	return PublisherFunc(func(ctx context.Context, event Event) {
		p.Publish(ctx, mergeExtra(event, pinned))
	})
}

// mergeExtra folds fields into the event's extra map without touching either
// input map. The event's own entries win.
func mergeExtra(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	merged := make(map[string]any, len(fields)+len(event.Extra))
	for k, v := range fields {
		merged[k] = v
	}
	for k, v := range event.Extra {
		merged[k] = v
	}
	event.Extra = merged
	return event
}

func cloneFieldMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}
