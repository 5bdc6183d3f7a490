package statuseffects

import (
	"context"

	"spellstorm/server/logging"
)

const (
	// EventApplied is emitted when a status effect lands on an actor.
	EventApplied logging.EventType = "status.applied"
	// EventRefreshed is emitted when a reapplication resets the timer.
	EventRefreshed logging.EventType = "status.refreshed"
	// EventEnded is emitted when a status leaves an actor for any reason.
	EventEnded logging.EventType = "status.ended"
	// EventTriggered is emitted when a buildup reaches its threshold.
	EventTriggered logging.EventType = "status.triggered"
)

// AppliedPayload captures a status install or refresh.
type AppliedPayload struct {
	Status          string  `json:"status"`
	SourceID        string  `json:"sourceId,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Magnitude       float64 `json:"magnitude,omitempty"`
}

// EndedPayload names the status and why it went away.
type EndedPayload struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// TriggeredPayload captures a buildup crossing its stack threshold.
type TriggeredPayload struct {
	Status   string `json:"status"`
	Terminal string `json:"terminal,omitempty"`
	Stacks   int    `json:"stacks"`
}

// Applied publishes a status application event.
func Applied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload AppliedPayload, extra map[string]any) {
	publish(ctx, pub, EventApplied, tick, actor, []logging.EntityRef{target}, payload, extra)
}

// Refreshed publishes a status refresh event.
func Refreshed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload AppliedPayload, extra map[string]any) {
	publish(ctx, pub, EventRefreshed, tick, actor, []logging.EntityRef{target}, payload, extra)
}

// Ended publishes a status removal event.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload EndedPayload, extra map[string]any) {
	publish(ctx, pub, EventEnded, tick, target, nil, payload, extra)
}

// Triggered publishes a buildup threshold event.
func Triggered(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload TriggeredPayload, extra map[string]any) {
	publish(ctx, pub, EventTriggered, tick, target, nil, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryStatus,
		Payload:  payload,
		Extra:    extra,
	})
}
