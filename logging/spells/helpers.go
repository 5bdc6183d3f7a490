package spells

import (
	"context"

	"spellstorm/server/logging"
)

const (
	// EventCast is emitted when a cast resolves into effect instances.
	EventCast logging.EventType = "spells.cast"
	// EventEffectSpawned is emitted when an effect instance enters the world.
	EventEffectSpawned logging.EventType = "spells.effect_spawned"
	// EventEffectEnded is emitted when an effect instance is destroyed.
	EventEffectEnded logging.EventType = "spells.effect_ended"
	// EventChargeReleased is emitted when a charge bar fills and discharges.
	EventChargeReleased logging.EventType = "spells.charge_released"
	// EventCastRejected is emitted when a cast fails resolution or gating.
	EventCastRejected logging.EventType = "spells.cast_rejected"
)

// CastPayload captures the resolved cast parameters.
type CastPayload struct {
	Spell     string  `json:"spell"`
	Element   string  `json:"element,omitempty"`
	Damage    float64 `json:"damage"`
	Instances int     `json:"instances"`
}

// EffectPayload identifies one effect instance. Reason is set on end events.
type EffectPayload struct {
	Effect  string `json:"effect"`
	Type    string `json:"effectType"`
	Element string `json:"element,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ChargePayload captures a released accumulator.
type ChargePayload struct {
	Charge  string  `json:"charge"`
	Element string  `json:"element,omitempty"`
	Amount  float64 `json:"amount"`
}

// CastRejectedPayload names the spell and why the cast was refused.
type CastRejectedPayload struct {
	Spell  string `json:"spell"`
	Reason string `json:"reason"`
}

// Cast publishes a spell cast event.
func Cast(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CastPayload, extra map[string]any) {
	publish(ctx, pub, EventCast, tick, actor, logging.SeverityInfo, payload, extra)
}

// EffectSpawned publishes an effect creation event.
func EffectSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EffectPayload, extra map[string]any) {
	publish(ctx, pub, EventEffectSpawned, tick, actor, logging.SeverityDebug, payload, extra)
}

// EffectEnded publishes an effect destruction event.
func EffectEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EffectPayload, extra map[string]any) {
	publish(ctx, pub, EventEffectEnded, tick, actor, logging.SeverityDebug, payload, extra)
}

// ChargeReleased publishes a charge discharge event.
func ChargeReleased(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ChargePayload, extra map[string]any) {
	publish(ctx, pub, EventChargeReleased, tick, actor, logging.SeverityInfo, payload, extra)
}

// CastRejected publishes a refused cast. Rejections are routine (cooldown
// gating, unknown spells) so they log at debug.
func CastRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CastRejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventCastRejected, tick, actor, logging.SeverityDebug, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, severity logging.Severity, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	})
}
