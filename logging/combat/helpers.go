package combat

import (
	"context"

	"spellstorm/server/logging"
)

const (
	// EventDamage is emitted when a hit resolves against a target.
	EventDamage logging.EventType = "combat.damage"
	// EventHeal is emitted when a target recovers health.
	EventHeal logging.EventType = "combat.heal"
)

// DamagePayload captures one resolved hit. Requested is the post-mitigation
// ask; Applied is what the health pool actually absorbed.
type DamagePayload struct {
	Element   string  `json:"element,omitempty"`
	Requested float64 `json:"requested"`
	Applied   float64 `json:"applied"`
	Remaining float64 `json:"remaining"`
}

// HealPayload captures restored health.
type HealPayload struct {
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
}

// Damage publishes a combat damage event.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Heal publishes a combat heal event.
func Heal(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload HealPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHeal,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
