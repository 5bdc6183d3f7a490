package lifecycle

import (
	"context"

	"spellstorm/server/logging"
)

const (
	// EventPlayerJoined is emitted when a hero enters the arena.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a hero leaves the arena.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventPlayerDefeated is emitted when a hero's health reaches zero.
	EventPlayerDefeated logging.EventType = "lifecycle.player_defeated"
	// EventEnemyDefeated is emitted when an enemy is destroyed.
	EventEnemyDefeated logging.EventType = "lifecycle.enemy_defeated"
)

// PlayerJoinedPayload captures spawn coordinates for a new hero.
type PlayerJoinedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerDisconnectedPayload captures the reason a hero left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// PlayerDefeatedPayload records where a hero fell.
type PlayerDefeatedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EnemyDefeatedPayload names the enemy archetype that was destroyed.
type EnemyDefeatedPayload struct {
	Type string `json:"type"`
}

// PlayerJoined publishes a hero join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerJoined, tick, actor, payload, extra)
}

// PlayerDisconnected publishes a hero departure event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDisconnected, tick, actor, payload, extra)
}

// PlayerDefeated publishes a hero defeat event.
func PlayerDefeated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDefeatedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDefeated, tick, actor, payload, extra)
}

// EnemyDefeated publishes an enemy defeat event.
func EnemyDefeated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EnemyDefeatedPayload, extra map[string]any) {
	publish(ctx, pub, EventEnemyDefeated, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
