package server

import (
	"math"
	"time"

	stats "spellstorm/server/stats"
)

// Actor captures the shared wire state for any living entity in the arena.
type Actor struct {
	ID        string           `json:"id"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	FacingX   float64          `json:"facingX"`
	FacingY   float64          `json:"facingY"`
	Health    float64          `json:"health"`
	MaxHealth float64          `json:"maxHealth"`
	Statuses  []StatusSnapshot `json:"statuses,omitempty"`
	Charges   []ChargeSnapshot `json:"charges,omitempty"`
}

// Player is the wire snapshot for a hero.
type Player struct {
	Actor
}

type EnemyType string

const EnemyTypeStalker EnemyType = "stalker"

// Enemy is the wire snapshot for AI-controlled actors.
type Enemy struct {
	Actor
	Type EnemyType `json:"type"`
}

const (
	defaultFacingX = 0.0
	defaultFacingY = 1.0
)

// deriveFacing keeps an actor pointed along its latest movement direction,
// holding the previous facing while idle.
func deriveFacing(dx, dy, fallbackX, fallbackY float64) (float64, float64) {
	if nx, ny, ok := normalizeVector(dx, dy); ok {
		return nx, ny
	}
	if nx, ny, ok := normalizeVector(fallbackX, fallbackY); ok {
		return nx, ny
	}
	return defaultFacingX, defaultFacingY
}

type actorState struct {
	Actor
	intentX  float64
	intentY  float64
	stats    stats.Component
	statuses map[StatusKind]*statusInstance
	riders   []damageRider
	charges  []*chargeAccumulator

	// scramble* hold the current disorientation jitter between rerolls.
	scrambleX    float64
	scrambleY    float64
	scrambleLeft float64
}

func (s *actorState) snapshotActor() Actor {
	actor := s.Actor
	if actor.FacingX == 0 && actor.FacingY == 0 {
		actor.FacingX = defaultFacingX
		actor.FacingY = defaultFacingY
	}
	actor.Statuses = s.statusSnapshots()
	actor.Charges = s.chargeSnapshots()
	return actor
}

func (s *actorState) alive() bool {
	return s != nil && s.Health > 0
}

// applyHealthDelta adjusts the actor's health while clamping to
// [0, MaxHealth]. It returns true when the stored value actually changes.
func (s *actorState) applyHealthDelta(delta float64) bool {
	if delta == 0 {
		return false
	}
	ceiling := s.MaxHealth
	if ceiling <= 0 {
		ceiling = math.Inf(1)
	}
	next := clamp(s.Health+delta, 0, ceiling)
	if diff := next - s.Health; diff > -1e-6 && diff < 1e-6 {
		return false
	}
	s.Health = next
	return true
}

// playerState wraps actorState with connection metadata. Only the hub mutates
// the heartbeat fields; the simulation owns everything else.
type playerState struct {
	actorState
	lastInput     time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
	cooldowns     map[string]time.Time
	spellLevels   map[string]int
}

func (s *playerState) snapshot() Player {
	return Player{Actor: s.snapshotActor()}
}

// spellLevel reports the player's mastery of a spell. Every spell starts at
// level one.
func (s *playerState) spellLevel(spellID string) int {
	if s == nil {
		return 1
	}
	if level, ok := s.spellLevels[spellID]; ok && level > 0 {
		return level
	}
	return 1
}

type enemyState struct {
	actorState
	Type EnemyType
}

func (s *enemyState) snapshot() Enemy {
	return Enemy{Actor: s.snapshotActor(), Type: s.Type}
}
