package server

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"spellstorm/server/logging"
	lifecyclelog "spellstorm/server/logging/lifecycle"
	spelllog "spellstorm/server/logging/spells"
	"spellstorm/server/spells"
	stats "spellstorm/server/stats"
)

// CommandType names the kinds of staged input the world consumes per tick.
type CommandType string

const (
	CommandMove      CommandType = "Move"
	CommandCast      CommandType = "Cast"
	CommandHeartbeat CommandType = "Heartbeat"
)

// Command is one staged input. Exactly one of the pointer fields is set,
// matching Type.
type Command struct {
	OriginTick uint64
	ActorID    string
	Type       CommandType
	IssuedAt   time.Time
	Move       *MoveCommand
	Cast       *CastCommand
	Heartbeat  *HeartbeatCommand
}

// MoveCommand carries the desired movement vector.
type MoveCommand struct {
	DX float64
	DY float64
}

// CastCommand names a spell and the direction it is aimed along. A zero
// direction falls back to the caster's facing.
type CastCommand struct {
	Spell string
	DirX  float64
	DirY  float64
}

// HeartbeatCommand refreshes a player's connectivity bookkeeping.
type HeartbeatCommand struct {
	ReceivedAt time.Time
	ClientSent int64
	RTT        time.Duration
}

// World owns the authoritative simulation state. All mutation happens on the
// tick goroutine; the hub serializes access with its own mutex.
type World struct {
	players     map[string]*playerState
	enemies     map[string]*enemyState
	actorList   []*actorState
	effects     []*effectState
	targetIndex *targetIndex

	statusDefs map[StatusKind]*StatusDefinition
	zoneKinds  []StatusKind
	spellbook  *spells.Resolver

	damageEvents    []DamageEvent
	damageObservers []DamageObserver

	nextEffectID uint64
	nextEnemyID  uint64
	waveTimer    float64

	config      worldConfig
	seed        string
	rng         *rand.Rand
	publisher   logging.Publisher
	telemetry   *telemetryCounters
	currentTick uint64
}

// newWorld constructs an arena, loads the spell catalog, and seeds the first
// enemy wave. A catalog that fails validation aborts construction.
func newWorld(cfg worldConfig, publisher logging.Publisher) (*World, error) {
	normalized := cfg.normalized()

	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	w := &World{
		players:     make(map[string]*playerState),
		enemies:     make(map[string]*enemyState),
		actorList:   make([]*actorState, 0),
		effects:     make([]*effectState, 0),
		targetIndex: newTargetIndex(targetGridCellSize),
		statusDefs:  newStatusDefinitions(),
		config:      normalized,
		seed:        normalized.Seed,
		rng:         newDeterministicRNG(normalized.Seed, "world"),
		publisher:   publisher,
	}
	w.zoneKinds = zoneStatusKinds(w.statusDefs)

	paths := normalized.CatalogPaths
	if len(paths) == 0 {
		paths = spells.DefaultPaths()
	}
	spellbook, err := spells.Load(w.spellRegistry(), paths...)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	w.spellbook = spellbook

	w.spawnWave(normalized.EnemyCount)
	w.waveTimer = normalized.WaveInterval
	return w, nil
}

// zoneStatusKinds lists the kinds driven by zone membership, in a fixed order
// so the per-tick sync pass is reproducible.
func zoneStatusKinds(defs map[StatusKind]*StatusDefinition) []StatusKind {
	kinds := make([]StatusKind, 0, 1)
	for kind, def := range defs {
		if def != nil && def.Class == StatusClassZone {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (w *World) resolveStats(tick uint64) {
	for _, actor := range w.actorList {
		actor.stats.Resolve(tick)
		w.syncMaxHealth(actor)
	}
}

// syncMaxHealth mirrors the resolved max-health stat onto the wire struct,
// scaling current health when the cap moves.
func (w *World) syncMaxHealth(actor *actorState) {
	if w == nil || actor == nil {
		return
	}
	maxHealth := actor.stats.GetTotal(stats.StatMaxHealth)
	if maxHealth <= 0 || maxHealth == actor.MaxHealth {
		return
	}
	if actor.MaxHealth > 0 && actor.Health > 0 {
		actor.Health = actor.Health * maxHealth / actor.MaxHealth
	} else if actor.Health > maxHealth {
		actor.Health = maxHealth
	}
	actor.MaxHealth = maxHealth
}

// actorByID resolves either roster. Stale ids return nil so effect callbacks
// referencing removed actors degrade to no-ops.
func (w *World) actorByID(id string) *actorState {
	if w == nil || id == "" {
		return nil
	}
	if player, ok := w.players[id]; ok {
		return &player.actorState
	}
	if enemy, ok := w.enemies[id]; ok {
		return &enemy.actorState
	}
	return nil
}

func (w *World) entityRef(id string) logging.EntityRef {
	if w == nil || id == "" {
		return logging.EntityRef{}
	}
	kind := logging.EntityKindUnknown
	switch {
	case w.players[id] != nil:
		kind = logging.EntityKindPlayer
	case w.enemies[id] != nil:
		kind = logging.EntityKindEnemy
	case strings.HasPrefix(id, "effect-"):
		kind = logging.EntityKindEffect
	}
	return logging.EntityRef{ID: id, Kind: kind}
}

// HasPlayer reports whether id names a live hero.
func (w *World) HasPlayer(id string) bool {
	_, ok := w.players[id]
	return ok
}

// AddPlayer registers a new hero state with the world.
func (w *World) AddPlayer(state *playerState) {
	if state == nil {
		return
	}
	state.stats.Resolve(w.currentTick)
	w.syncMaxHealth(&state.actorState)
	if state.MaxHealth > 0 && state.Health <= 0 {
		state.Health = state.MaxHealth
	}
	w.players[state.ID] = state
	w.actorList = append(w.actorList, &state.actorState)
	if w.publisher != nil {
		lifecyclelog.PlayerJoined(context.Background(), w.publisher, w.currentTick,
			w.entityRef(state.ID),
			lifecyclelog.PlayerJoinedPayload{X: state.X, Y: state.Y}, nil)
	}
}

// RemovePlayer forgets a hero. Their in-flight effects stay live until they
// expire on their own.
func (w *World) RemovePlayer(id string) bool {
	player, ok := w.players[id]
	if !ok {
		return false
	}
	delete(w.players, id)
	w.removeFromActorList(&player.actorState)
	return true
}

func (w *World) removeFromActorList(target *actorState) {
	filtered := w.actorList[:0]
	for _, actor := range w.actorList {
		if actor != target {
			filtered = append(filtered, actor)
		}
	}
	for i := len(filtered); i < len(w.actorList); i++ {
		w.actorList[i] = nil
	}
	w.actorList = filtered
}

// Step runs one tick: stats, staged input, casts, movement, effects,
// statuses, charges, defeat sweeps, and waves, in that order. It returns the
// ids of players dropped for missed heartbeats.
func (w *World) Step(tick uint64, now time.Time, dt float64, commands []Command) []string {
	if dt <= 0 {
		dt = 1.0 / float64(tickRate)
	}

	w.currentTick = tick
	w.resolveStats(tick)

	type stagedCast struct {
		actorID string
		command *CastCommand
	}
	stagedCasts := make([]stagedCast, 0)

	for _, cmd := range commands {
		switch cmd.Type {
		case CommandMove:
			if cmd.Move == nil {
				continue
			}
			player, ok := w.players[cmd.ActorID]
			if !ok {
				continue
			}
			dx, dy := cmd.Move.DX, cmd.Move.DY
			// Clamp intent to the unit disc; analog sticks inside it keep
			// their magnitude.
			if mag := math.Hypot(dx, dy); mag > 1 {
				dx, dy = dx/mag, dy/mag
			}
			player.intentX, player.intentY = dx, dy
			if dx != 0 || dy != 0 {
				player.FacingX, player.FacingY = deriveFacing(dx, dy, player.FacingX, player.FacingY)
			}
			player.lastInput = now
			if !cmd.IssuedAt.IsZero() {
				player.lastInput = cmd.IssuedAt
			}
		case CommandCast:
			if cmd.Cast == nil {
				continue
			}
			stagedCasts = append(stagedCasts, stagedCast{actorID: cmd.ActorID, command: cmd.Cast})
		case CommandHeartbeat:
			if cmd.Heartbeat == nil {
				continue
			}
			if player, ok := w.players[cmd.ActorID]; ok {
				player.lastHeartbeat = cmd.Heartbeat.ReceivedAt
				player.lastRTT = cmd.Heartbeat.RTT
			}
		}
	}

	for _, cast := range stagedCasts {
		if _, err := w.castSpell(cast.actorID, cast.command.Spell, cast.command.DirX, cast.command.DirY, now); err != nil {
			w.logCastRejected(cast.actorID, cast.command.Spell, err)
		}
	}

	w.resolveMovement(dt)
	w.targetIndex.rebuild(w.actorList)
	w.advanceAreaEffects(dt)
	w.advanceStatuses(dt)
	w.checkChargeTriggers()
	w.sweepDefeated()
	w.advanceWaves(dt)

	// Heroes that stopped heartbeating get dropped here rather than in the
	// hub, so a headless world ages them out the same way.
	cutoff := now.Add(-disconnectAfter)
	removed := make([]string, 0)
	for id, player := range w.players {
		if player.lastHeartbeat.IsZero() || !player.lastHeartbeat.Before(cutoff) {
			continue
		}
		if w.publisher != nil {
			lifecyclelog.PlayerDisconnected(context.Background(), w.publisher, w.currentTick,
				w.entityRef(id),
				lifecyclelog.PlayerDisconnectedPayload{Reason: "timeout"},
				map[string]any{"lastHeartbeat": player.lastHeartbeat})
		}
		w.RemovePlayer(id)
		removed = append(removed, id)
	}
	sort.Strings(removed)

	return removed
}

// sweepDefeated retires dead enemies and respawns dead heroes. Health is
// authoritative here; nothing else in the pipeline removes actors.
func (w *World) sweepDefeated() {
	defeated := make([]*enemyState, 0)
	for _, enemy := range w.enemies {
		if enemy.Health <= 0 {
			defeated = append(defeated, enemy)
		}
	}
	sort.Slice(defeated, func(i, j int) bool { return defeated[i].ID < defeated[j].ID })
	for _, enemy := range defeated {
		if w.publisher != nil {
			lifecyclelog.EnemyDefeated(context.Background(), w.publisher, w.currentTick,
				w.entityRef(enemy.ID),
				lifecyclelog.EnemyDefeatedPayload{Type: string(enemy.Type)}, nil)
		}
		delete(w.enemies, enemy.ID)
		w.removeFromActorList(&enemy.actorState)
	}

	for _, player := range w.players {
		if player.Health <= 0 {
			w.respawnPlayer(player)
		}
	}
}

// respawnPlayer returns a downed hero to the spawn point at full health with
// a clean slate of statuses and drained charges. Learned passives persist.
func (w *World) respawnPlayer(player *playerState) {
	if player == nil {
		return
	}
	if w.publisher != nil {
		lifecyclelog.PlayerDefeated(context.Background(), w.publisher, w.currentTick,
			w.entityRef(player.ID),
			lifecyclelog.PlayerDefeatedPayload{X: player.X, Y: player.Y}, nil)
	}
	kinds := make([]StatusKind, 0, len(player.statuses))
	for kind := range player.statuses {
		kinds = append(kinds, kind)
	}
	w.cleanse(&player.actorState, kinds...)
	for _, acc := range player.charges {
		acc.current = 0
	}
	player.X = defaultSpawnX
	player.Y = defaultSpawnY
	player.intentX, player.intentY = 0, 0
	player.scrambleX, player.scrambleY, player.scrambleLeft = 0, 0, 0
	if player.MaxHealth > 0 {
		player.Health = player.MaxHealth
	}
}

// advanceWaves counts down to the next reinforcement wave.
func (w *World) advanceWaves(dt float64) {
	if w.config.EnemyCount <= 0 || dt <= 0 {
		return
	}
	w.waveTimer -= dt
	if w.waveTimer > 0 {
		return
	}
	w.waveTimer += w.config.WaveInterval
	missing := w.config.EnemyCount - len(w.enemies)
	if missing > 0 {
		w.spawnWave(missing)
	}
}

// spawnWave rings the arena center with stalkers.
func (w *World) spawnWave(count int) {
	for i := 0; i < count; i++ {
		angle := w.randomAngle()
		dist := w.randomDistance(enemySpawnRadius*0.5, enemySpawnRadius)
		x := clamp(defaultSpawnX+math.Cos(angle)*dist, actorHalf, arenaWidth-actorHalf)
		y := clamp(defaultSpawnY+math.Sin(angle)*dist, actorHalf, arenaHeight-actorHalf)
		w.spawnStalkerAt(x, y)
	}
}

func (w *World) spawnStalkerAt(x, y float64) *enemyState {
	w.nextEnemyID++
	enemy := &enemyState{
		actorState: actorState{
			Actor: Actor{
				ID:      fmt.Sprintf("enemy-%d", w.nextEnemyID),
				X:       x,
				Y:       y,
				FacingX: defaultFacingX,
				FacingY: defaultFacingY,
			},
			statuses: make(map[StatusKind]*statusInstance),
		},
		Type: EnemyTypeStalker,
	}
	enemy.stats = stats.DefaultComponent(stats.ArchetypeStalker)
	enemy.stats.Resolve(w.currentTick)
	w.syncMaxHealth(&enemy.actorState)
	enemy.Health = enemy.MaxHealth
	w.enemies[enemy.ID] = enemy
	w.actorList = append(w.actorList, &enemy.actorState)
	return enemy
}

func (w *World) logCastRejected(actorID, spellID string, err error) {
	if w == nil || w.publisher == nil || err == nil {
		return
	}
	spelllog.CastRejected(context.Background(), w.publisher, w.currentTick,
		w.entityRef(actorID),
		spelllog.CastRejectedPayload{Spell: spellID, Reason: err.Error()}, nil)
}

// Snapshot copies players, enemies, and effects into broadcast-friendly
// structs, sorted by id so every client sees the same ordering.
func (w *World) Snapshot() ([]Player, []Enemy, []Effect) {
	players := make([]Player, 0, len(w.players))
	for _, player := range w.players {
		players = append(players, player.snapshot())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	enemies := make([]Enemy, 0, len(w.enemies))
	for _, enemy := range w.enemies {
		enemies = append(enemies, enemy.snapshot())
	}
	sort.Slice(enemies, func(i, j int) bool { return enemies[i].ID < enemies[j].ID })

	return players, enemies, w.snapshotEffects()
}
