package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"spellstorm/server/logging"
	"spellstorm/server/spells"
	stats "spellstorm/server/stats"
)

// Hub owns the world, the live subscribers, and the staged command queue.
// The tick goroutine is the only one that steps the world; everything else
// stages commands under the mutex.
type Hub struct {
	mu          sync.Mutex
	world       *World
	subscribers map[string]*subscriber
	commands    []Command
	nextID      atomic.Uint64
	tick        atomic.Uint64
	telemetry   *telemetryCounters
	publisher   logging.Publisher
}

// subscriber wraps one client connection with serialized writes.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage serializes writes to the underlying connection and applies the
// shared write deadline.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *subscriber) Close() {
	s.conn.Close()
}

// TickRate reports the fixed simulation frequency in ticks per second.
func TickRate() int {
	return tickRate
}

// HeartbeatInterval reports how often clients are expected to ping.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}

// NewHub builds a hub around a freshly generated world. Catalog errors
// propagate so a bad deployment fails before it accepts players.
func NewHub(cfg worldConfig, publisher logging.Publisher) (*Hub, error) {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	world, err := newWorld(cfg, publisher)
	if err != nil {
		return nil, err
	}
	h := &Hub{
		world:       world,
		subscribers: make(map[string]*subscriber),
		commands:    make([]Command, 0),
		telemetry:   newTelemetryCounters(),
		publisher:   publisher,
	}
	world.telemetry = h.telemetry
	return h, nil
}

// newHeroState assembles the default hero at the arena spawn.
func newHeroState(id string, now time.Time) *playerState {
	player := &playerState{
		actorState: actorState{
			Actor: Actor{
				ID:      id,
				X:       defaultSpawnX,
				Y:       defaultSpawnY,
				FacingX: defaultFacingX,
				FacingY: defaultFacingY,
			},
			statuses: make(map[StatusKind]*statusInstance),
		},
		lastHeartbeat: now,
		cooldowns:     make(map[string]time.Time),
		spellLevels:   make(map[string]int),
	}
	player.stats = stats.DefaultComponent(stats.ArchetypeHero)
	return player
}

// Join registers a new hero and returns the latest snapshot.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	playerID := fmt.Sprintf("player-%d", id)
	player := newHeroState(playerID, time.Now())

	h.mu.Lock()
	h.world.AddPlayer(player)
	players, enemies, effects := h.world.Snapshot()
	spellIDs := h.world.spellbook.IDs()
	cfg := h.world.config
	h.mu.Unlock()

	go h.BroadcastNow()

	return joinResponse{
		Ver:     ProtocolVersion,
		ID:      playerID,
		Players: players,
		Enemies: enemies,
		Effects: effects,
		Spells:  spellIDs,
		Config:  cfg,
	}
}

// Subscribe attaches a socket to a joined player, displacing any previous
// connection, and hands back the snapshot to seed the client with.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) (*subscriber, []Player, []Enemy, []Effect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	player, ok := h.world.players[playerID]
	if !ok {
		return nil, nil, nil, nil, false
	}
	player.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[playerID]; ok {
		existing.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[playerID] = sub

	players, enemies, effects := h.world.Snapshot()
	return sub, players, enemies, effects, true
}

// Disconnect detaches and removes a player, closing their socket if one is
// attached. It reports whether the player was present.
func (h *Hub) Disconnect(playerID string) bool {
	h.mu.Lock()
	sub, subOK := h.subscribers[playerID]
	if subOK {
		delete(h.subscribers, playerID)
	}
	removed := h.world.RemovePlayer(playerID)
	h.mu.Unlock()

	if subOK {
		sub.Close()
	}
	return removed
}

// UpdateIntent stages the latest movement vector for a player.
func (h *Hub) UpdateIntent(playerID string, dx, dy float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.world.HasPlayer(playerID) {
		return false
	}
	h.commands = append(h.commands, Command{
		ActorID:  playerID,
		Type:     CommandMove,
		IssuedAt: time.Now(),
		Move:     &MoveCommand{DX: dx, DY: dy},
	})
	return true
}

// QueueCast stages a spell cast aimed along the given direction.
func (h *Hub) QueueCast(playerID, spell string, dirX, dirY float64) bool {
	if spell == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.world.HasPlayer(playerID) {
		return false
	}
	h.commands = append(h.commands, Command{
		ActorID:  playerID,
		Type:     CommandCast,
		IssuedAt: time.Now(),
		Cast:     &CastCommand{Spell: spell, DirX: dirX, DirY: dirY},
	})
	h.telemetry.RecordCast()
	return true
}

// UpdateHeartbeat stages a heartbeat and returns the measured RTT.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	player, ok := h.world.players[playerID]
	if !ok {
		return 0, false
	}

	rtt := player.lastRTT
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			if measured := receivedAt.Sub(clientTime); measured >= 0 {
				rtt = measured
			}
		}
	}

	h.commands = append(h.commands, Command{
		ActorID:   playerID,
		Type:      CommandHeartbeat,
		IssuedAt:  receivedAt,
		Heartbeat: &HeartbeatCommand{ReceivedAt: receivedAt, ClientSent: clientSent, RTT: rtt},
	})
	return rtt, true
}

// advance runs one simulation step and returns the broadcast payload plus
// subscribers whose players timed out.
func (h *Hub) advance(now time.Time, dt float64) ([]Player, []Enemy, []Effect, []DamageEvent, []*subscriber) {
	tick := h.tick.Add(1)

	h.mu.Lock()
	commands := h.commands
	h.commands = nil

	removed := h.world.Step(tick, now, dt, commands)

	toClose := make([]*subscriber, 0, len(removed))
	for _, id := range removed {
		if sub, ok := h.subscribers[id]; ok {
			toClose = append(toClose, sub)
			delete(h.subscribers, id)
		}
	}

	players, enemies, effects := h.world.Snapshot()
	events := h.world.drainDamageEvents()
	h.mu.Unlock()

	return players, enemies, effects, events, toClose
}

// RunSimulation steps the world on the fixed tick cadence until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(prev).Seconds()
			prev = now
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}

			players, enemies, effects, events, toClose := h.advance(now, dt)
			for _, sub := range toClose {
				sub.Close()
			}
			h.broadcastState(players, enemies, effects, events)
			h.telemetry.RecordTickDuration(time.Since(now))
		}
	}
}

// DiagnosticsSnapshot lists connectivity data for every tracked player.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]diagnosticsPlayer, 0, len(h.world.players))
	for _, player := range h.world.players {
		out = append(out, diagnosticsPlayer{
			Ver:           ProtocolVersion,
			ID:            player.ID,
			LastHeartbeat: player.lastHeartbeat.UnixMilli(),
			RTTMillis:     player.lastRTT.Milliseconds(),
		})
	}
	return out
}

// TelemetrySnapshot exposes the hub counters for the diagnostics endpoint.
func (h *Hub) TelemetrySnapshot() telemetrySnapshot {
	return h.telemetry.Snapshot()
}

// RecordTelemetryBroadcast folds an out-of-band state write into the
// broadcast counters.
func (h *Hub) RecordTelemetryBroadcast(bytes, entities int) {
	h.telemetry.RecordBroadcast(bytes, entities)
}

// SpellCatalog returns the resolved spell entries, keyed by id.
func (h *Hub) SpellCatalog() map[string]spells.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.spellbook.Entries()
}

// ReloadSpells re-reads the catalog sources. On failure the previous catalog
// stays live and the error describes the rejected document.
func (h *Hub) ReloadSpells() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.spellbook.Reload()
}

// MarshalState renders a state message for the given snapshot and reports
// how many entities it carries.
func (h *Hub) MarshalState(players []Player, enemies []Enemy, effects []Effect, events []DamageEvent) ([]byte, int, error) {
	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       "state",
		Tick:       h.tick.Load(),
		Players:    players,
		Enemies:    enemies,
		Effects:    effects,
		Events:     events,
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, 0, err
	}
	return data, len(players) + len(enemies) + len(effects), nil
}

// BroadcastNow snapshots the world and pushes a state message to every
// subscriber outside the tick cadence.
func (h *Hub) BroadcastNow() {
	h.mu.Lock()
	players, enemies, effects := h.world.Snapshot()
	h.mu.Unlock()
	h.broadcastState(players, enemies, effects, nil)
}

// broadcastState sends the latest snapshot to every subscriber. The message
// is marshaled once and shared across connections.
func (h *Hub) broadcastState(players []Player, enemies []Enemy, effects []Effect, events []DamageEvent) {
	data, entities, err := h.MarshalState(players, enemies, effects, events)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}
	h.telemetry.RecordBroadcast(len(data), entities)

	type target struct {
		id  string
		sub *subscriber
	}
	h.mu.Lock()
	targets := make([]target, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		targets = append(targets, target{id: id, sub: sub})
	}
	h.mu.Unlock()

	for _, t := range targets {
		if err := t.sub.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("failed to send update to %s: %v", t.id, err)
			if h.Disconnect(t.id) {
				go h.BroadcastNow()
			}
		}
	}
}
