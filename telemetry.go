package server

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// telemetryCounters aggregates hot-path counters for the diagnostics
// endpoint. Everything is atomic or mutex-guarded because broadcasts and the
// tick loop report from different goroutines.
type telemetryCounters struct {
	bytesSent             atomic.Uint64
	entitiesSent          atomic.Uint64
	tickDurationMillis    atomic.Int64
	lastBroadcastBytes    atomic.Uint64
	lastBroadcastEntities atomic.Uint64
	castsAccepted         atomic.Uint64
	debug                 bool

	mu             sync.Mutex
	effectSpawns   map[string]uint64
	effectTriggers map[string]uint64
	effectEnds     map[string]uint64
	effectsLive    int64
	effectsLiveHi  int64
}

type telemetrySnapshot struct {
	BytesSent             uint64            `json:"bytesSent"`
	EntitiesSent          uint64            `json:"entitiesSent"`
	TickDuration          int64             `json:"tickDurationMillis"`
	CastsAccepted         uint64            `json:"castsAccepted"`
	EffectsLive           int64             `json:"effectsLive"`
	EffectsLivePeak       int64             `json:"effectsLivePeak"`
	EffectSpawnsByType    map[string]uint64 `json:"effectSpawnsByType,omitempty"`
	EffectSpawnsByTrigger map[string]uint64 `json:"effectSpawnsByTrigger,omitempty"`
	EffectEndsByReason    map[string]uint64 `json:"effectEndsByReason,omitempty"`
}

func newTelemetryCounters() *telemetryCounters {
	t := &telemetryCounters{
		effectSpawns:   make(map[string]uint64),
		effectTriggers: make(map[string]uint64),
		effectEnds:     make(map[string]uint64),
	}
	if os.Getenv("SPELLSTORM_DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

func (t *telemetryCounters) RecordBroadcast(bytes, entities int) {
	if t == nil {
		return
	}
	b := uint64(max(bytes, 0))
	n := uint64(max(entities, 0))
	t.bytesSent.Add(b)
	t.entitiesSent.Add(n)
	t.lastBroadcastBytes.Store(b)
	t.lastBroadcastEntities.Store(n)
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	if t == nil {
		return
	}
	millis := max(duration.Milliseconds(), 0)
	t.tickDurationMillis.Store(millis)
	if !t.debug {
		return
	}
	fmt.Printf("[telemetry] tick=%dms lastBytes=%d totalBytes=%d lastEntities=%d totalEntities=%d\n",
		millis,
		t.lastBroadcastBytes.Load(), t.bytesSent.Load(),
		t.lastBroadcastEntities.Load(), t.entitiesSent.Load())
}

func (t *telemetryCounters) RecordCast() {
	if t == nil {
		return
	}
	t.castsAccepted.Add(1)
}

func (t *telemetryCounters) RecordEffectSpawn(effectType, trigger string) {
	if t == nil || effectType == "" {
		return
	}
	if trigger == "" {
		trigger = "unknown"
	}
	t.mu.Lock()
	t.effectSpawns[effectType]++
	t.effectTriggers[trigger]++
	t.effectsLive++
	if t.effectsLive > t.effectsLiveHi {
		t.effectsLiveHi = t.effectsLive
	}
	t.mu.Unlock()
}

func (t *telemetryCounters) RecordEffectEnd(reason string) {
	if t == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	t.mu.Lock()
	t.effectEnds[reason]++
	if t.effectsLive > 0 {
		t.effectsLive--
	}
	t.mu.Unlock()
}

func (t *telemetryCounters) DebugEnabled() bool {
	return t != nil && t.debug
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	if t == nil {
		return telemetrySnapshot{}
	}
	snap := telemetrySnapshot{
		BytesSent:     t.bytesSent.Load(),
		EntitiesSent:  t.entitiesSent.Load(),
		TickDuration:  t.tickDurationMillis.Load(),
		CastsAccepted: t.castsAccepted.Load(),
	}
	t.mu.Lock()
	snap.EffectsLive = t.effectsLive
	snap.EffectsLivePeak = t.effectsLiveHi
	snap.EffectSpawnsByType = copyCounts(t.effectSpawns)
	snap.EffectSpawnsByTrigger = copyCounts(t.effectTriggers)
	snap.EffectEndsByReason = copyCounts(t.effectEnds)
	t.mu.Unlock()
	return snap
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return nil
	}
	copied := make(map[string]uint64, len(src))
	for key, value := range src {
		copied[key] = value
	}
	return copied
}

// recordEffectSpawn feeds the world's telemetry, tolerating worlds built
// without counters in tests.
func (w *World) recordEffectSpawn(effectType, trigger string) {
	if w == nil || w.telemetry == nil {
		return
	}
	w.telemetry.RecordEffectSpawn(effectType, trigger)
}

func (w *World) recordEffectEnd(effectType, reason string) {
	if w == nil || w.telemetry == nil {
		return
	}
	w.telemetry.RecordEffectEnd(reason)
}
