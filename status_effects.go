package server

import (
	"context"
	"sort"

	statuslog "spellstorm/server/logging/statuseffects"
	stats "spellstorm/server/stats"
)

type StatusKind string

// StatusClass selects which timer machinery drives a status record.
type StatusClass uint8

const (
	// StatusClassTimed runs a single remaining-duration countdown.
	StatusClassTimed StatusClass = iota
	// StatusClassDot adds a damage cadence on top of the countdown.
	StatusClassDot
	// StatusClassBuildup accumulates stacks that decay one at a time and
	// transition to a terminal status at max.
	StatusClassBuildup
	// StatusClassZone exists only while an external pass reports the target
	// inside the zone; it carries no timers of its own.
	StatusClassZone
)

type statusHandler func(w *World, target *actorState, inst *statusInstance)

// StatusDefinition is the per-kind template. Every kind shares the same state
// machine; definitions differ only in numbers, element, and hook behavior.
type StatusDefinition struct {
	Kind          StatusKind
	Class         StatusClass
	Duration      float64 // seconds, default when the cast supplies none
	TickInterval  float64 // dot cadence in seconds
	Magnitude     float64 // default multiplier or scalar
	Element       ElementTag
	MaxStacks     int
	DecayInterval float64
	Terminal      StatusKind // installed when a buildup reaches max stacks
	PauseDecay    func(w *World, target *actorState) bool
	OnApply       statusHandler // runs on install and on refresh
	OnTick        statusHandler // overrides the built-in dot damage when set
	OnExpire      statusHandler
}

// statusParams carries the per-cast numbers for an install or refresh. Zero
// values fall back to the definition defaults.
type statusParams struct {
	Magnitude     float64
	DamagePerTick float64
	Duration      float64
}

type statusInstance struct {
	Definition     *StatusDefinition
	SourceID       string
	Magnitude      float64
	DamagePerTick  float64
	duration       float64
	remaining      float64
	tickTimer      float64
	decayTimer     float64
	stacks         int
	attachedEffect *effectState
}

const (
	StatusSlow          StatusKind = "slow"
	StatusWeaken        StatusKind = "weaken"
	StatusFear          StatusKind = "fear"
	StatusDisorient     StatusKind = "disorient"
	StatusFrozen        StatusKind = "frozen"
	StatusDazed         StatusKind = "dazed"
	StatusBurn          StatusKind = "burn"
	StatusPoison        StatusKind = "poison"
	StatusFreezeBuildup StatusKind = "freeze-buildup"
	StatusPsychicBurn   StatusKind = "psychic-burn"
	StatusChillAura     StatusKind = "chill-aura"
)

const (
	slowDuration      = 3.0
	slowMagnitude     = 0.5
	weakenDuration    = 4.0
	weakenMagnitude   = 1.3
	fearDuration      = 3.0
	fearFleeScale     = 1.5
	disorientDuration = 3.0
	frozenDuration    = 2.0
	dazedDuration     = 2.5
	burnDuration      = 3.0
	burnTickInterval  = 0.5

	poisonDuration     = 3.0
	poisonTickInterval = 0.5

	freezeBuildupMaxStacks     = 5
	freezeBuildupDecayInterval = 3.0
	psychicBurnMaxStacks       = 10
	psychicBurnDecayInterval   = 1.0

	chillAuraSlowScale = 0.5
)

type statusEndReason string

const (
	statusEndExpired  statusEndReason = "expired"
	statusEndCleansed statusEndReason = "cleansed"
	statusEndLeftZone statusEndReason = "left-zone"
)

func newStatusDefinitions() map[StatusKind]*StatusDefinition {
	return map[StatusKind]*StatusDefinition{
		StatusSlow: {
			Kind:      StatusSlow,
			Class:     StatusClassTimed,
			Duration:  slowDuration,
			Magnitude: slowMagnitude,
			OnApply:   applyStatMul(StatusSlow, stats.StatMoveSpeed, stats.LayerStatus),
			OnExpire:  clearStatModifier(StatusSlow, stats.LayerStatus),
		},
		StatusWeaken: {
			Kind:      StatusWeaken,
			Class:     StatusClassTimed,
			Duration:  weakenDuration,
			Magnitude: weakenMagnitude,
			OnApply:   applyStatMul(StatusWeaken, stats.StatDamageTaken, stats.LayerStatus),
			OnExpire:  clearStatModifier(StatusWeaken, stats.LayerStatus),
		},
		StatusFear: {
			// Movement reads the instance directly: feared actors flee the
			// source at Magnitude times their speed.
			Kind:      StatusFear,
			Class:     StatusClassTimed,
			Duration:  fearDuration,
			Magnitude: fearFleeScale,
		},
		StatusDisorient: {
			Kind:     StatusDisorient,
			Class:    StatusClassTimed,
			Duration: disorientDuration,
		},
		StatusFrozen: {
			Kind:     StatusFrozen,
			Class:    StatusClassTimed,
			Duration: frozenDuration,
			OnApply: composeHandlers(
				applyStatOverride(StatusFrozen, stats.StatMoveSpeed, 0, stats.LayerStatus),
				attachVisual(effectTypeFrozenVisual),
			),
			OnExpire: composeHandlers(
				clearStatModifier(StatusFrozen, stats.LayerStatus),
				releaseVisual(),
			),
		},
		StatusDazed: {
			Kind:     StatusDazed,
			Class:    StatusClassTimed,
			Duration: dazedDuration,
			OnApply: composeHandlers(
				applyStatOverride(StatusDazed, stats.StatMoveSpeed, 0, stats.LayerStatus),
				attachVisual(effectTypeDazedVisual),
			),
			OnExpire: composeHandlers(
				clearStatModifier(StatusDazed, stats.LayerStatus),
				releaseVisual(),
			),
		},
		StatusBurn: {
			Kind:         StatusBurn,
			Class:        StatusClassDot,
			Duration:     burnDuration,
			TickInterval: burnTickInterval,
			Element:      ElementFire,
			OnApply:      attachVisual(effectTypeBurningVisual),
			OnExpire:     releaseVisual(),
		},
		StatusPoison: {
			Kind:         StatusPoison,
			Class:        StatusClassDot,
			Duration:     poisonDuration,
			TickInterval: poisonTickInterval,
			Element:      ElementPoison,
			OnApply:      attachVisual(effectTypePoisonVisual),
			OnExpire:     releaseVisual(),
		},
		StatusFreezeBuildup: {
			Kind:          StatusFreezeBuildup,
			Class:         StatusClassBuildup,
			MaxStacks:     freezeBuildupMaxStacks,
			DecayInterval: freezeBuildupDecayInterval,
			Terminal:      StatusFrozen,
			PauseDecay: func(w *World, target *actorState) bool {
				return w.statusActive(target, StatusFrozen)
			},
		},
		StatusPsychicBurn: {
			Kind:          StatusPsychicBurn,
			Class:         StatusClassBuildup,
			MaxStacks:     psychicBurnMaxStacks,
			DecayInterval: psychicBurnDecayInterval,
			Terminal:      StatusDazed,
		},
		StatusChillAura: {
			Kind:      StatusChillAura,
			Class:     StatusClassZone,
			Magnitude: chillAuraSlowScale,
			OnApply:   applyStatMul(StatusChillAura, stats.StatMoveSpeed, stats.LayerEnvironment),
			OnExpire:  clearStatModifier(StatusChillAura, stats.LayerEnvironment),
		},
	}
}

// applyStatus installs or refreshes a timed or dot status. Re-application
// overwrites duration and magnitudes, never accumulates. Returns true when a
// new record was created.
func (w *World) applyStatus(target *actorState, kind StatusKind, source string, params statusParams) bool {
	if w == nil || target == nil || kind == "" || !target.alive() {
		return false
	}
	def, ok := w.statusDefs[kind]
	if !ok || def == nil {
		return false
	}
	if def.Class != StatusClassTimed && def.Class != StatusClassDot {
		return false
	}
	duration := params.Duration
	if duration <= 0 {
		duration = def.Duration
	}
	if duration <= 0 {
		return false
	}
	magnitude := params.Magnitude
	if magnitude == 0 {
		magnitude = def.Magnitude
	}

	if target.statuses == nil {
		target.statuses = make(map[StatusKind]*statusInstance)
	}
	inst, exists := target.statuses[kind]
	if !exists {
		inst = &statusInstance{
			Definition:    def,
			SourceID:      source,
			Magnitude:     magnitude,
			DamagePerTick: params.DamagePerTick,
			duration:      duration,
			remaining:     duration,
		}
		if def.Class == StatusClassDot && def.TickInterval > 0 {
			inst.tickTimer = def.TickInterval
		}
		target.statuses[kind] = inst
		if def.OnApply != nil {
			def.OnApply(w, target, inst)
		}
		w.logStatusApplied(target, inst, false)
		return true
	}

	inst.SourceID = source
	inst.Magnitude = magnitude
	inst.DamagePerTick = params.DamagePerTick
	inst.duration = duration
	inst.remaining = duration
	if inst.Definition == nil {
		inst.Definition = def
	}
	if def.Class == StatusClassDot && def.TickInterval > 0 && inst.tickTimer <= 0 {
		inst.tickTimer = def.TickInterval
	}
	if def.OnApply != nil {
		def.OnApply(w, target, inst)
	}
	w.logStatusApplied(target, inst, true)
	return false
}

// addStacks adds buildup stacks, capped at the definition max, and resets the
// decay timer. It returns true when the stack count sits at max after the
// call; kinds with a terminal status transition to it at that moment and the
// buildup record is cleared. Targets already under the terminal status accept
// no new stacks.
func (w *World) addStacks(target *actorState, kind StatusKind, count int, source string) bool {
	if w == nil || target == nil || kind == "" || count <= 0 || !target.alive() {
		return false
	}
	def, ok := w.statusDefs[kind]
	if !ok || def == nil || def.Class != StatusClassBuildup {
		return false
	}
	if def.MaxStacks <= 0 || def.DecayInterval <= 0 {
		return false
	}
	if def.Terminal != "" && w.statusActive(target, def.Terminal) {
		return false
	}

	if target.statuses == nil {
		target.statuses = make(map[StatusKind]*statusInstance)
	}
	inst, exists := target.statuses[kind]
	if !exists {
		inst = &statusInstance{
			Definition: def,
			SourceID:   source,
			decayTimer: def.DecayInterval,
		}
		target.statuses[kind] = inst
		if def.OnApply != nil {
			def.OnApply(w, target, inst)
		}
	}
	inst.SourceID = source
	inst.stacks += count
	if inst.stacks > def.MaxStacks {
		inst.stacks = def.MaxStacks
	}
	inst.decayTimer = def.DecayInterval

	threshold := inst.stacks >= def.MaxStacks
	if threshold && def.Terminal != "" {
		if def.OnExpire != nil {
			def.OnExpire(w, target, inst)
		}
		delete(target.statuses, kind)
		w.logStatusTriggered(target, def, inst.stacks)
		w.applyStatus(target, def.Terminal, source, statusParams{})
	}
	return threshold
}

// syncZoneStatus reconciles a zone-bound status against the membership
// computed for this tick. Idempotent: repeated calls with the same state do
// nothing.
func (w *World) syncZoneStatus(target *actorState, kind StatusKind, source string, magnitude float64, inside bool) {
	if w == nil || target == nil || kind == "" {
		return
	}
	def, ok := w.statusDefs[kind]
	if !ok || def == nil || def.Class != StatusClassZone {
		return
	}
	inst, present := target.statuses[kind]
	if present && inst == nil {
		delete(target.statuses, kind)
		present = false
	}
	if inside == present {
		if present && magnitude > 0 && magnitude != inst.Magnitude {
			inst.Magnitude = magnitude
			if def.OnApply != nil {
				def.OnApply(w, target, inst)
			}
		}
		return
	}
	if inside {
		if !target.alive() {
			return
		}
		if magnitude == 0 {
			magnitude = def.Magnitude
		}
		if target.statuses == nil {
			target.statuses = make(map[StatusKind]*statusInstance)
		}
		inst = &statusInstance{Definition: def, SourceID: source, Magnitude: magnitude}
		target.statuses[kind] = inst
		if def.OnApply != nil {
			def.OnApply(w, target, inst)
		}
		w.logStatusApplied(target, inst, false)
		return
	}
	w.removeStatus(target, kind, inst, statusEndLeftZone)
}

// cleanse removes the listed status kinds immediately. Missing records are
// skipped; a target that was never debuffed is indistinguishable from one
// whose debuff just expired.
func (w *World) cleanse(target *actorState, kinds ...StatusKind) int {
	if w == nil || target == nil || len(target.statuses) == 0 {
		return 0
	}
	removed := 0
	for _, kind := range kinds {
		inst, ok := target.statuses[kind]
		if !ok {
			continue
		}
		w.removeStatus(target, kind, inst, statusEndCleansed)
		removed++
	}
	return removed
}

func (w *World) advanceStatuses(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	for _, actor := range w.actorList {
		w.advanceActorStatuses(actor, dt)
	}
}

func (w *World) advanceActorStatuses(actor *actorState, dt float64) {
	if w == nil || actor == nil || len(actor.statuses) == 0 {
		return
	}
	kinds := make([]StatusKind, 0, len(actor.statuses))
	for kind := range actor.statuses {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		inst := actor.statuses[kind]
		if inst == nil || inst.Definition == nil {
			delete(actor.statuses, kind)
			continue
		}
		def := inst.Definition
		switch def.Class {
		case StatusClassTimed, StatusClassDot:
			if def.Class == StatusClassDot && def.TickInterval > 0 {
				inst.tickTimer -= dt
				timeLeft := inst.remaining
				for inst.tickTimer <= 0 && timeLeft > 0 {
					w.fireDotTick(actor, inst)
					inst.tickTimer += def.TickInterval
					timeLeft -= def.TickInterval
				}
			}
			inst.remaining -= dt
			if inst.remaining <= 0 {
				w.removeStatus(actor, kind, inst, statusEndExpired)
				continue
			}
			if inst.attachedEffect != nil {
				w.extendAttachedVisual(inst.attachedEffect, inst.remaining)
			}
		case StatusClassBuildup:
			if def.PauseDecay != nil && def.PauseDecay(w, actor) {
				continue
			}
			inst.decayTimer -= dt
			for inst.decayTimer <= 0 && inst.stacks > 0 {
				inst.stacks--
				inst.decayTimer += def.DecayInterval
			}
			if inst.stacks <= 0 {
				w.removeStatus(actor, kind, inst, statusEndExpired)
			}
		case StatusClassZone:
			// Membership is reconciled from live distances elsewhere.
		}
	}
}

func (w *World) fireDotTick(actor *actorState, inst *statusInstance) {
	def := inst.Definition
	if def.OnTick != nil {
		def.OnTick(w, actor, inst)
		return
	}
	w.applyDamage(inst.SourceID, actor, inst.DamagePerTick, def.Element)
}

func (w *World) removeStatus(actor *actorState, kind StatusKind, inst *statusInstance, reason statusEndReason) {
	if w == nil || actor == nil || inst == nil {
		return
	}
	if inst.Definition != nil && inst.Definition.OnExpire != nil {
		inst.Definition.OnExpire(w, actor, inst)
	} else if inst.attachedEffect != nil {
		w.expireAttachedVisual(inst.attachedEffect)
		inst.attachedEffect = nil
	}
	delete(actor.statuses, kind)
	w.logStatusEnded(actor, kind, reason)
}

func (w *World) statusActive(target *actorState, kind StatusKind) bool {
	if target == nil || len(target.statuses) == 0 {
		return false
	}
	_, ok := target.statuses[kind]
	return ok
}

func (w *World) stacksOf(target *actorState, kind StatusKind) int {
	if target == nil || len(target.statuses) == 0 {
		return 0
	}
	inst, ok := target.statuses[kind]
	if !ok || inst == nil {
		return 0
	}
	return inst.stacks
}

func (w *World) statusInstanceOf(target *actorState, kind StatusKind) *statusInstance {
	if target == nil || len(target.statuses) == 0 {
		return nil
	}
	return target.statuses[kind]
}

// StatusSnapshot is the wire view of one active status record.
type StatusSnapshot struct {
	Kind      StatusKind `json:"kind"`
	Remaining float64    `json:"remaining"`
	Stacks    int        `json:"stacks,omitempty"`
}

func (s *actorState) statusSnapshots() []StatusSnapshot {
	if s == nil || len(s.statuses) == 0 {
		return nil
	}
	kinds := make([]StatusKind, 0, len(s.statuses))
	for kind := range s.statuses {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	snapshots := make([]StatusSnapshot, 0, len(kinds))
	for _, kind := range kinds {
		inst := s.statuses[kind]
		if inst == nil || inst.Definition == nil {
			continue
		}
		snapshots = append(snapshots, StatusSnapshot{
			Kind:      kind,
			Remaining: remainingFraction(inst),
			Stacks:    inst.stacks,
		})
	}
	return snapshots
}

// remainingFraction reports how much of the status is left in [0, 1]. Timed
// records count down; buildups report stack fill; zone records are always
// full while present.
func remainingFraction(inst *statusInstance) float64 {
	def := inst.Definition
	switch def.Class {
	case StatusClassTimed, StatusClassDot:
		if inst.duration <= 0 {
			return 0
		}
		return clamp(inst.remaining/inst.duration, 0, 1)
	case StatusClassBuildup:
		if def.MaxStacks <= 0 {
			return 0
		}
		return clamp(float64(inst.stacks)/float64(def.MaxStacks), 0, 1)
	case StatusClassZone:
		return 1
	}
	return 0
}

func composeHandlers(handlers ...statusHandler) statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		for _, handler := range handlers {
			if handler != nil {
				handler(w, target, inst)
			}
		}
	}
}

func attachVisual(effectType string) statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		if w == nil || target == nil || inst == nil || inst.attachedEffect != nil {
			return
		}
		inst.attachedEffect = w.attachStatusVisual(target, effectType, inst.remaining)
	}
}

func releaseVisual() statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		if w == nil || inst == nil || inst.attachedEffect == nil {
			return
		}
		w.expireAttachedVisual(inst.attachedEffect)
		inst.attachedEffect = nil
	}
}

func applyStatMul(kind StatusKind, stat stats.StatID, layer stats.Layer) statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		if target == nil || inst == nil || inst.Magnitude <= 0 {
			return
		}
		delta := stats.NewStatDelta()
		delta.Mul[stat] = inst.Magnitude
		target.stats.Apply(stats.CommandStatChange{
			Layer:  layer,
			Source: statusSourceKey(kind, layer),
			Delta:  delta,
		})
	}
}

func applyStatOverride(kind StatusKind, stat stats.StatID, value float64, layer stats.Layer) statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		if target == nil {
			return
		}
		delta := stats.NewStatDelta()
		delta.Override[stat] = stats.OverrideValue{Active: true, Value: value}
		target.stats.Apply(stats.CommandStatChange{
			Layer:  layer,
			Source: statusSourceKey(kind, layer),
			Delta:  delta,
		})
	}
}

func clearStatModifier(kind StatusKind, layer stats.Layer) statusHandler {
	return func(w *World, target *actorState, inst *statusInstance) {
		if target == nil {
			return
		}
		target.stats.Apply(stats.CommandStatChange{
			Layer:  layer,
			Source: statusSourceKey(kind, layer),
			Remove: true,
		})
	}
}

func statusSourceKey(kind StatusKind, layer stats.Layer) stats.SourceKey {
	sourceKind := stats.SourceKindStatus
	if layer == stats.LayerEnvironment {
		sourceKind = stats.SourceKindZone
	}
	return stats.SourceKey{Kind: sourceKind, ID: string(kind)}
}

func (w *World) logStatusApplied(target *actorState, inst *statusInstance, refreshed bool) {
	if w == nil || w.publisher == nil || target == nil || inst == nil || inst.Definition == nil {
		return
	}
	payload := statuslog.AppliedPayload{
		Status:          string(inst.Definition.Kind),
		SourceID:        inst.SourceID,
		DurationSeconds: inst.duration,
		Magnitude:       inst.Magnitude,
	}
	if refreshed {
		statuslog.Refreshed(context.Background(), w.publisher, w.currentTick,
			w.entityRef(inst.SourceID), w.entityRef(target.ID), payload, nil)
		return
	}
	statuslog.Applied(context.Background(), w.publisher, w.currentTick,
		w.entityRef(inst.SourceID), w.entityRef(target.ID), payload, nil)
}

func (w *World) logStatusEnded(target *actorState, kind StatusKind, reason statusEndReason) {
	if w == nil || w.publisher == nil || target == nil {
		return
	}
	statuslog.Ended(context.Background(), w.publisher, w.currentTick,
		w.entityRef(target.ID),
		statuslog.EndedPayload{Status: string(kind), Reason: string(reason)}, nil)
}

func (w *World) logStatusTriggered(target *actorState, def *StatusDefinition, stacks int) {
	if w == nil || w.publisher == nil || target == nil || def == nil {
		return
	}
	statuslog.Triggered(context.Background(), w.publisher, w.currentTick,
		w.entityRef(target.ID),
		statuslog.TriggeredPayload{
			Status:   string(def.Kind),
			Terminal: string(def.Terminal),
			Stacks:   stacks,
		}, nil)
}
