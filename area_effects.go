package server

import (
	"context"
	"fmt"
	"math"

	spelllog "spellstorm/server/logging/spells"
)

// Effect is the wire snapshot of an active area effect (projectile, pulse,
// ground patch, burst, or a cosmetic child marker).
type Effect struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Owner     string             `json:"owner"`
	Element   ElementTag         `json:"element,omitempty"`
	X         float64            `json:"x"`
	Y         float64            `json:"y"`
	Radius    float64            `json:"radius,omitempty"`
	Remaining float64            `json:"remaining,omitempty"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// effectPattern selects which per-tick update drives an effect instance.
type effectPattern uint8

const (
	patternNone effectPattern = iota // cosmetic children and zone auras
	patternPulse
	patternPatch
	patternBurst
	patternProjectile
	patternEmitter
)

// statusApplication bundles a status kind with its per-cast numbers so an
// effect can install it on every target it touches.
type statusApplication struct {
	Kind   StatusKind
	Params statusParams
}

type effectSpawnFunc func(w *World, eff *effectState, x, y float64)

type effectState struct {
	Effect
	pattern   effectPattern
	remaining float64

	anchorID      string // pulse or emitter anchor; empty means fixed point
	followActorID string // cosmetic children track this actor

	interval     float64
	intervalLeft float64
	damage       float64
	maxTargets   int
	lifesteal    float64

	roamRange     float64 // pulses relocate within this range of the anchor
	roamInterval  float64
	roamTimer     float64
	flashEffect   string // one-shot cosmetic spawned on each pulse firing
	flashLifetime float64

	spawnDistance float64 // emitters drop only after the anchor moved this far
	lastDropX     float64
	lastDropY     float64

	damagePerStack float64
	randomScaleMin float64
	randomScaleMax float64

	readyToDamage bool // patch fired its interval this tick

	progress        float64
	expansionRate   float64
	damageAppliedAt float64
	damageApplied   bool

	velocityX       float64
	velocityY       float64
	collisionRadius float64

	hitStatuses    []statusApplication
	hitStacks      StatusKind
	hitStacksCount int
	cleanseKinds   []StatusKind

	zoneStatus    StatusKind
	zoneMagnitude float64

	patchTemplate *patchConfig // emitters drop one of these per interval
	onEnd         effectSpawnFunc

	children  []*effectState
	endReason string
}

const (
	effectTypeBurningVisual = "status-burning"
	effectTypePoisonVisual  = "status-poisoned"
	effectTypeFrozenVisual  = "status-frozen"
	effectTypeDazedVisual   = "status-dazed"
	effectTypeStormMarker   = "storm-marker"

	statusVisualMinLifetime = 0.1
)

type pulseConfig struct {
	Owner          string
	AnchorID       string
	X              float64
	Y              float64
	Radius         float64
	Interval       float64
	Duration       float64
	Damage         float64
	DamagePerStack float64
	MaxTargets     int
	Lifesteal      float64
	Element        ElementTag
	EffectType     string
	HitStatuses    []statusApplication
	HitStacks      StatusKind
	HitStacksCount int
	CleanseKinds   []StatusKind
	RandomScaleMin float64
	RandomScaleMax float64
	RoamRange      float64 // relocate near the anchor instead of tracking it
	RoamInterval   float64
	FlashEffect    string // one-shot visual spawned on every firing
	FlashLifetime  float64
	Markers        int // cosmetic children that follow the pulse
}

type patchConfig struct {
	Owner         string
	X             float64
	Y             float64
	Radius        float64
	Lifetime      float64
	TickInterval  float64
	DamagePerTick float64
	Element       ElementTag
	EffectType    string
	HitStatuses   []statusApplication
}

type burstConfig struct {
	Owner           string
	X               float64
	Y               float64
	MaxRadius       float64
	Duration        float64 // seconds for the visual to reach full size
	DamageAppliedAt float64 // fraction of expansion at which damage lands
	Damage          float64
	Element         ElementTag
	EffectType      string
	HitStatuses     []statusApplication
	CleanseKinds    []StatusKind
}

type projectileConfig struct {
	Owner           string
	X               float64
	Y               float64
	DirX            float64
	DirY            float64
	Speed           float64
	Lifetime        float64
	CollisionRadius float64
	Damage          float64
	Lifesteal       float64
	Element         ElementTag
	EffectType      string
	HitStatuses     []statusApplication
	HitStacks       StatusKind
	HitStacksCount  int
	OnEnd           effectSpawnFunc
}

type auraConfig struct {
	Owner      string
	AnchorID   string
	Radius     float64
	Duration   float64
	ZoneStatus StatusKind
	Magnitude  float64
	EffectType string
}

type emitterConfig struct {
	Owner         string
	AnchorID      string
	Interval      float64 // time-gated drops; zero disables
	SpawnDistance float64 // distance-gated drops; zero disables
	Duration      float64
	EffectType    string
	Patch         patchConfig // position is overwritten with the anchor's
}

func (w *World) newEffectState(effectType, owner string, x, y, radius, lifetime float64) *effectState {
	w.nextEffectID++
	return &effectState{
		Effect: Effect{
			ID:     fmt.Sprintf("effect-%d", w.nextEffectID),
			Type:   effectType,
			Owner:  owner,
			X:      x,
			Y:      y,
			Radius: radius,
		},
		remaining: lifetime,
	}
}

func (w *World) spawnPulse(cfg pulseConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("pulse %q: world is nil", cfg.EffectType)
	}
	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("pulse %q: radius must be positive, got %v", cfg.EffectType, cfg.Radius)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("pulse %q: interval must be positive, got %v", cfg.EffectType, cfg.Interval)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("pulse %q: duration must be positive, got %v", cfg.EffectType, cfg.Duration)
	}
	if cfg.RoamRange > 0 && cfg.RoamInterval <= 0 {
		return nil, fmt.Errorf("pulse %q: roam interval must be positive, got %v", cfg.EffectType, cfg.RoamInterval)
	}

	x, y := cfg.X, cfg.Y
	if cfg.AnchorID != "" {
		if anchor := w.actorByID(cfg.AnchorID); anchor != nil {
			x, y = anchor.X, anchor.Y
		}
	}
	eff := w.newEffectState(cfg.EffectType, cfg.Owner, x, y, cfg.Radius, cfg.Duration)
	eff.pattern = patternPulse
	eff.Element = cfg.Element
	eff.anchorID = cfg.AnchorID
	eff.interval = cfg.Interval
	eff.intervalLeft = cfg.Interval
	eff.damage = cfg.Damage
	eff.damagePerStack = cfg.DamagePerStack
	eff.maxTargets = cfg.MaxTargets
	eff.lifesteal = cfg.Lifesteal
	eff.hitStatuses = cfg.HitStatuses
	eff.hitStacks = cfg.HitStacks
	eff.hitStacksCount = cfg.HitStacksCount
	eff.cleanseKinds = cfg.CleanseKinds
	eff.randomScaleMin = cfg.RandomScaleMin
	eff.randomScaleMax = cfg.RandomScaleMax
	eff.roamRange = cfg.RoamRange
	eff.roamInterval = cfg.RoamInterval
	eff.roamTimer = cfg.RoamInterval
	eff.flashEffect = cfg.FlashEffect
	eff.flashLifetime = cfg.FlashLifetime
	if eff.roamRange > 0 {
		w.relocateWithin(eff, x, y, eff.roamRange)
	}

	w.effects = append(w.effects, eff)
	for i := 0; i < cfg.Markers; i++ {
		eff.children = append(eff.children, w.spawnMarker(eff))
	}
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

func (w *World) spawnPatch(cfg patchConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("patch %q: world is nil", cfg.EffectType)
	}
	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("patch %q: radius must be positive, got %v", cfg.EffectType, cfg.Radius)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("patch %q: tick interval must be positive, got %v", cfg.EffectType, cfg.TickInterval)
	}
	if cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("patch %q: lifetime must be positive, got %v", cfg.EffectType, cfg.Lifetime)
	}

	eff := w.newEffectState(cfg.EffectType, cfg.Owner, cfg.X, cfg.Y, cfg.Radius, cfg.Lifetime)
	eff.pattern = patternPatch
	eff.Element = cfg.Element
	eff.interval = cfg.TickInterval
	eff.intervalLeft = cfg.TickInterval
	eff.damage = cfg.DamagePerTick
	eff.hitStatuses = cfg.HitStatuses

	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

func (w *World) spawnBurst(cfg burstConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("burst %q: world is nil", cfg.EffectType)
	}
	if cfg.MaxRadius <= 0 {
		return nil, fmt.Errorf("burst %q: max radius must be positive, got %v", cfg.EffectType, cfg.MaxRadius)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("burst %q: duration must be positive, got %v", cfg.EffectType, cfg.Duration)
	}
	if cfg.DamageAppliedAt <= 0 || cfg.DamageAppliedAt > 1 {
		return nil, fmt.Errorf("burst %q: damage point must be in (0, 1], got %v", cfg.EffectType, cfg.DamageAppliedAt)
	}

	eff := w.newEffectState(cfg.EffectType, cfg.Owner, cfg.X, cfg.Y, cfg.MaxRadius, cfg.Duration)
	eff.pattern = patternBurst
	eff.Element = cfg.Element
	eff.expansionRate = 1 / cfg.Duration
	eff.damageAppliedAt = cfg.DamageAppliedAt
	eff.damage = cfg.Damage
	eff.hitStatuses = cfg.HitStatuses
	eff.cleanseKinds = cfg.CleanseKinds

	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

func (w *World) spawnProjectile(cfg projectileConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("projectile %q: world is nil", cfg.EffectType)
	}
	if cfg.Speed <= 0 {
		return nil, fmt.Errorf("projectile %q: speed must be positive, got %v", cfg.EffectType, cfg.Speed)
	}
	if cfg.CollisionRadius <= 0 {
		return nil, fmt.Errorf("projectile %q: collision radius must be positive, got %v", cfg.EffectType, cfg.CollisionRadius)
	}
	if cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("projectile %q: lifetime must be positive, got %v", cfg.EffectType, cfg.Lifetime)
	}
	dirX, dirY, ok := normalizeVector(cfg.DirX, cfg.DirY)
	if !ok {
		return nil, fmt.Errorf("projectile %q: direction must be non-zero", cfg.EffectType)
	}

	eff := w.newEffectState(cfg.EffectType, cfg.Owner, cfg.X, cfg.Y, cfg.CollisionRadius, cfg.Lifetime)
	eff.pattern = patternProjectile
	eff.Element = cfg.Element
	eff.velocityX = dirX * cfg.Speed
	eff.velocityY = dirY * cfg.Speed
	eff.collisionRadius = cfg.CollisionRadius
	eff.damage = cfg.Damage
	eff.lifesteal = cfg.Lifesteal
	eff.hitStatuses = cfg.HitStatuses
	eff.hitStacks = cfg.HitStacks
	eff.hitStacksCount = cfg.HitStacksCount
	eff.onEnd = cfg.OnEnd

	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

func (w *World) spawnAura(cfg auraConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("aura %q: world is nil", cfg.EffectType)
	}
	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("aura %q: radius must be positive, got %v", cfg.EffectType, cfg.Radius)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("aura %q: duration must be positive, got %v", cfg.EffectType, cfg.Duration)
	}
	if cfg.ZoneStatus == "" {
		return nil, fmt.Errorf("aura %q: zone status is required", cfg.EffectType)
	}

	x, y := 0.0, 0.0
	if anchor := w.actorByID(cfg.AnchorID); anchor != nil {
		x, y = anchor.X, anchor.Y
	}
	eff := w.newEffectState(cfg.EffectType, cfg.Owner, x, y, cfg.Radius, cfg.Duration)
	eff.pattern = patternNone
	eff.followActorID = cfg.AnchorID
	eff.zoneStatus = cfg.ZoneStatus
	eff.zoneMagnitude = cfg.Magnitude

	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

func (w *World) spawnEmitter(cfg emitterConfig) (*effectState, error) {
	if w == nil {
		return nil, fmt.Errorf("emitter %q: world is nil", cfg.EffectType)
	}
	if cfg.Interval <= 0 && cfg.SpawnDistance <= 0 {
		return nil, fmt.Errorf("emitter %q: needs a positive interval or spawn distance", cfg.EffectType)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("emitter %q: duration must be positive, got %v", cfg.EffectType, cfg.Duration)
	}
	if cfg.Patch.Radius <= 0 || cfg.Patch.TickInterval <= 0 || cfg.Patch.Lifetime <= 0 {
		return nil, fmt.Errorf("emitter %q: patch template is invalid", cfg.EffectType)
	}

	x, y := 0.0, 0.0
	if anchor := w.actorByID(cfg.AnchorID); anchor != nil {
		x, y = anchor.X, anchor.Y
	}
	template := cfg.Patch
	eff := w.newEffectState(cfg.EffectType, cfg.Owner, x, y, 0, cfg.Duration)
	eff.pattern = patternEmitter
	eff.anchorID = cfg.AnchorID
	eff.interval = cfg.Interval
	eff.intervalLeft = cfg.Interval
	eff.spawnDistance = cfg.SpawnDistance
	eff.lastDropX, eff.lastDropY = x, y
	eff.patchTemplate = &template

	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "cast")
	w.logEffectSpawned(eff)
	return eff, nil
}

// spawnMarker creates a cosmetic child that rides along with its parent
// effect. Purely visual; the simulation works identically without them.
func (w *World) spawnMarker(parent *effectState) *effectState {
	eff := w.newEffectState(effectTypeStormMarker, parent.Owner, parent.X, parent.Y, 0, parent.remaining)
	eff.pattern = patternNone
	eff.anchorID = parent.ID
	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(eff.Type, "marker")
	w.logEffectSpawned(eff)
	return eff
}

// relocateWithin teleports an effect to a uniformly random point inside the
// disc around (cx, cy), clamped to the arena.
func (w *World) relocateWithin(eff *effectState, cx, cy, radius float64) {
	if eff == nil || radius <= 0 {
		return
	}
	x, y := cx, cy
	if w != nil && w.rng != nil {
		r := radius * math.Sqrt(w.rng.Float64())
		angle := w.rng.Float64() * 2 * math.Pi
		x = cx + r*math.Cos(angle)
		y = cy + r*math.Sin(angle)
	}
	eff.X = clamp(x, 0, arenaWidth)
	eff.Y = clamp(y, 0, arenaHeight)
}

// attachStatusVisual creates the cosmetic effect that tracks an actor while a
// status is active. Safe to call headless; callers treat nil as "no visual".
func (w *World) attachStatusVisual(target *actorState, effectType string, lifetime float64) *effectState {
	if w == nil || target == nil || effectType == "" {
		return nil
	}
	if lifetime <= 0 {
		lifetime = statusVisualMinLifetime
	}
	eff := w.newEffectState(effectType, target.ID, target.X, target.Y, actorHalf, lifetime)
	eff.pattern = patternNone
	eff.followActorID = target.ID
	w.effects = append(w.effects, eff)
	w.recordEffectSpawn(effectType, "status")
	w.logEffectSpawned(eff)
	return eff
}

func (w *World) extendAttachedVisual(eff *effectState, remaining float64) {
	if eff == nil || remaining <= eff.remaining {
		return
	}
	eff.remaining = remaining
}

func (w *World) expireAttachedVisual(eff *effectState) {
	if eff == nil || eff.remaining <= 0 {
		return
	}
	eff.remaining = 0
	eff.endReason = "released"
}

// destroyEffect marks an effect and its children for removal; the next prune
// pass drops them and reports the reason.
func (w *World) destroyEffect(eff *effectState, reason string) {
	if eff == nil || eff.remaining <= 0 {
		return
	}
	eff.remaining = 0
	if eff.endReason == "" {
		eff.endReason = reason
	}
	for _, child := range eff.children {
		w.destroyEffect(child, reason)
	}
}

// advanceAreaEffects runs the per-tick update for every live effect, then the
// patch aggregation pass, zone reconciliation, and prune. Effects spawned
// during the walk (projectile impacts, emitter drops) first advance on the
// following tick.
func (w *World) advanceAreaEffects(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	for _, eff := range w.effects {
		if eff == nil || eff.remaining <= 0 {
			continue
		}
		switch eff.pattern {
		case patternPulse:
			w.advancePulse(eff, dt)
		case patternPatch:
			w.advancePatch(eff, dt)
		case patternBurst:
			w.advanceBurst(eff, dt)
		case patternProjectile:
			w.advanceProjectile(eff, dt)
		case patternEmitter:
			w.advanceEmitter(eff, dt)
		default:
			w.advanceCosmetic(eff, dt)
		}
	}
	w.applyPatchDamage()
	w.syncZoneMemberships()
	w.pruneEffects()
}

func (w *World) advancePulse(eff *effectState, dt float64) {
	if eff.anchorID != "" {
		anchor := w.actorByID(eff.anchorID)
		if anchor == nil {
			w.destroyEffect(eff, "anchor-lost")
			return
		}
		if eff.roamRange > 0 {
			eff.roamTimer -= dt
			if eff.roamTimer <= 0 {
				eff.roamTimer = eff.roamInterval
				w.relocateWithin(eff, anchor.X, anchor.Y, eff.roamRange)
			}
		} else {
			eff.X, eff.Y = anchor.X, anchor.Y
		}
	}
	eff.intervalLeft -= dt
	for eff.intervalLeft <= 0 && eff.remaining > 0 {
		w.firePulse(eff)
		eff.intervalLeft += eff.interval
	}
	eff.remaining -= dt
	if eff.remaining <= 0 {
		w.destroyEffect(eff, "expired")
	}
}

func (w *World) firePulse(eff *effectState) {
	if eff.flashEffect != "" {
		flash := w.newEffectState(eff.flashEffect, eff.Owner, eff.X, eff.Y, eff.Effect.Radius, eff.flashLifetime)
		flash.pattern = patternNone
		w.effects = append(w.effects, flash)
		w.recordEffectSpawn(flash.Type, "pulse")
		w.logEffectSpawned(flash)
	}
	targets := w.targetsWithin(eff.X, eff.Y, eff.Effect.Radius)
	if len(targets) == 0 {
		return
	}
	filtered := targets[:0]
	for _, target := range targets {
		if target == nil || target.ID == eff.Owner {
			continue
		}
		filtered = append(filtered, target)
	}
	targets = filtered
	if eff.maxTargets > 0 && len(targets) > eff.maxTargets {
		sortTargetsByDistance(eff.X, eff.Y, targets)
		targets = targets[:eff.maxTargets]
	}

	scale := w.rollDamageScale(eff)
	for _, target := range targets {
		w.hitTarget(eff, target, eff.pulseDamage(w, target)*scale)
	}
}

// pulseDamage resolves the per-target amount, letting stack-scaled pulses pay
// out per stack including the one landing this firing.
func (eff *effectState) pulseDamage(w *World, target *actorState) float64 {
	if eff.damagePerStack <= 0 || eff.hitStacks == "" {
		return eff.damage
	}
	stacks := w.stacksOf(target, eff.hitStacks) + eff.hitStacksCount
	return eff.damage + eff.damagePerStack*float64(stacks)
}

// hitTarget funnels one effect-to-target contact through stack, status,
// cleanse, damage, and lifesteal handling in a fixed order.
func (w *World) hitTarget(eff *effectState, target *actorState, damage float64) {
	if w == nil || eff == nil || target == nil {
		return
	}
	if len(eff.cleanseKinds) > 0 {
		w.cleanse(target, eff.cleanseKinds...)
	}
	if eff.hitStacks != "" && eff.hitStacksCount > 0 {
		w.addStacks(target, eff.hitStacks, eff.hitStacksCount, eff.Owner)
	}
	for _, app := range eff.hitStatuses {
		w.applyStatus(target, app.Kind, eff.Owner, app.Params)
	}
	if damage <= 0 {
		return
	}
	requested := w.applyDamage(eff.Owner, target, damage, eff.Element)
	if eff.lifesteal > 0 && requested > 0 {
		if owner := w.actorByID(eff.Owner); owner != nil {
			w.heal(eff.Owner, owner, requested*eff.lifesteal)
		}
	}
}

func (w *World) advancePatch(eff *effectState, dt float64) {
	eff.intervalLeft -= dt
	for eff.intervalLeft <= 0 {
		eff.readyToDamage = true
		eff.intervalLeft += eff.interval
	}
	eff.remaining -= dt
	if eff.remaining <= 0 {
		w.destroyEffect(eff, "expired")
	}
}

// applyPatchDamage is the cross-instance aggregation pass: every patch that
// became ready this tick damages targets, but each target takes at most one
// patch tick regardless of how many patches it stands in. First match by
// patch creation order wins. The scratch set lives for one frame only.
func (w *World) applyPatchDamage() {
	var damaged map[string]struct{}
	for _, eff := range w.effects {
		if eff == nil || eff.pattern != patternPatch || !eff.readyToDamage {
			continue
		}
		eff.readyToDamage = false
		for _, target := range w.targetsWithin(eff.X, eff.Y, eff.Effect.Radius) {
			if target == nil || target.ID == eff.Owner {
				continue
			}
			if damaged == nil {
				damaged = make(map[string]struct{})
			}
			if _, seen := damaged[target.ID]; seen {
				continue
			}
			damaged[target.ID] = struct{}{}
			w.hitTarget(eff, target, eff.damage)
		}
	}
}

func (w *World) advanceBurst(eff *effectState, dt float64) {
	eff.progress += eff.expansionRate * dt
	if !eff.damageApplied && eff.progress >= eff.damageAppliedAt {
		eff.damageApplied = true
		w.fireBurst(eff)
	}
	eff.remaining -= dt
	if eff.progress >= 1 {
		w.destroyEffect(eff, "completed")
	}
}

func (w *World) fireBurst(eff *effectState) {
	for _, target := range w.targetsWithin(eff.X, eff.Y, eff.Effect.Radius) {
		if target == nil || target.ID == eff.Owner {
			continue
		}
		w.hitTarget(eff, target, eff.damage)
	}
}

func (w *World) advanceProjectile(eff *effectState, dt float64) {
	x0, y0 := eff.X, eff.Y
	x1 := x0 + eff.velocityX*dt
	y1 := y0 + eff.velocityY*dt

	// Sweep the travelled segment so a fast shot cannot skip past a target.
	midX, midY := (x0+x1)/2, (y0+y1)/2
	reach := distance(x0, y0, x1, y1)/2 + eff.collisionRadius
	hitRadiusSq := eff.collisionRadius * eff.collisionRadius
	for _, target := range w.targetsWithin(midX, midY, reach) {
		if target == nil || target.ID == eff.Owner {
			continue
		}
		if segmentDistanceSquared(x0, y0, x1, y1, target.X, target.Y) > hitRadiusSq {
			continue
		}
		eff.X, eff.Y = target.X, target.Y
		w.hitTarget(eff, target, eff.damage)
		w.finishProjectile(eff, "impact")
		return
	}

	eff.X, eff.Y = x1, y1
	if x1 < 0 || y1 < 0 || x1 > arenaWidth || y1 > arenaHeight {
		eff.X = clamp(x1, 0, arenaWidth)
		eff.Y = clamp(y1, 0, arenaHeight)
		w.finishProjectile(eff, "wall")
		return
	}
	eff.remaining -= dt
	if eff.remaining <= 0 {
		w.finishProjectile(eff, "expired")
	}
}

func (w *World) finishProjectile(eff *effectState, reason string) {
	if eff.onEnd != nil {
		eff.onEnd(w, eff, eff.X, eff.Y)
	}
	w.destroyEffect(eff, reason)
}

func (w *World) advanceEmitter(eff *effectState, dt float64) {
	anchor := w.actorByID(eff.anchorID)
	if anchor == nil {
		w.destroyEffect(eff, "anchor-lost")
		return
	}
	eff.X, eff.Y = anchor.X, anchor.Y

	drop := false
	if eff.interval > 0 {
		eff.intervalLeft -= dt
		for eff.intervalLeft <= 0 {
			drop = true
			eff.intervalLeft += eff.interval
		}
	}
	if eff.spawnDistance > 0 && distance(eff.X, eff.Y, eff.lastDropX, eff.lastDropY) >= eff.spawnDistance {
		drop = true
	}
	if drop && eff.patchTemplate != nil {
		patch := *eff.patchTemplate
		patch.X, patch.Y = anchor.X, anchor.Y
		if _, err := w.spawnPatch(patch); err != nil {
			w.destroyEffect(eff, "bad-template")
			return
		}
		eff.lastDropX, eff.lastDropY = anchor.X, anchor.Y
	}

	eff.remaining -= dt
	if eff.remaining <= 0 {
		w.destroyEffect(eff, "expired")
	}
}

func (w *World) advanceCosmetic(eff *effectState, dt float64) {
	if eff.followActorID != "" {
		actor := w.actorByID(eff.followActorID)
		if actor == nil {
			w.destroyEffect(eff, "anchor-lost")
			return
		}
		eff.X, eff.Y = actor.X, actor.Y
	} else if eff.anchorID != "" {
		if parent := w.effectByID(eff.anchorID); parent != nil && parent.remaining > 0 {
			eff.X, eff.Y = parent.X, parent.Y
		}
	}
	eff.remaining -= dt
	if eff.remaining <= 0 {
		w.destroyEffect(eff, "expired")
	}
}

// syncZoneMemberships reconciles zone-bound statuses against the aura
// effects still alive this tick. Runs even with zero auras so stale
// memberships drop the moment their zone disappears.
func (w *World) syncZoneMemberships() {
	for _, kind := range w.zoneKinds {
		for _, actor := range w.actorList {
			if actor == nil {
				continue
			}
			inside := false
			source := ""
			magnitude := 0.0
			for _, eff := range w.effects {
				if eff == nil || eff.remaining <= 0 || eff.zoneStatus != kind {
					continue
				}
				if actor.ID == eff.Owner {
					continue
				}
				if circleContains(eff.X, eff.Y, eff.Effect.Radius, actor.X, actor.Y) {
					inside = true
					source = eff.Owner
					magnitude = eff.zoneMagnitude
					break
				}
			}
			w.syncZoneStatus(actor, kind, source, magnitude, inside)
		}
	}
}

// pruneEffects compacts the effect list, reporting every removal once.
func (w *World) pruneEffects() {
	if w == nil || len(w.effects) == 0 {
		return
	}
	filtered := w.effects[:0]
	for _, eff := range w.effects {
		if eff == nil {
			continue
		}
		if eff.remaining > 0 {
			filtered = append(filtered, eff)
			continue
		}
		reason := eff.endReason
		if reason == "" {
			reason = "expired"
		}
		for _, child := range eff.children {
			w.destroyEffect(child, reason)
		}
		w.recordEffectEnd(eff.Type, reason)
		w.logEffectEnded(eff, reason)
	}
	for i := len(filtered); i < len(w.effects); i++ {
		w.effects[i] = nil
	}
	w.effects = filtered
}

func (w *World) effectByID(id string) *effectState {
	if w == nil || id == "" {
		return nil
	}
	for _, eff := range w.effects {
		if eff != nil && eff.ID == id {
			return eff
		}
	}
	return nil
}

func (w *World) rollDamageScale(eff *effectState) float64 {
	if eff == nil || eff.randomScaleMax <= eff.randomScaleMin {
		return 1
	}
	if w == nil || w.rng == nil {
		return 1
	}
	return eff.randomScaleMin + w.rng.Float64()*(eff.randomScaleMax-eff.randomScaleMin)
}

func (w *World) snapshotEffects() []Effect {
	if w == nil || len(w.effects) == 0 {
		return nil
	}
	effects := make([]Effect, 0, len(w.effects))
	for _, eff := range w.effects {
		if eff == nil || eff.remaining <= 0 {
			continue
		}
		wire := eff.Effect
		wire.Remaining = eff.remaining
		if eff.pattern == patternBurst {
			progress := clamp(eff.progress, 0, 1)
			wire.Radius = eff.Effect.Radius * progress
			wire.Params = map[string]float64{"progress": progress}
		}
		effects = append(effects, wire)
	}
	return effects
}

func (w *World) logEffectSpawned(eff *effectState) {
	if w == nil || w.publisher == nil || eff == nil {
		return
	}
	spelllog.EffectSpawned(context.Background(), w.publisher, w.currentTick,
		w.entityRef(eff.Owner),
		spelllog.EffectPayload{Effect: eff.ID, Type: eff.Type, Element: string(eff.Element)}, nil)
}

func (w *World) logEffectEnded(eff *effectState, reason string) {
	if w == nil || w.publisher == nil || eff == nil {
		return
	}
	spelllog.EffectEnded(context.Background(), w.publisher, w.currentTick,
		w.entityRef(eff.Owner),
		spelllog.EffectPayload{Effect: eff.ID, Type: eff.Type, Element: string(eff.Element), Reason: reason}, nil)
}
