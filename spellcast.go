package server

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	spelllog "spellstorm/server/logging/spells"
	"spellstorm/server/spells"
)

// spellCastRange is how far in front of the caster point-targeted effects
// land. The cast command carries a direction, not a position.
const spellCastRange = 6.0

// spellRegistry declares what this runtime can execute so the catalog
// resolver rejects entries the engine could not spawn.
func (w *World) spellRegistry() spells.Registry {
	return spells.Registry{
		Elements: knownElements(),
		Deliveries: []string{
			spells.DeliveryProjectile,
			spells.DeliveryBurst,
			spells.DeliveryPatch,
			spells.DeliveryPulse,
			spells.DeliveryAura,
			spells.DeliveryEmitter,
			spells.DeliveryPassive,
		},
		Statuses: w.knownStatusKinds(),
	}
}

func (w *World) knownStatusKinds() []string {
	kinds := make([]string, 0, len(w.statusDefs))
	for kind := range w.statusDefs {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return kinds
}

// spellDamage resolves the effective damage for one cast. Scaling is linear
// in the spell level.
func spellDamage(entry spells.Entry, level int) float64 {
	if level < 1 {
		level = 1
	}
	return entry.BaseDamage * float64(level) * spellLevelDamageScale
}

// castSpell resolves a catalog entry and spawns its delivery at the caster.
// The returned handles identify the spawned effect instances; passives
// return none. A zero-length aim falls back to the caster's facing.
func (w *World) castSpell(casterID, spellID string, aimX, aimY float64, now time.Time) ([]string, error) {
	if w == nil {
		return nil, fmt.Errorf("cast %q: world is nil", spellID)
	}
	caster := w.actorByID(casterID)
	if !caster.alive() {
		return nil, fmt.Errorf("cast %q: caster %q is not in the arena", spellID, casterID)
	}
	entry, ok := w.spellbook.Resolve(spellID)
	if !ok {
		return nil, fmt.Errorf("cast %q: unknown spell", spellID)
	}

	player := w.players[casterID]
	if player != nil && entry.Cooldown > 0 {
		if ready, held := player.cooldowns[spellID]; held && now.Before(ready) {
			return nil, fmt.Errorf("cast %q: on cooldown for %.2fs", spellID, ready.Sub(now).Seconds())
		}
	}

	dirX, dirY := deriveFacing(aimX, aimY, caster.FacingX, caster.FacingY)
	element := ElementTag(entry.Element)
	level := 1
	if player != nil {
		level = player.spellLevel(spellID)
	}
	damage := spellDamage(entry, level)

	handles, err := w.spawnSpell(caster, entry, element, damage, dirX, dirY)
	if err != nil {
		return nil, err
	}

	if player != nil && entry.Cooldown > 0 {
		if player.cooldowns == nil {
			player.cooldowns = make(map[string]time.Time)
		}
		player.cooldowns[spellID] = now.Add(time.Duration(entry.Cooldown * float64(time.Second)))
	}
	w.logSpellCast(caster, entry, damage, len(handles))
	return handles, nil
}

func (w *World) spawnSpell(caster *actorState, entry spells.Entry, element ElementTag, damage, dirX, dirY float64) ([]string, error) {
	apps := statusApplications(entry, damage)
	cleanses := cleanseKinds(entry)

	switch entry.Delivery {
	case spells.DeliveryProjectile:
		return w.spawnSpellProjectile(caster, entry, element, damage, dirX, dirY, apps)
	case spells.DeliveryBurst:
		eff, err := w.spawnBurst(burstConfigFrom(entry, caster.ID, caster.X, caster.Y, element, damage, apps, cleanses))
		if err != nil {
			return nil, err
		}
		return []string{eff.ID}, nil
	case spells.DeliveryPatch:
		cfg := patchConfigFrom(entry, caster.ID, element, damage, apps)
		cfg.X = clamp(caster.X+dirX*spellCastRange, 0, arenaWidth)
		cfg.Y = clamp(caster.Y+dirY*spellCastRange, 0, arenaHeight)
		eff, err := w.spawnPatch(cfg)
		if err != nil {
			return nil, err
		}
		return []string{eff.ID}, nil
	case spells.DeliveryPulse:
		return w.spawnSpellPulses(caster, entry, element, damage, dirX, dirY, apps, cleanses)
	case spells.DeliveryAura:
		eff, err := w.spawnAura(auraConfig{
			Owner:      caster.ID,
			AnchorID:   caster.ID,
			Radius:     entry.Aura.Radius,
			Duration:   entry.Aura.Duration,
			ZoneStatus: StatusKind(entry.Aura.Status),
			Magnitude:  entry.Aura.Magnitude,
			EffectType: entry.ID,
		})
		if err != nil {
			return nil, err
		}
		return []string{eff.ID}, nil
	case spells.DeliveryEmitter:
		eff, err := w.spawnEmitter(emitterConfig{
			Owner:         caster.ID,
			AnchorID:      caster.ID,
			Interval:      entry.Emitter.Interval,
			SpawnDistance: entry.Emitter.SpawnDistance,
			Duration:      entry.Emitter.Duration,
			EffectType:    entry.ID,
			Patch:         patchConfigFrom(entry, caster.ID, element, damage, apps),
		})
		if err != nil {
			return nil, err
		}
		return []string{eff.ID}, nil
	case spells.DeliveryPassive:
		return nil, w.installPassive(caster, entry, element, damage)
	default:
		return nil, fmt.Errorf("cast %q: unknown delivery %q", entry.ID, entry.Delivery)
	}
}

func (w *World) spawnSpellProjectile(caster *actorState, entry spells.Entry, element ElementTag, damage, dirX, dirY float64, apps []statusApplication) ([]string, error) {
	cfg := projectileConfig{
		Owner:           caster.ID,
		X:               caster.X,
		Y:               caster.Y,
		DirX:            dirX,
		DirY:            dirY,
		Speed:           entry.Projectile.Speed,
		Lifetime:        entry.Projectile.Lifetime,
		CollisionRadius: entry.Projectile.CollisionRadius,
		Damage:          damage,
		Lifesteal:       entry.Projectile.Lifesteal,
		Element:         element,
		EffectType:      entry.ID,
		HitStatuses:     apps,
	}
	if entry.Stacks != nil && !entry.Stacks.Rider {
		cfg.HitStacks = StatusKind(entry.Stacks.Status)
		cfg.HitStacksCount = entry.Stacks.Count
	}
	switch entry.Projectile.OnEnd {
	case spells.OnEndBurst:
		burst := burstConfigFrom(entry, caster.ID, 0, 0, element, damage, apps, cleanseKinds(entry))
		cfg.OnEnd = func(w *World, eff *effectState, x, y float64) {
			payload := burst
			payload.X, payload.Y = x, y
			w.spawnBurst(payload)
		}
	case spells.OnEndScatter:
		patch := patchConfigFrom(entry, caster.ID, element, damage, apps)
		scatter := *entry.Scatter
		cfg.OnEnd = func(w *World, eff *effectState, x, y float64) {
			w.scatterPatches(patch, scatter, x, y)
		}
	}
	eff, err := w.spawnProjectile(cfg)
	if err != nil {
		return nil, err
	}
	return []string{eff.ID}, nil
}

func (w *World) spawnSpellPulses(caster *actorState, entry spells.Entry, element ElementTag, damage, dirX, dirY float64, apps []statusApplication, cleanses []StatusKind) ([]string, error) {
	spec := entry.Pulse
	cfg := pulseConfig{
		Owner:          caster.ID,
		Radius:         spec.Radius,
		Interval:       spec.Interval,
		Duration:       spec.Duration,
		Damage:         damage,
		DamagePerStack: spec.DamagePerStack,
		MaxTargets:     spec.MaxTargets,
		Lifesteal:      spec.Lifesteal,
		Element:        element,
		EffectType:     entry.ID,
		HitStatuses:    apps,
		CleanseKinds:   cleanses,
		RandomScaleMin: spec.DamageScaleMin,
		RandomScaleMax: spec.DamageScaleMax,
		RoamRange:      spec.RoamRange,
		RoamInterval:   spec.RoamInterval,
		FlashLifetime:  spec.FlashLifetime,
		Markers:        spec.Markers,
	}
	if spec.FlashLifetime > 0 {
		cfg.FlashEffect = entry.ID + "-strike"
	}
	if entry.Stacks != nil && !entry.Stacks.Rider {
		cfg.HitStacks = StatusKind(entry.Stacks.Status)
		cfg.HitStacksCount = entry.Stacks.Count
	}
	if spec.Anchor == spells.AnchorCaster {
		cfg.AnchorID = caster.ID
		cfg.X, cfg.Y = caster.X, caster.Y
	} else {
		cfg.X = clamp(caster.X+dirX*spellCastRange, 0, arenaWidth)
		cfg.Y = clamp(caster.Y+dirY*spellCastRange, 0, arenaHeight)
	}

	count := spec.InstancesMin
	if spec.InstancesMax > spec.InstancesMin && w.rng != nil {
		count += w.rng.Intn(spec.InstancesMax - spec.InstancesMin + 1)
	}
	handles := make([]string, 0, count)
	for i := 0; i < count; i++ {
		eff, err := w.spawnPulse(cfg)
		if err != nil {
			return nil, err
		}
		handles = append(handles, eff.ID)
	}
	return handles, nil
}

// installPassive wires a spell that has no effect instance: charge
// accumulators and damage riders live on the caster itself.
func (w *World) installPassive(caster *actorState, entry spells.Entry, element ElementTag, damage float64) error {
	if entry.Charge != nil {
		blast := burstConfigFrom(entry, caster.ID, 0, 0, element, damage*entry.Charge.DamageScale, statusApplications(entry, damage), cleanseKinds(entry))
		err := w.installCharge(caster, chargeConfig{
			ID:           entry.ID,
			Element:      element,
			Max:          entry.Charge.Max,
			PerUnitInput: entry.Charge.PerUnitInput,
			Discharge:    blast,
		})
		if err != nil {
			return err
		}
	}
	if entry.Stacks != nil && entry.Stacks.Rider {
		installRider(caster, damageRider{
			element: element,
			status:  StatusKind(entry.Stacks.Status),
			stacks:  entry.Stacks.Count,
		})
	}
	return nil
}

// scatterPatches drops a cluster of ground patches around the impact point.
// The first lands exactly at the impact; the rest spread within the radius.
func (w *World) scatterPatches(template patchConfig, scatter spells.ScatterSpec, x, y float64) {
	count := scatter.Min
	if scatter.Max > scatter.Min && w.rng != nil {
		count += w.rng.Intn(scatter.Max - scatter.Min + 1)
	}
	for i := 0; i < count; i++ {
		drop := template
		drop.X, drop.Y = x, y
		if i > 0 && w.rng != nil {
			angle := w.rng.Float64() * 2 * math.Pi
			dist := w.rng.Float64() * scatter.Spread
			drop.X = clamp(x+dist*math.Cos(angle), 0, arenaWidth)
			drop.Y = clamp(y+dist*math.Sin(angle), 0, arenaHeight)
		}
		w.spawnPatch(drop)
	}
}

func burstConfigFrom(entry spells.Entry, owner string, x, y float64, element ElementTag, damage float64, apps []statusApplication, cleanses []StatusKind) burstConfig {
	return burstConfig{
		Owner:           owner,
		X:               x,
		Y:               y,
		MaxRadius:       entry.Burst.Radius,
		Duration:        entry.Burst.Duration,
		DamageAppliedAt: entry.Burst.DamageAppliedAt,
		Damage:          damage,
		Element:         element,
		EffectType:      entry.ID,
		HitStatuses:     apps,
		CleanseKinds:    cleanses,
	}
}

func patchConfigFrom(entry spells.Entry, owner string, element ElementTag, damage float64, apps []statusApplication) patchConfig {
	return patchConfig{
		Owner:         owner,
		Radius:        entry.Patch.Radius,
		Lifetime:      entry.Patch.Lifetime,
		TickInterval:  entry.Patch.TickInterval,
		DamagePerTick: damage * entry.Patch.DamageFraction,
		Element:       element,
		EffectType:    entry.ID + "-patch",
		HitStatuses:   apps,
	}
}

// statusApplications converts catalog status specs into install parameters,
// resolving dot fractions against the effective cast damage.
func statusApplications(entry spells.Entry, damage float64) []statusApplication {
	if len(entry.Statuses) == 0 {
		return nil
	}
	apps := make([]statusApplication, 0, len(entry.Statuses))
	for _, spec := range entry.Statuses {
		apps = append(apps, statusApplication{
			Kind: StatusKind(spec.Kind),
			Params: statusParams{
				Magnitude:     spec.Magnitude,
				DamagePerTick: damage * spec.DamageFraction,
				Duration:      spec.Duration,
			},
		})
	}
	return apps
}

func cleanseKinds(entry spells.Entry) []StatusKind {
	if len(entry.Cleanses) == 0 {
		return nil
	}
	kinds := make([]StatusKind, 0, len(entry.Cleanses))
	for _, name := range entry.Cleanses {
		kinds = append(kinds, StatusKind(name))
	}
	return kinds
}

func (w *World) logSpellCast(caster *actorState, entry spells.Entry, damage float64, handles int) {
	if w == nil || w.publisher == nil {
		return
	}
	spelllog.Cast(context.Background(), w.publisher, w.currentTick,
		w.entityRef(caster.ID),
		spelllog.CastPayload{Spell: entry.ID, Element: entry.Element, Damage: damage, Instances: handles}, nil)
}
