// Package spells loads the designer-authored spell catalog and validates it
// against the capabilities the combat runtime registers. Entries carry the
// tuning numbers; the runtime owns all behavior.
package spells

import (
	"fmt"
	"strings"
)

// Delivery kinds a catalog entry may declare. The runtime registers the
// subset it can actually execute.
const (
	DeliveryProjectile = "projectile"
	DeliveryBurst      = "burst"
	DeliveryPatch      = "patch"
	DeliveryPulse      = "pulse"
	DeliveryAura       = "aura"
	DeliveryEmitter    = "emitter"
	DeliveryPassive    = "passive"
)

// Projectile end behaviors. Scatter additionally requires patch and scatter
// blocks describing the ground effects left behind.
const (
	OnEndNone    = ""
	OnEndBurst   = "burst"
	OnEndScatter = "scatter"
)

// Anchor modes for pulses and emitters.
const (
	AnchorPoint  = ""
	AnchorCaster = "caster"
)

// Document models the JSON contract for one spell entry. It is shared with
// the schema generator so designers get a machine-readable document for
// validation and editor tooling.
type Document struct {
	ID         string  `json:"id" jsonschema:"title=Spell ID,description=Identifier used by cast commands.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	Name       string  `json:"name,omitempty" jsonschema:"title=Display name"`
	Element    string  `json:"element" jsonschema:"title=Element,description=Element tag stamped on every damage event the spell produces.,minLength=1,required"`
	Delivery   string  `json:"delivery" jsonschema:"title=Delivery,description=Spawn pattern executed on cast.,minLength=1,required"`
	BaseDamage float64 `json:"baseDamage,omitempty" jsonschema:"title=Base damage,description=Damage at level 1 before level scaling.,minimum=0"`
	Cooldown   float64 `json:"cooldown,omitempty" jsonschema:"title=Cooldown seconds,minimum=0"`

	Projectile *ProjectileSpec `json:"projectile,omitempty"`
	Burst      *BurstSpec      `json:"burst,omitempty"`
	Patch      *PatchSpec      `json:"patch,omitempty"`
	Pulse      *PulseSpec      `json:"pulse,omitempty"`
	Aura       *AuraSpec       `json:"aura,omitempty"`
	Emitter    *EmitterSpec    `json:"emitter,omitempty"`
	Charge     *ChargeSpec     `json:"charge,omitempty"`
	Scatter    *ScatterSpec    `json:"scatter,omitempty"`

	Statuses []StatusSpec `json:"statuses,omitempty" jsonschema:"description=Statuses installed on every target the spell hits"`
	Stacks   *StackSpec   `json:"stacks,omitempty"`
	Cleanses []string     `json:"cleanses,omitempty" jsonschema:"description=Status kinds removed from targets the spell touches"`
}

// ProjectileSpec tunes a straight-line shot.
type ProjectileSpec struct {
	Speed           float64 `json:"speed" jsonschema:"exclusiveMinimum=0,required"`
	Lifetime        float64 `json:"lifetime" jsonschema:"exclusiveMinimum=0,required"`
	CollisionRadius float64 `json:"collisionRadius" jsonschema:"exclusiveMinimum=0,required"`
	Lifesteal       float64 `json:"lifesteal,omitempty" jsonschema:"minimum=0,maximum=1"`
	OnEnd           string  `json:"onEnd,omitempty" jsonschema:"description=Payload released where the shot stops: burst or scatter"`
}

// BurstSpec tunes an expanding ring that damages once.
type BurstSpec struct {
	Radius          float64 `json:"radius" jsonschema:"exclusiveMinimum=0,required"`
	Duration        float64 `json:"duration" jsonschema:"exclusiveMinimum=0,required"`
	DamageAppliedAt float64 `json:"damageAppliedAt,omitempty" jsonschema:"description=Fraction of the expansion at which damage lands; defaults to 0.5,minimum=0,maximum=1"`
}

// PatchSpec tunes a stationary ground hazard.
type PatchSpec struct {
	Radius         float64 `json:"radius" jsonschema:"exclusiveMinimum=0,required"`
	Lifetime       float64 `json:"lifetime" jsonschema:"exclusiveMinimum=0,required"`
	TickInterval   float64 `json:"tickInterval" jsonschema:"exclusiveMinimum=0,required"`
	DamageFraction float64 `json:"damageFraction,omitempty" jsonschema:"description=Per-tick damage as a fraction of the spell damage,minimum=0"`
}

// PulseSpec tunes a periodic area strike. Anchored pulses follow the caster;
// roaming pulses relocate near the caster on their own cadence.
type PulseSpec struct {
	Radius         float64 `json:"radius" jsonschema:"exclusiveMinimum=0,required"`
	Interval       float64 `json:"interval" jsonschema:"exclusiveMinimum=0,required"`
	Duration       float64 `json:"duration" jsonschema:"exclusiveMinimum=0,required"`
	Anchor         string  `json:"anchor,omitempty" jsonschema:"description=caster to follow the caster; empty strikes the aimed point"`
	MaxTargets     int     `json:"maxTargets,omitempty" jsonschema:"minimum=0"`
	Lifesteal      float64 `json:"lifesteal,omitempty" jsonschema:"minimum=0,maximum=1"`
	DamagePerStack float64 `json:"damagePerStack,omitempty" jsonschema:"minimum=0"`
	DamageScaleMin float64 `json:"damageScaleMin,omitempty" jsonschema:"minimum=0"`
	DamageScaleMax float64 `json:"damageScaleMax,omitempty" jsonschema:"minimum=0"`
	RoamRange      float64 `json:"roamRange,omitempty" jsonschema:"minimum=0"`
	RoamInterval   float64 `json:"roamInterval,omitempty" jsonschema:"minimum=0"`
	InstancesMin   int     `json:"instancesMin,omitempty" jsonschema:"minimum=0"`
	InstancesMax   int     `json:"instancesMax,omitempty" jsonschema:"minimum=0"`
	FlashLifetime  float64 `json:"flashLifetime,omitempty" jsonschema:"minimum=0"`
	Markers        int     `json:"markers,omitempty" jsonschema:"description=Cosmetic children that ride along with the pulse,minimum=0"`
}

// AuraSpec tunes a zone that applies a status by presence alone.
type AuraSpec struct {
	Radius    float64 `json:"radius" jsonschema:"exclusiveMinimum=0,required"`
	Duration  float64 `json:"duration" jsonschema:"exclusiveMinimum=0,required"`
	Status    string  `json:"status" jsonschema:"minLength=1,required"`
	Magnitude float64 `json:"magnitude,omitempty"`
}

// EmitterSpec tunes a trail generator attached to the caster. Drops can be
// gated by time, travelled distance, or both.
type EmitterSpec struct {
	Interval      float64 `json:"interval,omitempty" jsonschema:"minimum=0"`
	SpawnDistance float64 `json:"spawnDistance,omitempty" jsonschema:"minimum=0"`
	Duration      float64 `json:"duration" jsonschema:"exclusiveMinimum=0,required"`
}

// ChargeSpec tunes a passive accumulator fed by the caster's own hits.
type ChargeSpec struct {
	Max          float64 `json:"max" jsonschema:"exclusiveMinimum=0,required"`
	PerUnitInput float64 `json:"perUnitInput" jsonschema:"exclusiveMinimum=0,required"`
	DamageScale  float64 `json:"damageScale,omitempty" jsonschema:"description=Discharge damage as a multiple of the spell damage,minimum=0"`
}

// ScatterSpec tunes the ground effects a scatter projectile leaves behind.
type ScatterSpec struct {
	Min    int     `json:"min" jsonschema:"minimum=1,required"`
	Max    int     `json:"max" jsonschema:"minimum=1,required"`
	Spread float64 `json:"spread" jsonschema:"exclusiveMinimum=0,required"`
}

// StatusSpec names a status the spell installs on hit, with per-cast
// overrides for the status defaults.
type StatusSpec struct {
	Kind           string  `json:"kind" jsonschema:"minLength=1,required"`
	Duration       float64 `json:"duration,omitempty" jsonschema:"minimum=0"`
	Magnitude      float64 `json:"magnitude,omitempty" jsonschema:"minimum=0"`
	DamageFraction float64 `json:"damageFraction,omitempty" jsonschema:"description=Dot tick damage as a fraction of the spell damage,minimum=0"`
}

// StackSpec adds buildup stacks on hit, or registers a caster-side rider
// when the spell is a passive.
type StackSpec struct {
	Status string `json:"status" jsonschema:"minLength=1,required"`
	Count  int    `json:"count" jsonschema:"minimum=1,required"`
	Rider  bool   `json:"rider,omitempty" jsonschema:"description=Install on the caster so every matching hit applies the stacks"`
}

// Catalog represents the canonical on-disk format: an array of documents.
type Catalog []Document

// Registry enumerates what the runtime can execute. Entries referencing
// anything outside it are rejected at load.
type Registry struct {
	Elements   []string
	Deliveries []string
	Statuses   []string
}

type registryIndex struct {
	elements   map[string]struct{}
	deliveries map[string]struct{}
	statuses   map[string]struct{}
}

// Index compiles the registry into lookup sets, rejecting blank or duplicate
// names so configuration mistakes surface before any entry is parsed.
func (r Registry) Index() (registryIndex, error) {
	idx := registryIndex{
		elements:   make(map[string]struct{}, len(r.Elements)),
		deliveries: make(map[string]struct{}, len(r.Deliveries)),
		statuses:   make(map[string]struct{}, len(r.Statuses)),
	}
	if err := fillSet(idx.elements, r.Elements, "element"); err != nil {
		return registryIndex{}, err
	}
	if err := fillSet(idx.deliveries, r.Deliveries, "delivery"); err != nil {
		return registryIndex{}, err
	}
	if err := fillSet(idx.statuses, r.Statuses, "status"); err != nil {
		return registryIndex{}, err
	}
	return idx, nil
}

func fillSet(dst map[string]struct{}, names []string, label string) error {
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("registry: blank %s name", label)
		}
		if _, dup := dst[trimmed]; dup {
			return fmt.Errorf("registry: duplicate %s %q", label, trimmed)
		}
		dst[trimmed] = struct{}{}
	}
	return nil
}
