package stats

import (
	"math"
	"sort"
)

// StatID enumerates the attributes tracked for every actor.
type StatID uint8

const (
	StatMaxHealth StatID = iota
	StatMoveSpeed
	StatDamageTaken

	StatCount
)

// Layer orders modifier application: base values first, then status effects,
// then environmental zones. Later layers see the earlier layers' output.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerStatus
	LayerEnvironment

	LayerCount
)

// SourceKind groups modifier origins so same-layer sources fold in a
// deterministic order.
type SourceKind uint8

const (
	SourceKindUnknown SourceKind = iota
	SourceKindArchetype
	SourceKindStatus
	SourceKindZone
)

// SourceKey names one modifier source inside a layer. Reapplying under the
// same key replaces the previous contribution instead of stacking a second.
type SourceKey struct {
	Kind SourceKind
	ID   string
}

// ValueSet is a fixed vector with one slot per stat.
type ValueSet [StatCount]float64

func (v *ValueSet) add(other ValueSet) {
	for i := range v {
		v[i] += other[i]
	}
}

func (v *ValueSet) scale(other ValueSet) {
	for i := range v {
		v[i] *= other[i]
	}
}

func (v *ValueSet) apply(overrides OverrideSet) {
	for i := range overrides {
		if overrides[i].Active {
			v[i] = overrides[i].Value
		}
	}
}

// OverrideValue pins a stat to a fixed value while active, trumping the
// additive and multiplicative stacks of its layer.
type OverrideValue struct {
	Active bool
	Value  float64
}

// OverrideSet holds one override slot per stat.
type OverrideSet [StatCount]OverrideValue

// merge keeps the later entry when two sources override the same stat; fold
// order is the sorted source order, so the outcome is reproducible.
func (o *OverrideSet) merge(other OverrideSet) {
	for i := range other {
		if other[i].Active {
			o[i] = other[i]
		}
	}
}

// StatDelta is one source's contribution: additive terms, multiplicative
// factors, and overrides.
type StatDelta struct {
	Add      ValueSet
	Mul      ValueSet
	Override OverrideSet
}

// NewStatDelta returns a delta that contributes nothing until filled in.
func NewStatDelta() StatDelta {
	return StatDelta{Mul: unitSet()}
}

func (d StatDelta) equal(other StatDelta) bool {
	for i := range d.Add {
		if math.Abs(d.Add[i]-other.Add[i]) > 1e-9 {
			return false
		}
		if math.Abs(d.Mul[i]-other.Mul[i]) > 1e-9 {
			return false
		}
		if d.Override[i].Active != other.Override[i].Active {
			return false
		}
		if d.Override[i].Active && math.Abs(d.Override[i].Value-other.Override[i].Value) > 1e-9 {
			return false
		}
	}
	return true
}

// CommandStatChange mutates one source slot: install or refresh a delta, or
// remove the source. ExpiresAtTick zero means the caller removes it manually.
type CommandStatChange struct {
	Layer         Layer
	Source        SourceKey
	Delta         StatDelta
	ExpiresAtTick uint64
	Remove        bool
}

// layerStack caches the folded contributions of every source in one layer so
// Resolve does not re-sort sources on ticks where nothing changed.
type layerStack struct {
	add      ValueSet
	mul      ValueSet
	override OverrideSet
}

type sourceEntry struct {
	delta         StatDelta
	expiresAtTick uint64
}

// Component owns an actor's stat state: per-layer source maps, the folded
// layer caches, and the resolved totals the simulation reads every tick.
type Component struct {
	layers          [LayerCount]layerStack
	sources         map[Layer]map[SourceKey]*sourceEntry
	totals          ValueSet
	dirty           bool
	lastResolveTick uint64
}

// NewComponent seeds a component with archetype base values on the base layer.
func NewComponent(base ValueSet) Component {
	c := Component{}
	c.ensureInit()
	delta := NewStatDelta()
	delta.Add = base
	c.upsertSource(LayerBase, SourceKey{Kind: SourceKindArchetype, ID: "base"}, delta, 0)
	c.dirty = true
	return c
}

func (c *Component) ensureInit() {
	if c.sources != nil {
		return
	}
	c.sources = make(map[Layer]map[SourceKey]*sourceEntry)
	for layer := Layer(0); layer < LayerCount; layer++ {
		c.layers[layer].mul = unitSet()
	}
	c.dirty = true
}

// Apply installs, refreshes, or removes one modifier source.
func (c *Component) Apply(change CommandStatChange) {
	if c == nil || change.Layer >= LayerCount {
		return
	}
	c.ensureInit()
	if change.Remove {
		if c.dropSource(change.Layer, change.Source) {
			c.dirty = true
		}
		return
	}
	if c.upsertSource(change.Layer, change.Source, change.Delta, change.ExpiresAtTick) {
		c.dirty = true
	}
}

// Resolve culls expired sources and recomputes totals. Folding walks the
// layers in declaration order; within a layer, additive terms land before
// multiplicative ones, and overrides last.
func (c *Component) Resolve(tick uint64) {
	if c == nil {
		return
	}
	c.ensureInit()
	c.expireSources(tick)
	if !c.dirty && c.lastResolveTick == tick {
		return
	}

	var total ValueSet
	for layer := Layer(0); layer < LayerCount; layer++ {
		stack := &c.layers[layer]
		total.add(stack.add)
		total.scale(stack.mul)
		total.apply(stack.override)
	}
	normalizeTotals(&total)

	c.totals = total
	c.lastResolveTick = tick
	c.dirty = false
}

// GetTotal reads one resolved total. Callers must Resolve first; the value is
// whatever the last Resolve computed.
func (c *Component) GetTotal(id StatID) float64 {
	if c == nil || id >= StatCount {
		return 0
	}
	return c.totals[id]
}

func (c *Component) upsertSource(layer Layer, key SourceKey, delta StatDelta, expires uint64) bool {
	if c.sources[layer] == nil {
		c.sources[layer] = make(map[SourceKey]*sourceEntry)
	}
	entry := c.sources[layer][key]
	if entry != nil && entry.delta.equal(delta) && entry.expiresAtTick == expires {
		return false
	}
	if entry == nil {
		entry = &sourceEntry{}
		c.sources[layer][key] = entry
	}
	entry.delta = delta
	entry.expiresAtTick = expires
	c.refoldLayer(layer)
	return true
}

func (c *Component) dropSource(layer Layer, key SourceKey) bool {
	entries := c.sources[layer]
	before := len(entries)
	delete(entries, key)
	if len(entries) == before {
		return false
	}
	if len(entries) == 0 {
		delete(c.sources, layer)
	}
	c.refoldLayer(layer)
	return true
}

// refoldLayer rebuilds one layer's cached stack from its live sources, folded
// in sorted key order so identical source sets always produce identical
// stacks regardless of insertion order.
func (c *Component) refoldLayer(layer Layer) {
	stack := &c.layers[layer]
	stack.add = ValueSet{}
	stack.mul = unitSet()
	stack.override = OverrideSet{}

	entries := c.sources[layer]
	if len(entries) == 0 {
		return
	}
	keys := make([]SourceKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Kind == b.Kind {
			return a.ID < b.ID
		}
		return a.Kind < b.Kind
	})
	for _, key := range keys {
		entry := entries[key]
		stack.add.add(entry.delta.Add)
		stack.mul.scale(entry.delta.Mul)
		stack.override.merge(entry.delta.Override)
	}
}

func (c *Component) expireSources(tick uint64) {
	for layer := Layer(0); layer < LayerCount; layer++ {
		entries := c.sources[layer]
		if len(entries) == 0 {
			continue
		}
		removed := false
		for key, entry := range entries {
			if entry.expiresAtTick > 0 && tick >= entry.expiresAtTick {
				delete(entries, key)
				removed = true
			}
		}
		if !removed {
			continue
		}
		if len(entries) == 0 {
			delete(c.sources, layer)
		}
		c.refoldLayer(layer)
		c.dirty = true
	}
}

func unitSet() ValueSet {
	var v ValueSet
	for i := range v {
		v[i] = 1
	}
	return v
}
