package server

import (
	"context"

	combatlog "spellstorm/server/logging/combat"
	stats "spellstorm/server/stats"
)

// DamageEvent records one resolved damage application. Amount is the
// requested amount after the target's damage-taken multiplier but before
// health clamping; Applied is the health actually removed. Lifesteal-style
// reactions are computed from Amount even when the hit overkills.
type DamageEvent struct {
	Tick     uint64     `json:"tick"`
	SourceID string     `json:"sourceId,omitempty"`
	TargetID string     `json:"targetId"`
	Element  ElementTag `json:"element,omitempty"`
	Amount   float64    `json:"amount"`
	Applied  float64    `json:"applied"`
}

// DamageObserver receives every damage event resolved during a tick.
// Observers run inline on the simulation goroutine and must not block.
type DamageObserver func(DamageEvent)

// damageRider reacts to damage dealt by its owner: a hit whose element
// matches lands buildup stacks of the configured status on the victim.
type damageRider struct {
	element ElementTag
	status  StatusKind
	stacks  int
}

// installRider registers a follow-on status for damage the owner deals with
// the matching element. Installing the same pair twice is a no-op.
func installRider(owner *actorState, rider damageRider) {
	if owner == nil || rider.status == "" || rider.stacks <= 0 {
		return
	}
	for _, existing := range owner.riders {
		if existing.status == rider.status && existing.element == rider.element {
			return
		}
	}
	owner.riders = append(owner.riders, rider)
}

// ObserveDamage registers an observer for all subsequent damage events.
// Register before the simulation loop starts; the slice is not locked.
func (w *World) ObserveDamage(fn DamageObserver) {
	if w == nil || fn == nil {
		return
	}
	w.damageObservers = append(w.damageObservers, fn)
}

// applyDamage routes a damage request through the target's health ledger and
// returns the pre-clamp requested amount. Targets without a live health pool
// make the call a no-op; effects routinely outlive their targets.
func (w *World) applyDamage(sourceID string, target *actorState, amount float64, element ElementTag) float64 {
	if w == nil || target == nil || !target.alive() {
		return 0
	}
	if amount <= 0 {
		return 0
	}

	requested := amount * target.stats.GetTotal(stats.StatDamageTaken)
	before := target.Health
	target.applyHealthDelta(-requested)

	evt := DamageEvent{
		Tick:     w.currentTick,
		SourceID: sourceID,
		TargetID: target.ID,
		Element:  element,
		Amount:   requested,
		Applied:  before - target.Health,
	}
	w.damageEvents = append(w.damageEvents, evt)
	w.notifyDamage(evt, target)
	w.logDamage(evt, target.Health)
	return requested
}

// heal restores health through the same ledger and returns the health
// actually gained after clamping at max.
func (w *World) heal(sourceID string, target *actorState, amount float64) float64 {
	if w == nil || target == nil || !target.alive() {
		return 0
	}
	if amount <= 0 {
		return 0
	}
	before := target.Health
	target.applyHealthDelta(amount)
	gained := target.Health - before
	if gained > 0 {
		w.logHeal(sourceID, target, gained)
	}
	return gained
}

// notifyDamage fans the event out to in-world reactions and registered
// observers. Fire and forget: observers cannot veto or retry the mutation.
func (w *World) notifyDamage(evt DamageEvent, target *actorState) {
	if source := w.actorByID(evt.SourceID); source != nil {
		for _, rider := range source.riders {
			if rider.element != ElementNone && rider.element != evt.Element {
				continue
			}
			w.addStacks(target, rider.status, rider.stacks, evt.SourceID)
		}
		for _, acc := range source.charges {
			acc.observe(evt)
		}
	}
	for _, fn := range w.damageObservers {
		fn(evt)
	}
}

func (w *World) drainDamageEvents() []DamageEvent {
	if w == nil || len(w.damageEvents) == 0 {
		return nil
	}
	events := w.damageEvents
	w.damageEvents = nil
	return events
}

func (w *World) logDamage(evt DamageEvent, remaining float64) {
	if w == nil || w.publisher == nil {
		return
	}
	combatlog.Damage(context.Background(), w.publisher, evt.Tick,
		w.entityRef(evt.SourceID),
		w.entityRef(evt.TargetID),
		combatlog.DamagePayload{
			Element:   string(evt.Element),
			Requested: evt.Amount,
			Applied:   evt.Applied,
			Remaining: remaining,
		},
	)
}

func (w *World) logHeal(sourceID string, target *actorState, amount float64) {
	if w == nil || w.publisher == nil {
		return
	}
	combatlog.Heal(context.Background(), w.publisher, w.currentTick,
		w.entityRef(sourceID),
		w.entityRef(target.ID),
		combatlog.HealPayload{Amount: amount, Remaining: target.Health},
	)
}
