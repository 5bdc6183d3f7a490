package server

import (
	"context"
	"fmt"

	spelllog "spellstorm/server/logging/spells"
)

// chargeConfig describes a passive accumulator granted to an actor: damage
// the owner deals with the matching element feeds the bar, and a full bar
// releases the configured burst at the owner's position.
type chargeConfig struct {
	ID           string
	Element      ElementTag
	Max          float64
	PerUnitInput float64
	Discharge    burstConfig // owner and position are filled in at release
}

type chargeAccumulator struct {
	id           string
	element      ElementTag
	current      float64
	max          float64
	perUnitInput float64
	discharge    burstConfig
}

// installCharge attaches an accumulator to an actor. Bad numbers are
// rejected outright so a misconfigured passive never reaches the damage
// path. Installing the same id twice is a no-op.
func (w *World) installCharge(target *actorState, cfg chargeConfig) error {
	if w == nil || target == nil {
		return fmt.Errorf("charge %q: no target", cfg.ID)
	}
	if cfg.Max <= 0 {
		return fmt.Errorf("charge %q: max must be positive, got %v", cfg.ID, cfg.Max)
	}
	if cfg.PerUnitInput <= 0 {
		return fmt.Errorf("charge %q: per-unit input must be positive, got %v", cfg.ID, cfg.PerUnitInput)
	}
	if cfg.Discharge.MaxRadius <= 0 || cfg.Discharge.Duration <= 0 {
		return fmt.Errorf("charge %q: discharge burst is invalid", cfg.ID)
	}
	if cfg.Discharge.DamageAppliedAt <= 0 || cfg.Discharge.DamageAppliedAt > 1 {
		return fmt.Errorf("charge %q: discharge damage point must be in (0, 1], got %v", cfg.ID, cfg.Discharge.DamageAppliedAt)
	}
	for _, acc := range target.charges {
		if acc != nil && acc.id == cfg.ID {
			return nil
		}
	}
	target.charges = append(target.charges, &chargeAccumulator{
		id:           cfg.ID,
		element:      cfg.Element,
		max:          cfg.Max,
		perUnitInput: cfg.PerUnitInput,
		discharge:    cfg.Discharge,
	})
	return nil
}

// observe feeds one damage event into the bar. Gains clamp at the cap; the
// release itself waits for the per-tick check.
func (c *chargeAccumulator) observe(evt DamageEvent) {
	if c == nil || c.max <= 0 || evt.Amount <= 0 {
		return
	}
	if c.element != ElementNone && evt.Element != c.element {
		return
	}
	c.current += evt.Amount * c.perUnitInput
	if c.current > c.max {
		c.current = c.max
	}
}

// checkChargeTriggers releases every full accumulator exactly once. The
// spawned burst deals its damage on a later tick, so a release can never
// feed the bar that produced it within the same pass.
func (w *World) checkChargeTriggers() {
	if w == nil {
		return
	}
	for _, actor := range w.actorList {
		if actor == nil || !actor.alive() {
			continue
		}
		for _, acc := range actor.charges {
			if acc == nil || acc.current < acc.max {
				continue
			}
			w.releaseCharge(actor, acc)
		}
	}
}

func (w *World) releaseCharge(owner *actorState, acc *chargeAccumulator) {
	released := acc.current
	acc.current = 0
	cfg := acc.discharge
	cfg.Owner = owner.ID
	cfg.X, cfg.Y = owner.X, owner.Y
	if _, err := w.spawnBurst(cfg); err != nil {
		return
	}
	w.logChargeReleased(owner, acc, released)
}

func (w *World) logChargeReleased(owner *actorState, acc *chargeAccumulator, amount float64) {
	if w == nil || w.publisher == nil {
		return
	}
	spelllog.ChargeReleased(context.Background(), w.publisher, w.currentTick,
		w.entityRef(owner.ID),
		spelllog.ChargePayload{Charge: acc.id, Element: string(acc.element), Amount: amount}, nil)
}

// ChargeSnapshot is the wire view of an accumulator.
type ChargeSnapshot struct {
	ID      string     `json:"id"`
	Element ElementTag `json:"element,omitempty"`
	Current float64    `json:"current"`
	Max     float64    `json:"max"`
}

func (s *actorState) chargeSnapshots() []ChargeSnapshot {
	if s == nil || len(s.charges) == 0 {
		return nil
	}
	snaps := make([]ChargeSnapshot, 0, len(s.charges))
	for _, acc := range s.charges {
		if acc == nil {
			continue
		}
		snaps = append(snaps, ChargeSnapshot{ID: acc.id, Element: acc.element, Current: acc.current, Max: acc.max})
	}
	return snaps
}
