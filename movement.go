package server

import (
	"math"

	stats "spellstorm/server/stats"
)

const (
	// disorientRetarget is how long a scrambled direction holds before a
	// fresh jitter roll.
	disorientRetarget = 0.2
	disorientJitter   = 2.0

	chaseActivationRange = 45.0
)

// resolveMovement advances every actor one step. Enemy steering runs first so
// their intent is fresh, then each actor integrates against its resolved move
// speed, and finally overlapping bodies separate.
func (w *World) resolveMovement(dt float64) {
	if w == nil || dt <= 0 {
		return
	}
	w.steerEnemies()
	for _, actor := range w.actorList {
		if !actor.alive() {
			continue
		}
		w.moveActor(actor, dt)
	}
	separateActors(w.actorList)
	w.applyContactDamage(dt)
}

func (w *World) moveActor(actor *actorState, dt float64) {
	speed := actor.stats.GetTotal(stats.StatMoveSpeed)
	if speed <= 0 {
		return
	}

	dx, dy, moving := normalizeVector(actor.intentX, actor.intentY)
	if !moving {
		dx, dy = 0, 0
	}

	// Fear and disorientation override whatever the controller asked for.
	if inst := w.statusInstanceOf(actor, StatusFear); inst != nil {
		dx, dy = w.fleeDirection(actor, inst)
		if inst.Magnitude > 0 {
			speed *= inst.Magnitude
		}
	} else if w.statusActive(actor, StatusDisorient) {
		dx, dy = w.scrambleDirection(actor, dx, dy, dt)
	} else {
		actor.scrambleLeft = 0
	}

	if dx == 0 && dy == 0 {
		return
	}
	actor.FacingX, actor.FacingY = deriveFacing(dx, dy, actor.FacingX, actor.FacingY)
	actor.X = clamp(actor.X+dx*speed*dt, actorHalf, arenaWidth-actorHalf)
	actor.Y = clamp(actor.Y+dy*speed*dt, actorHalf, arenaHeight-actorHalf)
}

// fleeDirection points a feared actor directly away from whoever scared it.
// A vanished or overlapping source leaves the actor running along its facing.
func (w *World) fleeDirection(actor *actorState, inst *statusInstance) (float64, float64) {
	source := w.actorByID(inst.SourceID)
	if source != nil {
		if nx, ny, ok := normalizeVector(actor.X-source.X, actor.Y-source.Y); ok {
			return nx, ny
		}
	}
	return deriveFacing(0, 0, actor.FacingX, actor.FacingY)
}

// scrambleDirection folds a periodically rerolled jitter vector into the
// actor's intent, so disoriented controls stay erratic but not frozen.
func (w *World) scrambleDirection(actor *actorState, dx, dy, dt float64) (float64, float64) {
	actor.scrambleLeft -= dt
	if actor.scrambleLeft <= 0 {
		angle := w.rng.Float64() * 2 * math.Pi
		actor.scrambleX = math.Cos(angle) * disorientJitter
		actor.scrambleY = math.Sin(angle) * disorientJitter
		actor.scrambleLeft = disorientRetarget
	}
	if nx, ny, ok := normalizeVector(dx+actor.scrambleX, dy+actor.scrambleY); ok {
		return nx, ny
	}
	return 0, 0
}

// steerEnemies points each stalker at the closest living hero. Ties break on
// the lower player id so the hunt is reproducible.
func (w *World) steerEnemies() {
	for _, enemy := range w.enemies {
		if !enemy.alive() {
			continue
		}
		target := w.closestPlayer(enemy.X, enemy.Y, chaseActivationRange)
		if target == nil {
			enemy.intentX, enemy.intentY = 0, 0
			continue
		}
		enemy.intentX = target.X - enemy.X
		enemy.intentY = target.Y - enemy.Y
	}
}

func (w *World) closestPlayer(x, y, within float64) *playerState {
	var best *playerState
	bestDistSq := within * within
	for id, player := range w.players {
		if !player.alive() {
			continue
		}
		distSq := distanceSquared(x, y, player.X, player.Y)
		if distSq > bestDistSq {
			continue
		}
		if distSq == bestDistSq && best != nil && id > best.ID {
			continue
		}
		best = player
		bestDistSq = distSq
	}
	return best
}

// applyContactDamage bleeds heroes that stalkers are pressed against.
func (w *World) applyContactDamage(dt float64) {
	for _, enemy := range w.enemies {
		if !enemy.alive() {
			continue
		}
		for _, player := range w.players {
			if !player.alive() {
				continue
			}
			if !circlesOverlap(enemy.X, enemy.Y, actorHalf, player.X, player.Y, actorHalf) {
				continue
			}
			w.applyDamage(enemy.ID, &player.actorState, contactDamagePerSecond*dt, ElementPhysical)
		}
	}
}

// separateActors nudges overlapping bodies apart, splitting the correction
// between both so neither teleports.
func separateActors(actors []*actorState) {
	const minDist = actorHalf * 2
	for i := 0; i < len(actors); i++ {
		a := actors[i]
		if !a.alive() {
			continue
		}
		for j := i + 1; j < len(actors); j++ {
			b := actors[j]
			if !b.alive() {
				continue
			}
			dx := b.X - a.X
			dy := b.Y - a.Y
			distSq := dx*dx + dy*dy
			if distSq >= minDist*minDist {
				continue
			}
			nx, ny := 1.0, 0.0
			dist := math.Sqrt(distSq)
			if dist > 0 {
				nx, ny = dx/dist, dy/dist
			}
			shift := (minDist - dist) / 2
			a.X = clamp(a.X-nx*shift, actorHalf, arenaWidth-actorHalf)
			a.Y = clamp(a.Y-ny*shift, actorHalf, arenaHeight-actorHalf)
			b.X = clamp(b.X+nx*shift, actorHalf, arenaWidth-actorHalf)
			b.Y = clamp(b.Y+ny*shift, actorHalf, arenaHeight-actorHalf)
		}
	}
}
