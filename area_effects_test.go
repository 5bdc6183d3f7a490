package server

import (
	"math"
	"strings"
	"testing"

	spelllog "spellstorm/server/logging/spells"
)

func TestSpawnRejectsBadConfigs(t *testing.T) {
	w := newTestWorld(t)

	cases := []struct {
		name  string
		spawn func() error
	}{
		{name: "pulse zero radius", spawn: func() error {
			_, err := w.spawnPulse(pulseConfig{EffectType: "p", Radius: 0, Interval: 1, Duration: 5})
			return err
		}},
		{name: "pulse zero interval", spawn: func() error {
			_, err := w.spawnPulse(pulseConfig{EffectType: "p", Radius: 3, Interval: 0, Duration: 5})
			return err
		}},
		{name: "pulse zero duration", spawn: func() error {
			_, err := w.spawnPulse(pulseConfig{EffectType: "p", Radius: 3, Interval: 1, Duration: 0})
			return err
		}},
		{name: "pulse roam without cadence", spawn: func() error {
			_, err := w.spawnPulse(pulseConfig{EffectType: "p", Radius: 3, Interval: 1, Duration: 5, RoamRange: 5})
			return err
		}},
		{name: "patch zero radius", spawn: func() error {
			_, err := w.spawnPatch(patchConfig{EffectType: "p", Radius: 0, TickInterval: 0.5, Lifetime: 4})
			return err
		}},
		{name: "patch zero tick interval", spawn: func() error {
			_, err := w.spawnPatch(patchConfig{EffectType: "p", Radius: 2, TickInterval: 0, Lifetime: 4})
			return err
		}},
		{name: "patch zero lifetime", spawn: func() error {
			_, err := w.spawnPatch(patchConfig{EffectType: "p", Radius: 2, TickInterval: 0.5, Lifetime: 0})
			return err
		}},
		{name: "burst zero radius", spawn: func() error {
			_, err := w.spawnBurst(burstConfig{EffectType: "b", MaxRadius: 0, Duration: 0.4, DamageAppliedAt: 0.5})
			return err
		}},
		{name: "burst zero duration", spawn: func() error {
			_, err := w.spawnBurst(burstConfig{EffectType: "b", MaxRadius: 8, Duration: 0, DamageAppliedAt: 0.5})
			return err
		}},
		{name: "burst damage point at zero", spawn: func() error {
			_, err := w.spawnBurst(burstConfig{EffectType: "b", MaxRadius: 8, Duration: 0.4, DamageAppliedAt: 0})
			return err
		}},
		{name: "burst damage point past one", spawn: func() error {
			_, err := w.spawnBurst(burstConfig{EffectType: "b", MaxRadius: 8, Duration: 0.4, DamageAppliedAt: 1.2})
			return err
		}},
		{name: "projectile zero speed", spawn: func() error {
			_, err := w.spawnProjectile(projectileConfig{EffectType: "j", DirX: 1, Speed: 0, CollisionRadius: 1, Lifetime: 3})
			return err
		}},
		{name: "projectile zero direction", spawn: func() error {
			_, err := w.spawnProjectile(projectileConfig{EffectType: "j", Speed: 20, CollisionRadius: 1, Lifetime: 3})
			return err
		}},
		{name: "projectile zero lifetime", spawn: func() error {
			_, err := w.spawnProjectile(projectileConfig{EffectType: "j", DirX: 1, Speed: 20, CollisionRadius: 1, Lifetime: 0})
			return err
		}},
		{name: "aura without zone status", spawn: func() error {
			_, err := w.spawnAura(auraConfig{EffectType: "a", Radius: 5, Duration: 8})
			return err
		}},
		{name: "aura zero radius", spawn: func() error {
			_, err := w.spawnAura(auraConfig{EffectType: "a", Radius: 0, Duration: 8, ZoneStatus: StatusChillAura})
			return err
		}},
		{name: "emitter without any gate", spawn: func() error {
			_, err := w.spawnEmitter(emitterConfig{EffectType: "e", Duration: 8,
				Patch: patchConfig{Radius: 1, TickInterval: 0.5, Lifetime: 4}})
			return err
		}},
		{name: "emitter bad patch template", spawn: func() error {
			_, err := w.spawnEmitter(emitterConfig{EffectType: "e", Interval: 1, Duration: 8,
				Patch: patchConfig{Radius: 0, TickInterval: 0.5, Lifetime: 4}})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.spawn(); err == nil {
				t.Fatalf("expected a construction error")
			}
		})
	}

	if len(w.effects) != 0 {
		t.Fatalf("expected no effects after rejected spawns, got %d", len(w.effects))
	}
}

func TestPatchDamagesOnInterval(t *testing.T) {
	w := newTestWorld(t)
	enemy := w.spawnStalkerAt(10, 10)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnPatch(patchConfig{
		EffectType: "blight", X: 10, Y: 10, Radius: 2, TickInterval: 0.5, Lifetime: 4, DamagePerTick: 5, Element: ElementPoison,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.25)
	if enemy.Health != 60 {
		t.Fatalf("health = %v, want untouched before the first interval", enemy.Health)
	}

	w.advanceAreaEffects(0.25)
	if enemy.Health != 55 {
		t.Fatalf("health = %v, want 55 after the first patch tick", enemy.Health)
	}

	w.advanceAreaEffects(0.5)
	if enemy.Health != 50 {
		t.Fatalf("health = %v, want 50 after the second patch tick", enemy.Health)
	}
}

func TestOverlappingPatchesDamageOncePerTick(t *testing.T) {
	w := newTestWorld(t)
	shared := w.spawnStalkerAt(10, 10)
	exclusive := w.spawnStalkerAt(12.5, 10)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnPatch(patchConfig{
		EffectType: "first", X: 10, Y: 10, Radius: 2, TickInterval: 0.5, Lifetime: 4, DamagePerTick: 5,
	}); err != nil {
		t.Fatalf("first spawn failed: %v", err)
	}
	if _, err := w.spawnPatch(patchConfig{
		EffectType: "second", X: 11, Y: 10, Radius: 2, TickInterval: 0.5, Lifetime: 4, DamagePerTick: 7,
	}); err != nil {
		t.Fatalf("second spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	// The shared target takes the older patch's tick only.
	if shared.Health != 55 {
		t.Fatalf("shared health = %v, want 55 from a single 5 damage tick", shared.Health)
	}
	if exclusive.Health != 53 {
		t.Fatalf("exclusive health = %v, want 53 from the second patch", exclusive.Health)
	}

	// The scratch set resets between ticks.
	w.advanceAreaEffects(0.5)
	if shared.Health != 50 {
		t.Fatalf("shared health = %v, want 50 after the next tick", shared.Health)
	}
	if exclusive.Health != 46 {
		t.Fatalf("exclusive health = %v, want 46 after the next tick", exclusive.Health)
	}
}

func TestBurstFiresExactlyOnceThenCompletes(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	enemy := w.spawnStalkerAt(17, 10)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnBurst(burstConfig{
		EffectType: "nova", X: 10, Y: 10, MaxRadius: 8, Duration: 0.4, DamageAppliedAt: 0.5, Damage: 10, Element: ElementFire,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.1)
	if enemy.Health != 60 {
		t.Fatalf("health = %v, want untouched at progress 0.25", enemy.Health)
	}

	snaps := w.snapshotEffects()
	if len(snaps) != 1 {
		t.Fatalf("expected one live effect, got %d", len(snaps))
	}
	if math.Abs(snaps[0].Radius-2) > 1e-9 {
		t.Fatalf("visual radius = %v, want 2 at quarter expansion", snaps[0].Radius)
	}
	if math.Abs(snaps[0].Params["progress"]-0.25) > 1e-9 {
		t.Fatalf("progress = %v, want 0.25", snaps[0].Params["progress"])
	}

	// Damage lands across the full radius the moment the threshold passes.
	w.advanceAreaEffects(0.1)
	if enemy.Health != 50 {
		t.Fatalf("health = %v, want 50 at the damage point", enemy.Health)
	}

	w.advanceAreaEffects(0.1)
	w.advanceAreaEffects(0.1)
	if enemy.Health != 50 {
		t.Fatalf("health = %v, want the burst to fire only once", enemy.Health)
	}
	if len(w.effects) != 0 {
		t.Fatalf("expected the finished burst pruned, got %d effects", len(w.effects))
	}

	ended := recorder.ofType(spelllog.EventEffectEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one effect_ended event, got %d", len(ended))
	}
	payload, ok := ended[0].Payload.(spelllog.EffectPayload)
	if !ok {
		t.Fatalf("payload type = %T, want EffectPayload", ended[0].Payload)
	}
	if payload.Reason != "completed" {
		t.Fatalf("end reason = %q, want completed", payload.Reason)
	}
}

func TestBurstDamageAtFullExpansion(t *testing.T) {
	w := newTestWorld(t)
	enemy := w.spawnStalkerAt(12, 10)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnBurst(burstConfig{
		EffectType: "nova", X: 10, Y: 10, MaxRadius: 8, Duration: 0.4, DamageAppliedAt: 1, Damage: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.4)

	if enemy.Health != 50 {
		t.Fatalf("health = %v, want the rim-timed burst to still land once", enemy.Health)
	}
	if len(w.effects) != 0 {
		t.Fatalf("expected the burst pruned in the same pass, got %d effects", len(w.effects))
	}
}

func TestBurstSkipsOwner(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 10, 10)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnBurst(burstConfig{
		Owner: "player-1", EffectType: "nova", X: 10, Y: 10, MaxRadius: 8, Duration: 0.4, DamageAppliedAt: 0.5, Damage: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.4)

	if player.Health != 100 {
		t.Fatalf("health = %v, want the caster untouched by their own burst", player.Health)
	}
}

func TestProjectileSweepCatchesFastTargets(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	enemy := w.spawnStalkerAt(20, 10)
	w.targetIndex.rebuild(w.actorList)

	eff, err := w.spawnProjectile(projectileConfig{
		EffectType: "bolt", X: 10, Y: 10, DirX: 1, Speed: 50, CollisionRadius: 1, Lifetime: 3, Damage: 10, Element: ElementFire,
	})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	if enemy.Health != 50 {
		t.Fatalf("health = %v, want 50 even though the step overshoots the target", enemy.Health)
	}
	if eff.X != 20 || eff.Y != 10 {
		t.Fatalf("impact at (%v, %v), want the target position (20, 10)", eff.X, eff.Y)
	}
	if len(w.effects) != 0 {
		t.Fatalf("expected the projectile pruned on impact, got %d effects", len(w.effects))
	}

	ended := recorder.ofType(spelllog.EventEffectEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one effect_ended event, got %d", len(ended))
	}
	if payload := ended[0].Payload.(spelllog.EffectPayload); payload.Reason != "impact" {
		t.Fatalf("end reason = %q, want impact", payload.Reason)
	}
}

func TestProjectileHitsLowestIDOnSharedSweep(t *testing.T) {
	w := newTestWorld(t)
	far := w.spawnStalkerAt(25, 10)  // enemy-1
	near := w.spawnStalkerAt(15, 10) // enemy-2
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnProjectile(projectileConfig{
		EffectType: "bolt", X: 10, Y: 10, DirX: 1, Speed: 50, CollisionRadius: 1, Lifetime: 3, Damage: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	if far.Health != 50 {
		t.Fatalf("enemy-1 health = %v, want the id-ordered hit to land on it", far.Health)
	}
	if near.Health != 60 {
		t.Fatalf("enemy-2 health = %v, want untouched", near.Health)
	}
}

func TestProjectileStopsAtWall(t *testing.T) {
	w, recorder := newRecordedWorld(t)

	if _, err := w.spawnProjectile(projectileConfig{
		EffectType: "bolt", X: 110, Y: 60, DirX: 1, Speed: 50, CollisionRadius: 1, Lifetime: 3, Damage: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	if len(w.effects) != 0 {
		t.Fatalf("expected the projectile pruned at the wall, got %d effects", len(w.effects))
	}
	ended := recorder.ofType(spelllog.EventEffectEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one effect_ended event, got %d", len(ended))
	}
	if payload := ended[0].Payload.(spelllog.EffectPayload); payload.Reason != "wall" {
		t.Fatalf("end reason = %q, want wall", payload.Reason)
	}
}

func TestProjectileExpiryDealsNoDirectDamage(t *testing.T) {
	w := newTestWorld(t)
	enemy := w.spawnStalkerAt(50, 50)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnProjectile(projectileConfig{
		EffectType: "bolt", X: 10, Y: 10, DirX: 1, Speed: 1, CollisionRadius: 1, Lifetime: 0.2, Damage: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.3)

	if enemy.Health != 60 {
		t.Fatalf("health = %v, want no damage from a fizzled projectile", enemy.Health)
	}
	if len(w.damageEvents) != 0 {
		t.Fatalf("expected no damage events, got %d", len(w.damageEvents))
	}
	if len(w.effects) != 0 {
		t.Fatalf("expected the projectile pruned on expiry, got %d effects", len(w.effects))
	}
}

func TestProjectileOnEndFiresForEveryEnding(t *testing.T) {
	w := newTestWorld(t)

	var endX, endY float64
	ends := 0
	if _, err := w.spawnProjectile(projectileConfig{
		EffectType: "bolt", X: 10, Y: 10, DirX: 1, Speed: 10, CollisionRadius: 1, Lifetime: 0.5, Damage: 10,
		OnEnd: func(_ *World, _ *effectState, x, y float64) {
			ends++
			endX, endY = x, y
		},
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.25)
	w.advanceAreaEffects(0.25)

	if ends != 1 {
		t.Fatalf("onEnd ran %d times, want exactly once", ends)
	}
	if math.Abs(endX-15) > 1e-6 || math.Abs(endY-10) > 1e-6 {
		t.Fatalf("onEnd at (%v, %v), want the expiry point (15, 10)", endX, endY)
	}
}

func TestPulseTracksAnchor(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)
	enemy := w.spawnStalkerAt(62, 60)
	w.targetIndex.rebuild(w.actorList)

	eff, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "drain", Radius: 3, Interval: 1, Duration: 10, Damage: 4,
	})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(1.0)
	if enemy.Health != 56 {
		t.Fatalf("health = %v, want 56 after the first firing", enemy.Health)
	}

	player.X, player.Y = 80, 80
	w.targetIndex.rebuild(w.actorList)
	w.advanceAreaEffects(1.0)

	if eff.X != 80 || eff.Y != 80 {
		t.Fatalf("pulse at (%v, %v), want the anchor's (80, 80)", eff.X, eff.Y)
	}
	if enemy.Health != 56 {
		t.Fatalf("health = %v, want out-of-range firing to miss", enemy.Health)
	}
}

func TestPulseAnchorLossDestroysEffect(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	addTestPlayer(w, "player-1", 60, 60)

	if _, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "drain", Radius: 3, Interval: 1, Duration: 10,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.RemovePlayer("player-1")
	w.advanceAreaEffects(0.1)

	if len(w.effects) != 0 {
		t.Fatalf("expected the orphaned pulse pruned, got %d effects", len(w.effects))
	}
	ended := recorder.ofType(spelllog.EventEffectEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one effect_ended event, got %d", len(ended))
	}
	if payload := ended[0].Payload.(spelllog.EffectPayload); payload.Reason != "anchor-lost" {
		t.Fatalf("end reason = %q, want anchor-lost", payload.Reason)
	}
}

func TestPulseHitsClosestTargetsOnly(t *testing.T) {
	w := newTestWorld(t)
	first := w.spawnStalkerAt(21, 20)
	second := w.spawnStalkerAt(22, 20)
	third := w.spawnStalkerAt(23, 20)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnPulse(pulseConfig{
		EffectType: "field", X: 20, Y: 20, Radius: 10, Interval: 1, Duration: 3, Damage: 5, MaxTargets: 2,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(1.0)

	if first.Health != 55 || second.Health != 55 {
		t.Fatalf("closest pair = %v/%v, want both at 55", first.Health, second.Health)
	}
	if third.Health != 60 {
		t.Fatalf("farthest = %v, want spared at 60", third.Health)
	}
}

func TestPulseSkipsOwnerAndHealsThroughLifesteal(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)
	player.Health = 50
	enemy := w.spawnStalkerAt(62, 60)
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "drain", Radius: 6, Interval: 0.5, Duration: 6,
		Damage: 8, Lifesteal: 0.25,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	if enemy.Health != 52 {
		t.Fatalf("enemy health = %v, want 52", enemy.Health)
	}
	if math.Abs(player.Health-52) > 1e-9 {
		t.Fatalf("owner health = %v, want 50 + 25%% of 8 = 52", player.Health)
	}
}

func TestPulsePaysOutPerStack(t *testing.T) {
	w := newTestWorld(t)
	enemy := w.spawnStalkerAt(21, 20)
	w.addStacks(&enemy.actorState, StatusPsychicBurn, 2, "player-1")
	w.targetIndex.rebuild(w.actorList)

	if _, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", EffectType: "brain", X: 20, Y: 20, Radius: 5, Interval: 0.5, Duration: 8,
		DamagePerStack: 3, HitStacks: StatusPsychicBurn, HitStacksCount: 1,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.5)

	// Two existing stacks plus the one landing this firing pay 3 each.
	if enemy.Health != 51 {
		t.Fatalf("health = %v, want 60 - 3*3 = 51", enemy.Health)
	}
	if got := w.stacksOf(&enemy.actorState, StatusPsychicBurn); got != 3 {
		t.Fatalf("stacks = %d, want 3 after the hit landed its stack", got)
	}
}

func TestRoamingPulseStaysNearAnchor(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "player-1", 60, 60)

	eff, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "storm", Radius: 2, Interval: 10, Duration: 30,
		RoamRange: 5, RoamInterval: 1,
	})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if d := math.Hypot(eff.X-60, eff.Y-60); d > 5+1e-9 {
			t.Fatalf("pulse wandered %v from its anchor, want at most 5", d)
		}
		w.advanceAreaEffects(1.0)
	}
}

func TestPulseFlashAndMarkersFollowLifecycle(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "player-1", 60, 60)

	if _, err := w.spawnPulse(pulseConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "storm", Radius: 3, Interval: 1, Duration: 2.5,
		FlashEffect: "storm-strike", FlashLifetime: 0.3, Markers: 2,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	markers := 0
	for _, eff := range w.effects {
		if eff.Type == effectTypeStormMarker {
			markers++
		}
	}
	if markers != 2 {
		t.Fatalf("markers = %d, want 2 spawned with the pulse", markers)
	}

	w.advanceAreaEffects(1.0)
	if got := countEffects(w, "storm-strike"); got != 1 {
		t.Fatalf("flashes = %d, want one per firing", got)
	}

	// The first flash burns out, the final firing leaves one more, and the
	// pulse takes its markers down with it.
	w.advanceAreaEffects(0.5)
	if got := countEffects(w, "storm-strike"); got != 0 {
		t.Fatalf("flashes = %d, want the first one expired", got)
	}
	w.advanceAreaEffects(1.0)
	if got := countEffects(w, effectTypeStormMarker); got != 0 {
		t.Fatalf("markers = %d, want them destroyed with the pulse", got)
	}
	w.advanceAreaEffects(0.5)
	if len(w.effects) != 0 {
		t.Fatalf("expected pulse, markers, and flashes all gone, got %d effects", len(w.effects))
	}
}

func TestAuraMembershipFollowsDistance(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)
	enemy := w.spawnStalkerAt(62, 60)

	if _, err := w.spawnAura(auraConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "frost-field", Radius: 5, Duration: 8,
		ZoneStatus: StatusChillAura, Magnitude: 0.5,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.1)

	if !w.statusActive(&enemy.actorState, StatusChillAura) {
		t.Fatalf("expected the enemy chilled inside the aura")
	}
	if w.statusActive(&player.actorState, StatusChillAura) {
		t.Fatalf("expected the owner exempt from their own aura")
	}

	enemy.X, enemy.Y = 90, 90
	w.advanceAreaEffects(0.1)

	if w.statusActive(&enemy.actorState, StatusChillAura) {
		t.Fatalf("expected membership dropped after leaving the zone")
	}
}

func TestAuraExpiryReleasesMembers(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "player-1", 60, 60)
	enemy := w.spawnStalkerAt(62, 60)

	if _, err := w.spawnAura(auraConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "frost-field", Radius: 5, Duration: 1,
		ZoneStatus: StatusChillAura, Magnitude: 0.5,
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.1)
	if !w.statusActive(&enemy.actorState, StatusChillAura) {
		t.Fatalf("expected membership while the aura lives")
	}

	w.advanceAreaEffects(1.0)

	if w.statusActive(&enemy.actorState, StatusChillAura) {
		t.Fatalf("expected membership released the tick the aura dies")
	}
	if len(w.effects) != 0 {
		t.Fatalf("expected the aura pruned, got %d effects", len(w.effects))
	}
}

func TestEmitterDropsPatchesOnInterval(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	if _, err := w.spawnEmitter(emitterConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "trail", Interval: 0.5, Duration: 8,
		Patch: patchConfig{EffectType: "trail-patch", Radius: 1.2, TickInterval: 0.5, Lifetime: 4, DamagePerTick: 2},
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.25)
	if got := countEffects(w, "trail-patch"); got != 0 {
		t.Fatalf("patches = %d, want none before the interval", got)
	}

	player.X = 61
	w.advanceAreaEffects(0.25)
	got := countEffects(w, "trail-patch")
	if got != 1 {
		t.Fatalf("patches = %d, want 1 after the interval", got)
	}

	for _, eff := range w.effects {
		if eff.Type == "trail-patch" && (eff.X != 61 || eff.Y != 60) {
			t.Fatalf("patch at (%v, %v), want the anchor's (61, 60)", eff.X, eff.Y)
		}
	}
}

func TestEmitterDropsPatchesOnDistance(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	if _, err := w.spawnEmitter(emitterConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "trail", SpawnDistance: 1.5, Duration: 8,
		Patch: patchConfig{EffectType: "trail-patch", Radius: 1.2, TickInterval: 0.5, Lifetime: 4, DamagePerTick: 2},
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.advanceAreaEffects(0.1)
	if got := countEffects(w, "trail-patch"); got != 0 {
		t.Fatalf("patches = %d, want none while the anchor stands still", got)
	}

	player.X = 62
	w.advanceAreaEffects(0.1)
	if got := countEffects(w, "trail-patch"); got != 1 {
		t.Fatalf("patches = %d, want 1 after moving past the gate", got)
	}

	w.advanceAreaEffects(0.1)
	if got := countEffects(w, "trail-patch"); got != 1 {
		t.Fatalf("patches = %d, want no further drops without movement", got)
	}
}

func TestEmitterDiesWithAnchor(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "player-1", 60, 60)

	if _, err := w.spawnEmitter(emitterConfig{
		Owner: "player-1", AnchorID: "player-1", EffectType: "trail", Interval: 0.5, Duration: 8,
		Patch: patchConfig{EffectType: "trail-patch", Radius: 1.2, TickInterval: 0.5, Lifetime: 4},
	}); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	w.RemovePlayer("player-1")
	w.advanceAreaEffects(0.1)

	if len(w.effects) != 0 {
		t.Fatalf("expected the emitter destroyed with its anchor, got %d effects", len(w.effects))
	}
}

func TestSnapshotEffectsSkipsDead(t *testing.T) {
	w := newTestWorld(t)

	eff, err := w.spawnPatch(patchConfig{
		EffectType: "blight", X: 10, Y: 10, Radius: 2, TickInterval: 0.5, Lifetime: 4,
	})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	w.destroyEffect(eff, "expired")

	if snaps := w.snapshotEffects(); len(snaps) != 0 {
		t.Fatalf("expected dead effects hidden from snapshots, got %d", len(snaps))
	}
}

func TestEffectIDsAreSequential(t *testing.T) {
	w := newTestWorld(t)

	first, err := w.spawnPatch(patchConfig{EffectType: "a", X: 1, Y: 1, Radius: 1, TickInterval: 1, Lifetime: 1})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	second, err := w.spawnPatch(patchConfig{EffectType: "b", X: 2, Y: 2, Radius: 1, TickInterval: 1, Lifetime: 1})
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	if !strings.HasPrefix(first.ID, "effect-") || !strings.HasPrefix(second.ID, "effect-") {
		t.Fatalf("ids = %q, %q; want the effect- prefix", first.ID, second.ID)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %q", first.ID)
	}
}

func countEffects(w *World, effectType string) int {
	count := 0
	for _, eff := range w.effects {
		if eff != nil && eff.remaining > 0 && eff.Type == effectType {
			count++
		}
	}
	return count
}
