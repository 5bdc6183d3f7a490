package server

import (
	"math"
	"testing"

	statuslog "spellstorm/server/logging/statuseffects"
	stats "spellstorm/server/stats"
)

func TestApplyStatusInstallsAndSlows(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	if !w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{}) {
		t.Fatalf("expected first application to create a record")
	}
	w.resolveStats(1)

	if speed := player.stats.GetTotal(stats.StatMoveSpeed); math.Abs(speed-4.5) > 1e-9 {
		t.Fatalf("move speed = %v, want 4.5 while slowed", speed)
	}
}

func TestApplyStatusRefreshOverwritesNeverStacks(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{})
	w.advanceStatuses(2.0)

	if w.applyStatus(&player.actorState, StatusSlow, "enemy-2", statusParams{Duration: 1.5, Magnitude: 0.6}) {
		t.Fatalf("expected refresh to report an existing record")
	}

	inst := w.statusInstanceOf(&player.actorState, StatusSlow)
	if inst == nil {
		t.Fatalf("expected slow record to survive the refresh")
	}
	if inst.SourceID != "enemy-2" {
		t.Fatalf("source = %q, want refresher enemy-2", inst.SourceID)
	}
	if math.Abs(inst.remaining-1.5) > 1e-9 {
		t.Fatalf("remaining = %v, want overwritten 1.5", inst.remaining)
	}
	if math.Abs(inst.Magnitude-0.6) > 1e-9 {
		t.Fatalf("magnitude = %v, want overwritten 0.6", inst.Magnitude)
	}
	if len(player.statuses) != 1 {
		t.Fatalf("expected a single slow record, got %d statuses", len(player.statuses))
	}

	if applied := recorder.ofType(statuslog.EventApplied); len(applied) != 1 {
		t.Fatalf("expected one applied event, got %d", len(applied))
	}
	if refreshed := recorder.ofType(statuslog.EventRefreshed); len(refreshed) != 1 {
		t.Fatalf("expected one refreshed event, got %d", len(refreshed))
	}
}

func TestStatusExpiryRestoresStats(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{})
	w.resolveStats(1)

	w.advanceStatuses(slowDuration + 0.1)
	w.resolveStats(2)

	if w.statusActive(&player.actorState, StatusSlow) {
		t.Fatalf("expected slow to expire")
	}
	if speed := player.stats.GetTotal(stats.StatMoveSpeed); math.Abs(speed-9) > 1e-9 {
		t.Fatalf("move speed = %v, want restored 9", speed)
	}
	if ended := recorder.ofType(statuslog.EventEnded); len(ended) != 1 {
		t.Fatalf("expected one ended event, got %d", len(ended))
	}
}

func TestApplyStatusRejectsWrongClass(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	if w.applyStatus(&player.actorState, StatusChillAura, "effect-1", statusParams{}) {
		t.Fatalf("zone statuses must not install through applyStatus")
	}
	if w.applyStatus(&player.actorState, StatusFreezeBuildup, "enemy-1", statusParams{}) {
		t.Fatalf("buildup statuses must not install through applyStatus")
	}
	if w.addStacks(&player.actorState, StatusSlow, 1, "enemy-1") {
		t.Fatalf("timed statuses must not accumulate through addStacks")
	}
}

func TestApplyStatusDeadTargetNoOp(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)
	player.Health = 0

	if w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{}) {
		t.Fatalf("expected no status on a dead target")
	}
}

func TestBuildupThresholdTriggersTerminal(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	for i := 0; i < freezeBuildupMaxStacks-1; i++ {
		if w.addStacks(&player.actorState, StatusFreezeBuildup, 1, "enemy-1") {
			t.Fatalf("stack %d should not reach the threshold", i+1)
		}
	}
	if !w.addStacks(&player.actorState, StatusFreezeBuildup, 1, "enemy-1") {
		t.Fatalf("expected final stack to report the threshold")
	}

	if w.statusActive(&player.actorState, StatusFreezeBuildup) {
		t.Fatalf("expected the buildup record to clear at the threshold")
	}
	if !w.statusActive(&player.actorState, StatusFrozen) {
		t.Fatalf("expected frozen to install as the terminal status")
	}
	if triggered := recorder.ofType(statuslog.EventTriggered); len(triggered) != 1 {
		t.Fatalf("expected one triggered event, got %d", len(triggered))
	}
}

func TestBuildupIgnoredWhileTerminalActive(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusFrozen, "enemy-1", statusParams{})

	if w.addStacks(&player.actorState, StatusFreezeBuildup, 3, "enemy-1") {
		t.Fatalf("expected stacks rejected while frozen")
	}
	if got := w.stacksOf(&player.actorState, StatusFreezeBuildup); got != 0 {
		t.Fatalf("stacks = %d, want 0 while frozen", got)
	}
}

func TestBuildupStacksCapAtMax(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.addStacks(&player.actorState, StatusPsychicBurn, psychicBurnMaxStacks+5, "enemy-1")

	// Psychic burn's terminal fires at max, clearing the record.
	if w.statusActive(&player.actorState, StatusPsychicBurn) {
		t.Fatalf("expected record cleared after the capped threshold")
	}
	if !w.statusActive(&player.actorState, StatusDazed) {
		t.Fatalf("expected dazed terminal after overshoot")
	}
}

func TestBuildupDecaysOneStackPerInterval(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	for i := 0; i < 3; i++ {
		w.addStacks(&player.actorState, StatusFreezeBuildup, 1, "enemy-1")
	}

	w.advanceStatuses(freezeBuildupDecayInterval)
	if got := w.stacksOf(&player.actorState, StatusFreezeBuildup); got != 2 {
		t.Fatalf("stacks = %d, want 2 after one decay interval", got)
	}

	w.advanceStatuses(2 * freezeBuildupDecayInterval)
	if w.statusActive(&player.actorState, StatusFreezeBuildup) {
		t.Fatalf("expected the buildup to decay away entirely")
	}
}

func TestBuildupDecayResetsOnNewStacks(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.addStacks(&player.actorState, StatusFreezeBuildup, 2, "enemy-1")
	w.advanceStatuses(freezeBuildupDecayInterval - 0.1)
	w.addStacks(&player.actorState, StatusFreezeBuildup, 1, "enemy-1")
	w.advanceStatuses(freezeBuildupDecayInterval - 0.1)

	if got := w.stacksOf(&player.actorState, StatusFreezeBuildup); got != 3 {
		t.Fatalf("stacks = %d, want 3 with the decay timer reset", got)
	}
}

func TestBuildupDecayPausesWhileFrozen(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.addStacks(&player.actorState, StatusFreezeBuildup, 2, "enemy-1")
	w.applyStatus(&player.actorState, StatusFrozen, "enemy-1", statusParams{})

	w.advanceStatuses(1.0)
	if got := w.stacksOf(&player.actorState, StatusFreezeBuildup); got != 2 {
		t.Fatalf("stacks = %d, want decay paused at 2 while frozen", got)
	}

	w.cleanse(&player.actorState, StatusFrozen)
	w.advanceStatuses(freezeBuildupDecayInterval)
	if got := w.stacksOf(&player.actorState, StatusFreezeBuildup); got != 1 {
		t.Fatalf("stacks = %d, want decay resumed to 1", got)
	}
}

func TestDotTicksDamageOnCadence(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusBurn, "enemy-1", statusParams{DamagePerTick: 5})

	w.advanceStatuses(burnTickInterval)
	if math.Abs(player.Health-95) > 1e-9 {
		t.Fatalf("health = %v, want 95 after the first burn tick", player.Health)
	}

	w.advanceStatuses(2 * burnTickInterval)
	if math.Abs(player.Health-85) > 1e-9 {
		t.Fatalf("health = %v, want 85 after two more ticks", player.Health)
	}
}

func TestDotExpiresAfterFullDuration(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusBurn, "enemy-1", statusParams{DamagePerTick: 5})
	w.advanceStatuses(burnDuration)

	if w.statusActive(&player.actorState, StatusBurn) {
		t.Fatalf("expected burn to expire at the end of its duration")
	}
	want := 100 - 5*(burnDuration/burnTickInterval)
	if math.Abs(player.Health-want) > 1e-9 {
		t.Fatalf("health = %v, want %v after every scheduled tick", player.Health, want)
	}
}

func TestDotAttachesAndReleasesVisual(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusBurn, "enemy-1", statusParams{DamagePerTick: 1})

	found := false
	for _, eff := range w.effects {
		if eff.Type == effectTypeBurningVisual && eff.followActorID == "player-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a burning visual tracking the target")
	}

	w.cleanse(&player.actorState, StatusBurn)
	w.advanceAreaEffects(0.05)

	for _, eff := range w.effects {
		if eff.Type == effectTypeBurningVisual {
			t.Fatalf("expected the burning visual to be released with the status")
		}
	}
}

func TestCleanseRemovesOnlyListedKinds(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{})
	w.applyStatus(&player.actorState, StatusWeaken, "enemy-1", statusParams{})

	removed := w.cleanse(&player.actorState, StatusSlow, StatusBurn)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if w.statusActive(&player.actorState, StatusSlow) {
		t.Fatalf("expected slow cleansed")
	}
	if !w.statusActive(&player.actorState, StatusWeaken) {
		t.Fatalf("expected weaken untouched")
	}

	ended := recorder.ofType(statuslog.EventEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one ended event, got %d", len(ended))
	}
}

func TestCleanseCleanTargetIsSafe(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	if removed := w.cleanse(&player.actorState, StatusSlow, StatusBurn, StatusFrozen); removed != 0 {
		t.Fatalf("removed = %d, want 0 on a clean target", removed)
	}
}

func TestZoneStatusSyncIsIdempotent(t *testing.T) {
	w, recorder := newRecordedWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-1", 0.5, true)
	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-1", 0.5, true)

	if len(player.statuses) != 1 {
		t.Fatalf("expected a single zone record, got %d", len(player.statuses))
	}
	if applied := recorder.ofType(statuslog.EventApplied); len(applied) != 1 {
		t.Fatalf("expected one applied event, got %d", len(applied))
	}

	w.resolveStats(1)
	if speed := player.stats.GetTotal(stats.StatMoveSpeed); math.Abs(speed-4.5) > 1e-9 {
		t.Fatalf("move speed = %v, want 4.5 inside the zone", speed)
	}

	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-1", 0.5, false)
	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-1", 0.5, false)

	if w.statusActive(&player.actorState, StatusChillAura) {
		t.Fatalf("expected zone status removed on leave")
	}
	if ended := recorder.ofType(statuslog.EventEnded); len(ended) != 1 {
		t.Fatalf("expected one ended event, got %d", len(ended))
	}

	w.resolveStats(2)
	if speed := player.stats.GetTotal(stats.StatMoveSpeed); math.Abs(speed-9) > 1e-9 {
		t.Fatalf("move speed = %v, want restored 9", speed)
	}
}

func TestZoneStatusMagnitudeUpdatesInPlace(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-1", 0.5, true)
	w.syncZoneStatus(&player.actorState, StatusChillAura, "effect-2", 0.25, true)

	inst := w.statusInstanceOf(&player.actorState, StatusChillAura)
	if inst == nil {
		t.Fatalf("expected zone record")
	}
	if math.Abs(inst.Magnitude-0.25) > 1e-9 {
		t.Fatalf("magnitude = %v, want stronger zone 0.25", inst.Magnitude)
	}

	w.resolveStats(1)
	if speed := player.stats.GetTotal(stats.StatMoveSpeed); math.Abs(speed-2.25) > 1e-9 {
		t.Fatalf("move speed = %v, want 2.25 under the stronger zone", speed)
	}
}

func TestStatusSnapshotsReportRemaining(t *testing.T) {
	w := newTestWorld(t)
	player := addTestPlayer(w, "player-1", 60, 60)

	w.applyStatus(&player.actorState, StatusSlow, "enemy-1", statusParams{Duration: 2})
	w.addStacks(&player.actorState, StatusPsychicBurn, 3, "enemy-1")

	snaps := player.statusSnapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	for _, snap := range snaps {
		switch snap.Kind {
		case StatusSlow:
			if math.Abs(snap.Remaining-1) > 1e-9 {
				t.Fatalf("slow remaining = %v, want fraction 1", snap.Remaining)
			}
		case StatusPsychicBurn:
			if snap.Stacks != 3 {
				t.Fatalf("stacks = %d, want 3", snap.Stacks)
			}
		default:
			t.Fatalf("unexpected snapshot kind %q", snap.Kind)
		}
	}
}
