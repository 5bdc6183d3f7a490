package stats

// Sanity bounds applied to resolved totals. These keep stacked modifiers from
// producing values the simulation cannot handle.
const (
	maxHealthCeiling   = 1e9
	moveSpeedCeiling   = 100.0
	damageTakenCeiling = 10.0
)

// normalizeTotals clamps resolved totals into their supported ranges. A stack
// of slows can zero out move speed but never drive it negative, and
// damage-taken multipliers stay bounded on both sides.
func normalizeTotals(total *ValueSet) {
	total[StatMaxHealth] = min(max(total[StatMaxHealth], 0), maxHealthCeiling)
	total[StatMoveSpeed] = min(max(total[StatMoveSpeed], 0), moveSpeedCeiling)
	total[StatDamageTaken] = min(max(total[StatDamageTaken], 0), damageTakenCeiling)
}
