package stats

// Archetype selects the base stat line an actor spawns with.
type Archetype uint8

const (
	ArchetypeHero Archetype = iota
	ArchetypeStalker
)

// DefaultBase returns the spawn-time stat line for an archetype. Unknown
// values fall back to the hero line so a bad archetype never spawns a
// zero-health actor.
func DefaultBase(a Archetype) ValueSet {
	var base ValueSet
	switch a {
	case ArchetypeStalker:
		base[StatMaxHealth] = 60
		base[StatMoveSpeed] = 4.5
		base[StatDamageTaken] = 1
	default:
		base[StatMaxHealth] = 100
		base[StatMoveSpeed] = 9
		base[StatDamageTaken] = 1
	}
	return base
}

// DefaultComponent builds a resolved component for an archetype, ready for
// GetTotal reads before the first simulation tick.
func DefaultComponent(a Archetype) Component {
	c := NewComponent(DefaultBase(a))
	c.Resolve(0)
	return c
}
