package server

import "sort"

// ElementTag labels damage and spells with an elemental school. Tags carry a
// display color for the client and nothing else; gameplay behavior comes from
// the status effects a spell attaches, not from the tag.
type ElementTag string

const (
	ElementNone      ElementTag = ""
	ElementFire      ElementTag = "fire"
	ElementFrost     ElementTag = "frost"
	ElementLightning ElementTag = "lightning"
	ElementDark      ElementTag = "dark"
	ElementLight     ElementTag = "light"
	ElementPsychic   ElementTag = "psychic"
	ElementChaos     ElementTag = "chaos"
	ElementPoison    ElementTag = "poison"
	ElementPhysical  ElementTag = "physical"
)

var elementColors = map[ElementTag]string{
	ElementFire:      "#FF8000",
	ElementFrost:     "#87CEEB",
	ElementLightning: "#FFFF00",
	ElementDark:      "#800080",
	ElementLight:     "#FFFFFF",
	ElementPsychic:   "#FFB6C1",
	ElementChaos:     "#FF00FF",
	ElementPoison:    "#00FF00",
	ElementPhysical:  "#C0C0C0",
}

// Color returns the display color for damage numbers and effect tinting.
// Typeless damage renders in the physical gray.
func (e ElementTag) Color() string {
	if color, ok := elementColors[e]; ok {
		return color
	}
	return elementColors[ElementPhysical]
}

// knownElements lists every element tag in ascending order for catalog
// validation and diagnostics.
func knownElements() []string {
	names := make([]string, 0, len(elementColors))
	for tag := range elementColors {
		names = append(names, string(tag))
	}
	sort.Strings(names)
	return names
}

// parseElement validates an element string received from config or clients.
func parseElement(value string) (ElementTag, bool) {
	switch ElementTag(value) {
	case ElementFire, ElementFrost, ElementLightning, ElementDark,
		ElementLight, ElementPsychic, ElementChaos, ElementPoison, ElementPhysical:
		return ElementTag(value), true
	case ElementNone:
		return ElementNone, true
	default:
		return ElementNone, false
	}
}
