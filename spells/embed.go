package spells

import "embed"

//go:embed catalog.json
var embedded embed.FS

type embeddedSource struct{}

func (embeddedSource) Bytes() ([]byte, error) {
	return embedded.ReadFile("catalog.json")
}

func (embeddedSource) Name() string {
	return "embedded:catalog.json"
}

// embeddedCatalog exposes the catalog bundled with the server binary. Disk
// overlays loaded after it can retune individual entries.
func embeddedCatalog() catalogSource {
	return embeddedSource{}
}
