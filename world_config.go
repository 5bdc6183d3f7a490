package server

import "strings"

const defaultWorldSeed = "arena"

// worldConfig captures the knobs used when generating an arena.
type worldConfig struct {
	Seed         string   `json:"seed"`
	EnemyCount   int      `json:"enemyCount"`
	WaveInterval float64  `json:"waveInterval"`
	CatalogPaths []string `json:"catalogPaths,omitempty"`
}

// normalized fills holes with the stock arena values so a zero config is
// always playable.
func (cfg worldConfig) normalized() worldConfig {
	out := cfg
	out.Seed = strings.TrimSpace(out.Seed)
	if out.Seed == "" {
		out.Seed = defaultWorldSeed
	}
	if out.EnemyCount < 0 {
		out.EnemyCount = 0
	}
	if out.WaveInterval <= 0 {
		out.WaveInterval = defaultWaveInterval
	}
	return out
}

// defaultWorldConfig seeds a standard arena with the stock spell catalog.
func defaultWorldConfig() worldConfig {
	return worldConfig{
		Seed:         defaultWorldSeed,
		EnemyCount:   defaultEnemyCount,
		WaveInterval: defaultWaveInterval,
	}
}

// DefaultWorldConfig exposes the stock arena settings so callers can layer
// overrides before constructing a hub.
func DefaultWorldConfig() worldConfig {
	return defaultWorldConfig()
}
