package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	tickRate          = 30 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	arenaWidth    = 120.0 // world units
	arenaHeight   = 120.0
	defaultSpawnX = arenaWidth / 2
	defaultSpawnY = arenaHeight / 2
	actorHalf     = 0.75 // collision radius for heroes and enemies

	enemySpawnRadius       = 40.0 // distance from arena center for wave spawns
	contactDamagePerSecond = 8.0

	defaultEnemyCount   = 6
	defaultWaveInterval = 20.0 // seconds between reinforcement waves

	spellLevelDamageScale = 1.25 // damage = base * level * scale
)
