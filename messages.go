package server

// joinResponse seeds a client with its identity and the current arena.
type joinResponse struct {
	Ver     int         `json:"ver"`
	ID      string      `json:"id"`
	Players []Player    `json:"players"`
	Enemies []Enemy     `json:"enemies"`
	Effects []Effect    `json:"effects,omitempty"`
	Spells  []string    `json:"spells"`
	Config  worldConfig `json:"config"`
}

// stateMessage is the per-tick broadcast. Events carries the damage resolved
// since the previous broadcast so clients can flash hits without diffing
// health bars.
type stateMessage struct {
	Ver        int           `json:"ver"`
	Type       string        `json:"type"`
	Tick       uint64        `json:"t"`
	Players    []Player      `json:"players"`
	Enemies    []Enemy       `json:"enemies"`
	Effects    []Effect      `json:"effects,omitempty"`
	Events     []DamageEvent `json:"events,omitempty"`
	ServerTime int64         `json:"serverTime"`
}

type diagnosticsPlayer struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}
