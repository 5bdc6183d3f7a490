package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"spellstorm/server"
)

// HTTPHandlerConfig carries the optional pieces of the HTTP surface.
type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
}

// clientMessage is the envelope for everything a client sends over the
// socket. Fields outside the active Type stay zero.
type clientMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Spell  string  `json:"spell"`
	DirX   float64 `json:"dirX"`
	DirY   float64 `json:"dirY"`
	SentAt int64   `json:"sentAt"`
}

// heartbeatMessage acks a heartbeat with both clocks and the measured rtt.
type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// socketWriter is the slice of the hub subscriber the handlers need.
type socketWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// api binds the hub to its HTTP surface.
type api struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHTTPHandler builds the mux serving health, diagnostics, the spell
// catalog, join, the websocket endpoint, and optionally the static client.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	a := &api{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*nethttp.Request) bool { return true },
		},
	}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/healthz", a.health)
	mux.HandleFunc("/diagnostics", a.diagnostics)
	mux.HandleFunc("/join", a.join)
	mux.HandleFunc("/spells", a.spellCatalog)
	mux.HandleFunc("/spells/reload", a.reloadSpells)
	mux.HandleFunc("/ws", a.socket)
	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}
	return mux
}

func (a *api) health(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (a *api) diagnostics(w nethttp.ResponseWriter, _ *nethttp.Request) {
	a.writeJSON(w, nethttp.StatusOK, map[string]any{
		"status":          "ok",
		"serverTime":      time.Now().UnixMilli(),
		"players":         a.hub.DiagnosticsSnapshot(),
		"tickRate":        server.TickRate(),
		"heartbeatMillis": server.HeartbeatInterval().Milliseconds(),
		"telemetry":       a.hub.TelemetrySnapshot(),
	})
}

func (a *api) join(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	a.writeJSON(w, nethttp.StatusOK, a.hub.Join())
}

func (a *api) spellCatalog(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	a.writeJSON(w, nethttp.StatusOK, map[string]any{"spells": a.hub.SpellCatalog()})
}

func (a *api) reloadSpells(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	if err := a.hub.ReloadSpells(); err != nil {
		a.logger.Printf("spell catalog reload rejected: %v", err)
		a.writeJSON(w, nethttp.StatusUnprocessableEntity, map[string]any{
			"status": "rejected",
			"error":  err.Error(),
		})
		return
	}
	a.writeJSON(w, nethttp.StatusOK, map[string]any{"status": "ok"})
}

func (a *api) socket(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	sub, players, enemies, effects, ok := a.hub.Subscribe(playerID, conn)
	if !ok {
		reason := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, reason)
		conn.Close()
		return
	}

	if !a.sendInitialState(sub, playerID, players, enemies, effects) {
		a.dropPlayer(playerID)
		return
	}
	a.readLoop(sub, conn, playerID)
}

// sendInitialState pushes the snapshot taken at subscribe time so the client
// renders before the next broadcast lands.
func (a *api) sendInitialState(out socketWriter, playerID string, players []server.Player, enemies []server.Enemy, effects []server.Effect) bool {
	data, entities, err := a.hub.MarshalState(players, enemies, effects, nil)
	if err != nil {
		a.logger.Printf("failed to marshal initial state for %s: %v", playerID, err)
		return false
	}
	if err := out.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	a.hub.RecordTelemetryBroadcast(len(data), entities)
	return true
}

func (a *api) readLoop(out socketWriter, conn *websocket.Conn, playerID string) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			a.dropPlayer(playerID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			a.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}
		if !a.dispatch(out, playerID, msg) {
			a.dropPlayer(playerID)
			return
		}
	}
}

// dispatch handles one decoded message. A false return means the socket is
// broken and the caller should drop the player.
func (a *api) dispatch(out socketWriter, playerID string, msg clientMessage) bool {
	switch msg.Type {
	case "input":
		if !a.hub.UpdateIntent(playerID, msg.DX, msg.DY) {
			a.logger.Printf("input ignored for unknown player %s", playerID)
		}
	case "cast":
		if !a.hub.QueueCast(playerID, msg.Spell, msg.DirX, msg.DirY) {
			a.logger.Printf("cast ignored for player %s", playerID)
		}
	case "heartbeat":
		now := time.Now()
		rtt, ok := a.hub.UpdateHeartbeat(playerID, now, msg.SentAt)
		if !ok {
			return true
		}
		ack := heartbeatMessage{
			Ver:        server.ProtocolVersion,
			Type:       "heartbeat",
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt.Milliseconds(),
		}
		data, err := json.Marshal(ack)
		if err != nil {
			a.logger.Printf("failed to marshal heartbeat ack for %s: %v", playerID, err)
			return true
		}
		if err := out.WriteMessage(websocket.TextMessage, data); err != nil {
			return false
		}
	default:
		a.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
	}
	return true
}

// dropPlayer detaches the player and pushes a broadcast so other clients see
// the departure without waiting a full tick.
func (a *api) dropPlayer(playerID string) {
	if a.hub.Disconnect(playerID) {
		go a.hub.BroadcastNow()
	}
}

func (a *api) writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
