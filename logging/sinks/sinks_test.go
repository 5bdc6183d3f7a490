package sinks

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"spellstorm/server/logging"
)

func TestMemoryRecordsAndFilters(t *testing.T) {
	sink := NewMemory()

	sink.Write(logging.Event{Type: "combat.damage", Tick: 1})
	sink.Write(logging.Event{Type: "combat.heal", Tick: 2})
	sink.Write(logging.Event{Type: "combat.damage", Tick: 3})

	if got := len(sink.Events()); got != 3 {
		t.Fatalf("events = %d, want 3", got)
	}
	matched := sink.EventsOfType("combat.damage")
	if len(matched) != 2 {
		t.Fatalf("filtered = %d, want 2", len(matched))
	}
	if matched[0].Tick != 1 || matched[1].Tick != 3 {
		t.Fatalf("filtered ticks = %d, %d; want 1 and 3", matched[0].Tick, matched[1].Tick)
	}

	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("events after reset = %d, want 0", got)
	}
	if err := sink.Close(nil); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestJSONWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)

	if err := sink.Write(logging.Event{Type: "spells.cast", Tick: 7, Category: "gameplay"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(logging.Event{Type: "combat.damage", Tick: 8}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want one per event", len(lines))
	}

	var wire map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &wire); err != nil {
		t.Fatalf("line is not valid json: %v", err)
	}
	if wire["type"] != "spells.cast" {
		t.Fatalf("type = %v, want spells.cast", wire["type"])
	}
	if wire["tick"] != float64(7) {
		t.Fatalf("tick = %v, want 7", wire["tick"])
	}
	if wire["category"] != "gameplay" {
		t.Fatalf("category = %v, want gameplay", wire["category"])
	}
}

func TestJSONBuffersUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, time.Hour)

	if err := sink.Write(logging.Event{Type: "spells.cast", Tick: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer = %d bytes before close, want the write held back", buf.Len())
	}

	if err := sink.Close(nil); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(buf.String(), "spells.cast") {
		t.Fatalf("buffer = %q, want the flushed event", buf.String())
	}
}

func TestConsoleColorWrapsSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, logging.ConsoleConfig{UseColor: true})

	if err := sink.Write(logging.Event{Type: "combat.damage", Severity: logging.SeverityWarn}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if line := buf.String(); !strings.Contains(line, "\x1b[33mwarn\x1b[0m") {
		t.Fatalf("line %q is missing the colored severity label", line)
	}
}

func TestConsoleFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, logging.ConsoleConfig{})

	err := sink.Write(logging.Event{
		Type:     "spells.cast",
		Tick:     4,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: "player-1", Kind: logging.EntityKindPlayer},
		Targets:  []logging.EntityRef{{ID: "enemy-2", Kind: logging.EntityKindEnemy}},
		Payload:  map[string]any{"spell": "fireball"},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{
		"[spells.cast]",
		"tick=4",
		"actor=player:player-1",
		"severity=info",
		"targets=enemy:enemy-2",
		`payload={"spell":"fireball"}`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q is missing %q", line, want)
		}
	}
}
