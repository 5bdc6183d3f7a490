package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"spellstorm/server/logging"
)

var severityNames = [...]string{"debug", "info", "warn", "error"}

// ANSI codes indexed by severity: dim, cyan, yellow, red.
var severityColors = [...]string{"\x1b[90m", "\x1b[36m", "\x1b[33m", "\x1b[31m"}

// Console writes one line per event for local development.
type Console struct {
	logger *log.Logger
	color  bool
}

func NewConsole(w io.Writer, cfg logging.ConsoleConfig) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{logger: log.New(w, "", log.LstdFlags), color: cfg.UseColor}
}

func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var line strings.Builder
	fmt.Fprintf(&line, "[%s] tick=%d actor=%s severity=%s",
		event.Type, event.Tick, refLabel(event.Actor), s.severityLabel(event.Severity))
	if len(event.Targets) > 0 {
		labels := make([]string, len(event.Targets))
		for i, target := range event.Targets {
			labels[i] = refLabel(target)
		}
		fmt.Fprintf(&line, " targets=%s", strings.Join(labels, ","))
	}
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			fmt.Fprintf(&line, " payload=%s", data)
		} else {
			fmt.Fprintf(&line, " payload=%v", event.Payload)
		}
	}
	s.logger.Print(line.String())
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

func (s *Console) severityLabel(sev logging.Severity) string {
	idx := int(sev)
	if idx < 0 || idx >= len(severityNames) {
		return "unknown"
	}
	if s.color {
		return severityColors[idx] + severityNames[idx] + "\x1b[0m"
	}
	return severityNames[idx]
}

// refLabel renders kind:id, degrading to whichever half is set.
func refLabel(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}
