package logging

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config sizes the router and selects which sinks the app wires up.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	DropWarnInterval time.Duration
	MinimumSeverity  Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		DropWarnInterval: 5 * time.Second,
		MinimumSeverity:  SeverityInfo,
		JSON:             JSONConfig{FlushInterval: 2 * time.Second},
	}
}

// ConfigFromEnv layers SPELLSTORM_LOG_* overrides onto the defaults.
//
//	SPELLSTORM_LOG_SINKS     comma-separated sink names (console, json, memory)
//	SPELLSTORM_LOG_LEVEL     debug, info, warn, or error
//	SPELLSTORM_LOG_JSON_PATH file path for the json sink
//	SPELLSTORM_LOG_BUFFER    router queue size
//	SPELLSTORM_LOG_COLOR     colorize console severity labels (bool)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if names := splitList(os.Getenv("SPELLSTORM_LOG_SINKS")); len(names) > 0 {
		cfg.EnabledSinks = names
	}
	if sev, ok := ParseSeverity(os.Getenv("SPELLSTORM_LOG_LEVEL")); ok {
		cfg.MinimumSeverity = sev
	}
	if path := strings.TrimSpace(os.Getenv("SPELLSTORM_LOG_JSON_PATH")); path != "" {
		cfg.JSON.FilePath = path
	}
	if size, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SPELLSTORM_LOG_BUFFER"))); err == nil && size > 0 {
		cfg.BufferSize = size
	}
	if enabled, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("SPELLSTORM_LOG_COLOR"))); err == nil {
		cfg.Console.UseColor = enabled
	}
	return cfg
}

// ParseSeverity maps a level name onto its Severity value. Unknown names
// report false and leave callers on the info default.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return SeverityDebug, true
	case "info":
		return SeverityInfo, true
	case "warn", "warning":
		return SeverityWarn, true
	case "error":
		return SeverityError, true
	}
	return SeverityInfo, false
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
