package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	server "spellstorm/server"
	servernet "spellstorm/server/internal/net"
	"spellstorm/server/logging"
	loggingSinks "spellstorm/server/logging/sinks"
)

const defaultJSONLogPath = "spellstorm-events.jsonl"

// Run boots the arena server and blocks until ctx is cancelled or the
// listener fails. Configuration comes from SPELLSTORM_* environment
// variables layered onto the defaults.
func Run(ctx context.Context) error {
	logger := log.Default()

	logConfig := logging.ConfigFromEnv()
	namedSinks, cleanup, err := buildSinks(logConfig)
	if err != nil {
		return fmt.Errorf("failed to construct logging sinks: %w", err)
	}
	defer cleanup()

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	worldCfg := server.DefaultWorldConfig()
	if seed := os.Getenv("SPELLSTORM_SEED"); seed != "" {
		worldCfg.Seed = seed
	}
	if raw := os.Getenv("SPELLSTORM_ENEMIES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			worldCfg.EnemyCount = value
		} else {
			logger.Printf("invalid SPELLSTORM_ENEMIES=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("SPELLSTORM_CATALOG"); raw != "" {
		worldCfg.CatalogPaths = filepath.SplitList(raw)
	}

	hub, err := server.NewHub(worldCfg, router)
	if err != nil {
		return fmt.Errorf("failed to start world: %w", err)
	}

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: os.Getenv("SPELLSTORM_CLIENT_DIR"),
		Logger:    logger,
	})

	addr := os.Getenv("SPELLSTORM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// buildSinks assembles the sinks named by the config. The cleanup closes any
// files opened for the json sink.
func buildSinks(cfg logging.Config) ([]logging.NamedSink, func(), error) {
	sinks := make([]logging.NamedSink, 0, len(cfg.EnabledSinks))
	var files []*os.File
	cleanup := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{
				Name: "console",
				Sink: loggingSinks.NewConsole(os.Stdout, cfg.Console),
			})
		case "json":
			path := cfg.JSON.FilePath
			if path == "" {
				path = defaultJSONLogPath
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("open json log %s: %w", path, err)
			}
			files = append(files, file)
			sinks = append(sinks, logging.NamedSink{
				Name: "json",
				Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval),
			})
		case "memory":
			sinks = append(sinks, logging.NamedSink{
				Name: "memory",
				Sink: loggingSinks.NewMemory(),
			})
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown logging sink %q", name)
		}
	}
	return sinks, cleanup, nil
}
