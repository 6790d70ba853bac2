package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	server "packetmesh/server"
	"packetmesh/server/internal/logging"
	"packetmesh/server/internal/observability"
)

// Run wires the full server: config, logging, metrics, hub, loops, HTTP.
func Run(ctx context.Context) error {
	logger := logging.NewFromEnv()

	cfg, err := loadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	if seed := os.Getenv("WORLD_SEED"); seed != "" {
		cfg.Seed = seed
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	hub := server.NewHub(cfg, server.HubDeps{
		Logger:       logger,
		WorldMetrics: collector,
		HubMetrics:   collector,
	})

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	go hub.RunAutonomousTraffic(stop)
	defer close(stop)

	clientDir := os.Getenv("CLIENT_DIR")
	if clientDir == "" {
		clientDir = "client"
	}

	handler := server.NewHTTPHandler(hub, server.HTTPHandlerConfig{
		ClientDir:      clientDir,
		Logger:         logger,
		MetricsHandler: collector.Handler(),
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	logger.Info(ctx, "server listening", logging.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// loadConfig reads the YAML config file when a path is given; defaults apply
// for anything left unset. An empty path yields the default config.
func loadConfig(path string) (server.Config, error) {
	if path == "" {
		return server.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return server.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg server.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return server.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
