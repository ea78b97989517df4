package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Loader reads the YAML config and merges defaults → file → environment.
// The merged result is cached until Invalidate.
type Loader struct {
	path string

	mu     sync.RWMutex
	cached *RawConfig
}

// NewLoader creates a loader for the given file. An empty path means
// defaults and environment only.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.path }

// Load returns the merged RawConfig (without validation).
func (l *Loader) Load() (RawConfig, error) {
	l.mu.RLock()
	if l.cached != nil {
		cfg := *l.cached
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	merged := Defaults()
	if l.path != "" {
		fileCfg, err := readYAML(l.path)
		if err != nil {
			return RawConfig{}, fmt.Errorf("read %s: %w", l.path, err)
		}
		merged = mergeRaw(merged, fileCfg)
	}
	envCfg, err := readEnv()
	if err != nil {
		return RawConfig{}, err
	}
	merged = mergeRaw(merged, envCfg)

	l.mu.Lock()
	l.cached = &merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears loader's cache. Call after the watcher detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// envConfig lists the LOOTSIM_* overrides.
type envConfig struct {
	RunCount    *int    `env:"LOOTSIM_RUN_COUNT"`
	PlayerCount *int    `env:"LOOTSIM_PLAYER_COUNT"`
	Seed        *uint64 `env:"LOOTSIM_SEED"`
	Format      string  `env:"LOOTSIM_OUTPUT_FORMAT"`
	OutputPath  *string `env:"LOOTSIM_OUTPUT_PATH"`
	HTTPAddr    string  `env:"LOOTSIM_HTTP_ADDR"`
	GRPCAddr    string  `env:"LOOTSIM_GRPC_ADDR"`
	MaxRuns     *int    `env:"LOOTSIM_MAX_RUNS"`
}

func readEnv() (RawConfig, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return RawConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return RawConfig{
		Simulation: SimulationConfig{RunCount: e.RunCount, PlayerCount: e.PlayerCount, Seed: e.Seed},
		Output:     OutputConfig{Format: e.Format, Path: e.OutputPath},
		Server:     ServerConfig{HTTPAddr: e.HTTPAddr, GRPCAddr: e.GRPCAddr, MaxRuns: e.MaxRuns},
	}, nil
}

// mergeRaw returns a with every field that b sets replaced by b's value.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// simulation
	if b.Simulation.RunCount != nil {
		out.Simulation.RunCount = b.Simulation.RunCount
	}
	if b.Simulation.PlayerCount != nil {
		out.Simulation.PlayerCount = b.Simulation.PlayerCount
	}
	if b.Simulation.Seed != nil {
		out.Simulation.Seed = b.Simulation.Seed
	}

	// output
	if b.Output.Format != "" {
		out.Output.Format = b.Output.Format
	}
	if b.Output.Path != nil {
		out.Output.Path = b.Output.Path
	}

	// server
	if b.Server.HTTPAddr != "" {
		out.Server.HTTPAddr = b.Server.HTTPAddr
	}
	if b.Server.GRPCAddr != "" {
		out.Server.GRPCAddr = b.Server.GRPCAddr
	}
	if b.Server.MaxRuns != nil {
		out.Server.MaxRuns = b.Server.MaxRuns
	}

	return out
}
