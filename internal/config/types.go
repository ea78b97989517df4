// types.go
package config

// RawConfig is the YAML file as written. Pointer fields distinguish "not set"
// from zero so that layers merge cleanly.
type RawConfig struct {
	Version    string           `yaml:"version"`
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Server     ServerConfig     `yaml:"server"`
	Notes      string           `yaml:"notes,omitempty"`
}

type SimulationConfig struct {
	RunCount    *int    `yaml:"run_count"`
	PlayerCount *int    `yaml:"player_count"`
	Seed        *uint64 `yaml:"seed,omitempty"` // unset: fresh random seed per batch
}

type OutputConfig struct {
	Format string  `yaml:"format"`
	Path   *string `yaml:"path"` // empty: stdout
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	MaxRuns  *int   `yaml:"max_runs"` // per request cap
}

// Params are the normalized settings a batch or server runs with.
type Params struct {
	PlayerCount int
	RunCount    int
	Seed        *uint64
	Format      string
	OutputPath  string
	HTTPAddr    string
	GRPCAddr    string
	MaxRuns     int
	Version     string // effective config version for tracing
}

// Defaults: 30 runs, 1 player, CSV on stdout.
func Defaults() RawConfig {
	return RawConfig{
		Version: "1",
		Simulation: SimulationConfig{
			RunCount:    intPtr(30),
			PlayerCount: intPtr(1),
		},
		Output: OutputConfig{
			Format: "csv",
			Path:   strPtr(""),
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":9090",
			MaxRuns:  intPtr(10000),
		},
	}
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
