// resolve.go
package config

import "github.com/xtding233/lootsim/internal/output"

// Overrides carries per-invocation settings such as CLI flags or request
// parameters. They win over every other layer.
type Overrides struct {
	PlayerCount *int
	RunCount    *int
	Seed        *uint64
	Format      *string
	OutputPath  *string
}

type Resolver interface {
	// Returns merged RawConfig and normalized Params
	Resolve(o Overrides) (RawConfig, Params, error)
}

// Resolve merges defaults → file → env → overrides, validates the result and
// normalizes it into Params.
func (l *Loader) Resolve(o Overrides) (RawConfig, Params, error) {
	raw, err := l.Load()
	if err != nil {
		return RawConfig{}, Params{}, err
	}
	params, err := Resolve(raw, o)
	return raw, params, err
}

// Resolve applies overrides on top of raw and validates the result.
func Resolve(raw RawConfig, o Overrides) (Params, error) {
	raw = mergeRaw(raw, RawConfig{
		Simulation: SimulationConfig{RunCount: o.RunCount, PlayerCount: o.PlayerCount, Seed: o.Seed},
		Output:     OutputConfig{Format: deref(o.Format), Path: o.OutputPath},
	})
	if err := ValidateRaw(raw); err != nil {
		return Params{}, err
	}

	format, _ := output.ParseFormat(raw.Output.Format)
	p := Params{
		PlayerCount: *raw.Simulation.PlayerCount,
		RunCount:    *raw.Simulation.RunCount,
		Format:      string(format),
		HTTPAddr:    raw.Server.HTTPAddr,
		GRPCAddr:    raw.Server.GRPCAddr,
		Version:     raw.Version,
	}
	if raw.Simulation.Seed != nil {
		p.Seed = uint64Ptr(*raw.Simulation.Seed)
	}
	if raw.Output.Path != nil {
		p.OutputPath = *raw.Output.Path
	}
	if raw.Server.MaxRuns != nil {
		p.MaxRuns = *raw.Server.MaxRuns
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
