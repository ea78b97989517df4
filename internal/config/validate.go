package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"
	"github.com/xtding233/lootsim/internal/output"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config validation failed")

// ValidateRaw checks semantic constraints of a RawConfig and reports every
// problem at once.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// simulation
	if cfg.Simulation.PlayerCount != nil {
		if p := *cfg.Simulation.PlayerCount; p < catalog.MinPlayers || p > catalog.MaxPlayers {
			errs = append(errs, fmt.Sprintf("simulation.player_count must be in [%d..%d], got %d", catalog.MinPlayers, catalog.MaxPlayers, p))
		}
	} else {
		errs = append(errs, "simulation.player_count is required")
	}
	if cfg.Simulation.RunCount != nil {
		if n := *cfg.Simulation.RunCount; n < 1 || n > lootsim.MaxRunCount {
			errs = append(errs, fmt.Sprintf("simulation.run_count must be in [1..%d], got %d", lootsim.MaxRunCount, n))
		}
	} else {
		errs = append(errs, "simulation.run_count is required")
	}

	// output
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		errs = append(errs, "output.format: "+err.Error())
	} else if format.NeedsFile() && (cfg.Output.Path == nil || strings.TrimSpace(*cfg.Output.Path) == "") {
		errs = append(errs, fmt.Sprintf("output.path is required for format %s", format))
	}

	// server
	if cfg.Server.MaxRuns != nil {
		if n := *cfg.Server.MaxRuns; n < 1 || n > lootsim.MaxRunCount {
			errs = append(errs, fmt.Sprintf("server.max_runs must be in [1..%d], got %d", lootsim.MaxRunCount, n))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
