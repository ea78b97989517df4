// Command lootsim simulates treasuresphere loot for a batch of runs and
// writes one row per run.
//
//	lootsim -n 1000 -p 2 -seed 42 -o runs.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/config"
	"github.com/xtding233/lootsim/internal/logger"
	"github.com/xtding233/lootsim/internal/lootsim"
	"github.com/xtding233/lootsim/internal/output"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	runs, players       int
	seed                uint64
	output, format, cfg string
}

func parseFlags(args []string, stderr io.Writer) (flags, config.Overrides, error) {
	var f flags
	fs := flag.NewFlagSet("lootsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&f.runs, "n", 30, "number of runs to simulate (1..65535)")
	fs.IntVar(&f.runs, "runs", 30, "alias for -n")
	fs.IntVar(&f.players, "p", 1, "player count (1..4)")
	fs.IntVar(&f.players, "players", 1, "alias for -p")
	fs.StringVar(&f.output, "o", "", "output file (default stdout)")
	fs.StringVar(&f.output, "output", "", "alias for -o")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed (default: fresh seed, logged)")
	fs.StringVar(&f.format, "format", "csv", "output format: csv, xlsx or sqlite")
	fs.StringVar(&f.cfg, "config", "lootsim.yaml", "config file (missing file means defaults)")
	if err := fs.Parse(args); err != nil {
		return f, config.Overrides{}, err
	}
	if fs.NArg() > 0 {
		return f, config.Overrides{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	// only flags given on the command line override the config file
	var o config.Overrides
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "n", "runs":
			o.RunCount = &f.runs
		case "p", "players":
			o.PlayerCount = &f.players
		case "o", "output":
			o.OutputPath = &f.output
		case "seed":
			o.Seed = &f.seed
		case "format":
			o.Format = &f.format
		}
	})
	return f, o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	f, overrides, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "lootsim:", err)
		return exitConfig
	}

	logCfg, err := logger.LoadConfig(f.cfg)
	if err != nil {
		fmt.Fprintln(stderr, "lootsim: logging config:", err)
		return exitConfig
	}
	if err := logger.InitializeConsole(logCfg, stderr); err != nil {
		fmt.Fprintln(stderr, "lootsim: init logger:", err)
		return exitRuntime
	}
	defer logger.Close()

	_, params, err := config.NewLoader(f.cfg).Resolve(overrides)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		if errors.Is(err, config.ErrInvalidConfig) {
			return exitConfig
		}
		return exitRuntime
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Error("load item catalog", "error", err)
		return exitRuntime
	}

	seed := lootsim.RandomSeed()
	if params.Seed != nil {
		seed = *params.Seed
	}
	logger.Info("starting batch",
		"players", params.PlayerCount, "runs", params.RunCount, "seed", seed,
		"format", params.Format, "output", outputName(params.OutputPath))

	w, err := output.Open(output.Format(params.Format), params.OutputPath, stdout, cat)
	if err != nil {
		logger.Error("open output", "error", err)
		return exitRuntime
	}

	start := time.Now()
	sim := lootsim.NewSimulator(cat, lootsim.NewSeededRNG(seed))
	items, err := writeBatch(sim, lootsim.Request{PlayerCount: params.PlayerCount, RunCount: params.RunCount}, w)
	if err != nil {
		logger.Error("simulation failed", "seed", seed, "error", err)
		if lootsim.IsConfigError(err) {
			return exitConfig
		}
		return exitRuntime
	}

	p := message.NewPrinter(language.English)
	logger.Always(p.Sprintf("simulated %d runs (%d items) for %d player(s) in %v",
		params.RunCount, items, params.PlayerCount, time.Since(start).Round(time.Millisecond)),
		"seed", seed)
	return exitOK
}

// writeBatch simulates req into w and returns the number of items written.
// A failed batch aborts w, so buffered sinks never save partial output.
func writeBatch(sim *lootsim.Simulator, req lootsim.Request, w output.Writer) (int, error) {
	items := 0
	err := sim.Simulate(req, func(r lootsim.Run) error {
		items += len(r.Items)
		return w.WriteRun(r)
	})
	if err != nil {
		if aerr := w.Abort(); aerr != nil {
			logger.Warning("release output", "error", aerr)
		}
		return items, err
	}
	if err := w.Close(); err != nil {
		return items, fmt.Errorf("close output: %w", err)
	}
	return items, nil
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
