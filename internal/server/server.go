// Package server exposes batch simulation over HTTP (CSV or XLSX stream) and
// gRPC (one message per run).
package server

import (
	"fmt"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/config"
	"github.com/xtding233/lootsim/internal/logger"
	"github.com/xtding233/lootsim/internal/lootsim"
)

// Server answers simulation requests. Every request gets its own Simulator,
// so concurrent requests never share a random stream.
type Server struct {
	cat      *catalog.Catalog
	resolver config.Resolver
}

// New creates a server drawing from cat and reading defaults from resolver.
func New(cat *catalog.Catalog, resolver config.Resolver) *Server {
	return &Server{cat: cat, resolver: resolver}
}

type batch struct {
	req    lootsim.Request
	seed   uint64
	format string
}

// prepare layers request parameters over the current config. Errors wrap
// config.ErrInvalidConfig when the request itself is at fault.
func (s *Server) prepare(o config.Overrides) (batch, error) {
	if o.Format == nil {
		csv := "csv"
		o.Format = &csv
	}
	stdout := ""
	o.OutputPath = &stdout

	_, p, err := s.resolver.Resolve(o)
	if err != nil {
		return batch{}, err
	}
	if p.Format != "csv" && p.Format != "xlsx" {
		return batch{}, fmt.Errorf("%w: format %s cannot be streamed", config.ErrInvalidConfig, p.Format)
	}
	if p.RunCount > p.MaxRuns {
		return batch{}, fmt.Errorf("%w: runs %d exceeds server.max_runs %d", config.ErrInvalidConfig, p.RunCount, p.MaxRuns)
	}

	b := batch{
		req:    lootsim.Request{PlayerCount: p.PlayerCount, RunCount: p.RunCount},
		format: p.Format,
	}
	if p.Seed != nil {
		b.seed = *p.Seed
	} else {
		b.seed = lootsim.RandomSeed()
	}
	logger.Debug("batch prepared", "players", p.PlayerCount, "runs", p.RunCount, "seed", b.seed, "config_version", p.Version)
	return b, nil
}

func (s *Server) simulator(b batch) *lootsim.Simulator {
	return lootsim.NewSimulator(s.cat, lootsim.NewSeededRNG(b.seed))
}
