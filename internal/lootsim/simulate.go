package lootsim

import (
	"fmt"

	"github.com/xtding233/lootsim/internal/catalog"
)

// Run is one simulated game. It is not modified after it has been emitted.
type Run struct {
	PlayerCount int
	Spheres     Sequence
	Counts      [catalog.SphereCount]int // items found per sphere
	Items       []int                    // all found items, sphere by sphere
}

// SphereItems returns the items found in sphere t.
func (r Run) SphereItems(t int) []int {
	start := 0
	for i := 0; i < t; i++ {
		start += r.Counts[i]
	}
	return r.Items[start : start+r.Counts[t]]
}

// Request describes one batch.
type Request struct {
	PlayerCount int
	RunCount    int
}

// Validate rejects a request before any sampling happens.
func (r Request) Validate() error {
	if err := catalog.ValidatePlayerCount(r.PlayerCount); err != nil {
		return err
	}
	return validateRunCount(r.RunCount)
}

// Simulator owns the random stream of a batch. The stream is never reset
// between runs, so a seed plus a sequence of requests fully determines the
// output. Not safe for concurrent use.
type Simulator struct {
	rng     RandomSource
	sampler *Sampler
}

// NewSimulator creates a simulator over cat drawing from rng.
func NewSimulator(cat *catalog.Catalog, rng RandomSource) *Simulator {
	if rng == nil {
		rng = NewSeededRNG(RandomSeed())
	}
	return &Simulator{rng: rng, sampler: NewSampler(cat)}
}

// Next simulates a single run.
func (s *Simulator) Next(playerCount int) (Run, error) {
	counts, err := catalog.LootCounts(playerCount)
	if err != nil {
		return Run{}, err
	}
	seq := GenerateSequence(s.rng)
	items, err := s.sampler.Sample(seq, s.rng, playerCount)
	if err != nil {
		return Run{}, err
	}
	return Run{
		PlayerCount: playerCount,
		Spheres:     seq,
		Counts:      counts,
		Items:       items,
	}, nil
}

// Simulate runs req.RunCount games in order and hands each one to emit as
// soon as it is built. The first error from sampling or from emit stops the
// batch; a failed run is never emitted.
func (s *Simulator) Simulate(req Request, emit func(Run) error) error {
	if err := req.Validate(); err != nil {
		return err
	}
	for i := 0; i < req.RunCount; i++ {
		run, err := s.Next(req.PlayerCount)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		if err := emit(run); err != nil {
			return fmt.Errorf("emit run %d: %w", i, err)
		}
	}
	return nil
}
