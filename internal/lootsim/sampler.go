package lootsim

import (
	"slices"

	"github.com/xtding233/lootsim/internal/catalog"
)

// Sampler draws the found items of a run. It keeps scratch buffers between
// calls and is not safe for concurrent use.
type Sampler struct {
	cat   *catalog.Catalog
	pool  []int
	found []bool
	buf   []int
}

// NewSampler creates a sampler over the given catalog.
func NewSampler(cat *catalog.Catalog) *Sampler {
	n := cat.Len()
	return &Sampler{
		cat:   cat,
		pool:  make([]int, n),
		found: make([]bool, n),
		buf:   make([]int, 0, catalog.MaxItemsPerSphere),
	}
}

// Sample returns the found items of a run, sphere after sphere, each sphere's
// share sorted ascending.
//
// The pool is reshuffled before sphere 0 and whenever the color changes from
// the previous sphere; consecutive same-color spheres keep scanning the same
// permutation from its start. An item is taken when it is eligible for the
// sphere's color, not found earlier in the run and not excluded for the
// number of spheres left (current one included).
func (s *Sampler) Sample(seq Sequence, rng RandomSource, playerCount int) ([]int, error) {
	counts, err := catalog.LootCounts(playerCount)
	if err != nil {
		return nil, err
	}

	total, err := catalog.LootSum(playerCount)
	if err != nil {
		return nil, err
	}

	clear(s.found)
	items := make([]int, 0, total)

	for t, color := range seq {
		if t == 0 || color != seq[t-1] {
			s.reshuffle(rng)
		}

		want := counts[t]
		remaining := catalog.SphereCount - t
		s.buf = s.buf[:0]
		for cursor := 0; len(s.buf) < want; cursor++ {
			if cursor == len(s.pool) {
				return nil, &InvariantError{
					Sphere:   t,
					Color:    color,
					Want:     want,
					Found:    len(s.buf),
					PoolSize: len(s.pool),
				}
			}
			item := s.pool[cursor]
			if s.found[item] || !s.cat.Eligible(color, item) || s.cat.Excluded(item, remaining) {
				continue
			}
			s.found[item] = true
			s.buf = append(s.buf, item)
		}

		slices.Sort(s.buf)
		items = append(items, s.buf...)
	}
	return items, nil
}

// reshuffle resets the pool to 0..n-1 and permutes it.
func (s *Sampler) reshuffle(rng RandomSource) {
	for i := range s.pool {
		s.pool[i] = i
	}
	rng.Shuffle(len(s.pool), func(i, j int) { s.pool[i], s.pool[j] = s.pool[j], s.pool[i] })
}
