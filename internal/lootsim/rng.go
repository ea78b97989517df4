package lootsim

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource is the random stream threaded through a batch.
// Every draw the simulator makes is a uniform permutation.
type RandomSource interface {
	Shuffle(n int, swap func(i, j int))
}

// Replicable RNG (PCG), the only source the simulator is run with.
type seededRNG struct{ r *rand.Rand }

// NewSeededRNG returns a deterministic stream: the same seed always yields
// the same permutations.
func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Shuffle(n int, swap func(i, j int)) { s.r.Shuffle(n, swap) }

// RandomSeed draws a seed from crypto/rand. Callers without an explicit seed
// use it so the batch can still be replayed from the logged value.
func RandomSeed() uint64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Uint64()
	}
	return binary.BigEndian.Uint64(buf[:])
}
