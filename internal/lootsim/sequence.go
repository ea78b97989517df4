package lootsim

import "github.com/xtding233/lootsim/internal/catalog"

// Sequence is the color of each treasuresphere in a run, in order.
type Sequence [catalog.SphereCount]catalog.Color

// GenerateSequence permutes the 8 weighted slots (3 normal, one per special
// color) and keeps the first 6. Normal therefore shows up at most 3 times and
// every special color at most once.
func GenerateSequence(rng RandomSource) Sequence {
	var slots [catalog.SlotCount]int
	for i := range slots {
		slots[i] = i
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	var seq Sequence
	for t := range seq {
		seq[t] = catalog.ColorFromSlot(slots[t])
	}
	return seq
}

// Strings returns the lowercase color names, sphere by sphere.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for t, c := range s {
		out[t] = c.String()
	}
	return out
}
