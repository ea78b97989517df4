package lootsim

import (
	"errors"
	"reflect"
	"testing"

	"github.com/xtding233/lootsim/internal/catalog"
)

func collect(t *testing.T, seed uint64, req Request) []Run {
	t.Helper()
	var runs []Run
	sim := NewSimulator(catalog.MustDefault(), NewSeededRNG(seed))
	if err := sim.Simulate(req, func(r Run) error {
		runs = append(runs, r)
		return nil
	}); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	return runs
}

func TestGenerateSequence(t *testing.T) {
	for seed := uint64(0); seed < 500; seed++ {
		rng := newCountingRNG(seed)
		seq := GenerateSequence(rng)
		if len(rng.sizes) != 1 || rng.sizes[0] != catalog.SlotCount {
			t.Fatalf("seed %d: shuffles = %v, want one of size %d", seed, rng.sizes, catalog.SlotCount)
		}
		perColor := map[catalog.Color]int{}
		for _, c := range seq {
			perColor[c]++
		}
		for c, n := range perColor {
			limit := 1
			if c == catalog.Normal {
				limit = 3
			}
			if n > limit {
				t.Fatalf("seed %d: %s appears %d times in %v", seed, c, n, seq.Strings())
			}
		}
	}
}

func TestGenerateSequenceWeights(t *testing.T) {
	const n = 80000
	rng := NewSeededRNG(42)
	var hits [catalog.SphereCount][catalog.ColorCount]int
	for i := 0; i < n; i++ {
		for pos, c := range GenerateSequence(rng) {
			hits[pos][c]++
		}
	}
	for pos := range hits {
		for c, k := range hits[pos] {
			want := 1.0 / 8
			if catalog.Color(c) == catalog.Normal {
				want = 3.0 / 8
			}
			freq := float64(k) / n
			// should be around the slot weight
			if diff := freq - want; diff > 0.01 || diff < -0.01 {
				t.Errorf("sphere %d %s: freq=%f not close to %f", pos, catalog.Color(c), freq, want)
			}
		}
	}
}

func TestSimulateDeterministic(t *testing.T) {
	for players := catalog.MinPlayers; players <= catalog.MaxPlayers; players++ {
		req := Request{PlayerCount: players, RunCount: 50}
		a := collect(t, 1234, req)
		b := collect(t, 1234, req)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("players=%d: same seed produced different runs", players)
		}
		if len(a) != req.RunCount {
			t.Fatalf("players=%d: got %d runs, want %d", players, len(a), req.RunCount)
		}
		c := collect(t, 1235, req)
		if reflect.DeepEqual(a, c) {
			t.Fatalf("players=%d: different seeds produced identical batches", players)
		}
	}
}

func TestSimulateStreamIsNotReset(t *testing.T) {
	runs := collect(t, 99, Request{PlayerCount: 2, RunCount: 2})
	first := collect(t, 99, Request{PlayerCount: 2, RunCount: 1})
	if !reflect.DeepEqual(runs[0], first[0]) {
		t.Fatalf("first run differs between batches of the same seed")
	}
	if reflect.DeepEqual(runs[0], runs[1]) {
		t.Fatalf("second run repeats the first; stream was reset")
	}
}

func TestSimulateOnePlayerEndToEnd(t *testing.T) {
	a := collect(t, 2024, Request{PlayerCount: 1, RunCount: 1})
	if len(a) != 1 {
		t.Fatalf("got %d runs, want 1", len(a))
	}
	run := a[0]
	wantCounts := [catalog.SphereCount]int{5, 5, 3, 3, 3, 3}
	if run.Counts != wantCounts {
		t.Fatalf("counts = %v, want %v", run.Counts, wantCounts)
	}
	if len(run.Items) != 22 {
		t.Fatalf("found %d items, want 22", len(run.Items))
	}
	for sphere, k := range wantCounts {
		if got := len(run.SphereItems(sphere)); got != k {
			t.Errorf("sphere %d has %d items, want %d", sphere, got, k)
		}
	}
	checkRun(t, catalog.MustDefault(), run.Spheres, run.Items, 1)

	b := collect(t, 2024, Request{PlayerCount: 1, RunCount: 1})
	if !reflect.DeepEqual(run, b[0]) {
		t.Fatalf("rerun with the same seed differs:\n%v\n%v", run, b[0])
	}
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"zero players", Request{PlayerCount: 0, RunCount: 1}, ErrInvalidPlayerCount},
		{"five players", Request{PlayerCount: 5, RunCount: 1}, ErrInvalidPlayerCount},
		{"zero runs", Request{PlayerCount: 1, RunCount: 0}, ErrInvalidRunCount},
		{"too many runs", Request{PlayerCount: 1, RunCount: MaxRunCount + 1}, ErrInvalidRunCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := newCountingRNG(1)
			emitted := 0
			err := NewSimulator(catalog.MustDefault(), rng).Simulate(tt.req, func(Run) error {
				emitted++
				return nil
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsConfigError(err) {
				t.Fatalf("IsConfigError(%v) = false", err)
			}
			if emitted != 0 || len(rng.sizes) != 0 {
				t.Fatalf("emitted %d runs and drew %d permutations before rejecting", emitted, len(rng.sizes))
			}
		})
	}
}

func TestSimulateStopsOnEmitError(t *testing.T) {
	boom := errors.New("disk full")
	emitted := 0
	err := NewSimulator(catalog.MustDefault(), NewSeededRNG(5)).Simulate(Request{PlayerCount: 3, RunCount: 10}, func(Run) error {
		emitted++
		if emitted == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if emitted != 3 {
		t.Fatalf("emitted = %d, want 3", emitted)
	}
}

func TestSimulateAbortsOnInvariant(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
sets:
  - name: tiny
    colors: [opal, sapphire, ruby, garnet, emerald]
    items: [a, b, c, d]
`))
	if err != nil {
		t.Fatal(err)
	}
	emitted := 0
	err = NewSimulator(cat, NewSeededRNG(1)).Simulate(Request{PlayerCount: 1, RunCount: 3}, func(Run) error {
		emitted++
		return nil
	})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
	if IsConfigError(err) {
		t.Fatalf("invariant violation reported as a configuration error")
	}
	if emitted != 0 {
		t.Fatalf("emitted %d runs from a broken catalog", emitted)
	}
}

func TestSimulatePermutationsPerRun(t *testing.T) {
	rng := newCountingRNG(8)
	sim := NewSimulator(catalog.MustDefault(), rng)
	var runs []Run
	if err := sim.Simulate(Request{PlayerCount: 4, RunCount: 20}, func(r Run) error {
		runs = append(runs, r)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := rng.count(catalog.SlotCount); got != len(runs) {
		t.Fatalf("sequence shuffles = %d, want %d", got, len(runs))
	}
	wantPool := 0
	for _, r := range runs {
		for i := range r.Spheres {
			if i == 0 || r.Spheres[i] != r.Spheres[i-1] {
				wantPool++
			}
		}
	}
	if got := rng.count(catalog.ItemCount); got != wantPool {
		t.Fatalf("pool shuffles = %d, want %d", got, wantPool)
	}
}
