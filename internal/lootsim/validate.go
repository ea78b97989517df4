package lootsim

import (
	"errors"
	"fmt"

	"github.com/xtding233/lootsim/internal/catalog"
)

// MaxRunCount bounds a single batch (the run counter is 16 bits wide).
const MaxRunCount = 1<<16 - 1

var (
	ErrInvalidPlayerCount = catalog.ErrInvalidPlayerCount
	ErrInvalidRunCount    = errors.New("invalid run count; must be 1..65535")

	// ErrInvariant marks a mismatch between the static tables and the
	// sampler. It is never retried.
	ErrInvariant = errors.New("loot invariant violated")
)

// InvariantError reports a sphere whose quota could not be filled from the pool.
type InvariantError struct {
	Sphere   int
	Color    catalog.Color
	Want     int
	Found    int
	PoolSize int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: sphere %d (%s) found %d of %d items after scanning all %d pool entries",
		ErrInvariant, e.Sphere, e.Color, e.Found, e.Want, e.PoolSize)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// IsConfigError reports whether err rejects the request itself rather than
// reporting a failure while simulating.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidPlayerCount) || errors.Is(err, ErrInvalidRunCount)
}

func validateRunCount(n int) error {
	if n < 1 || n > MaxRunCount {
		return fmt.Errorf("%w: got %d", ErrInvalidRunCount, n)
	}
	return nil
}
