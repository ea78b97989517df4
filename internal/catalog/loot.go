package catalog

import (
	"errors"
	"fmt"
)

const (
	// SphereCount is the number of treasurespheres in one run.
	SphereCount = 6
	// ItemCount is the size of the shipped item catalog.
	ItemCount = 200
	// MaxItemsPerSphere is the widest any sphere gets, whatever the player count.
	MaxItemsPerSphere = 5

	MinPlayers = 1
	MaxPlayers = 4
)

var ErrInvalidPlayerCount = errors.New("invalid player count; must be 1..4")

// lootCounts[p-1] is how many items each sphere yields with p players.
var lootCounts = [MaxPlayers][SphereCount]int{
	{5, 5, 3, 3, 3, 3},
	{5, 5, 4, 4, 4, 4},
	{5, 5, 4, 4, 4, 4},
	{5, 5, 5, 5, 5, 5},
}

// LootCounts returns the per-sphere item counts for the given player count.
func LootCounts(playerCount int) ([SphereCount]int, error) {
	if err := ValidatePlayerCount(playerCount); err != nil {
		return [SphereCount]int{}, err
	}
	return lootCounts[playerCount-1], nil
}

// LootSum is the number of items found over a whole run.
func LootSum(playerCount int) (int, error) {
	counts, err := LootCounts(playerCount)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum, nil
}

func ValidatePlayerCount(playerCount int) error {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	return nil
}
