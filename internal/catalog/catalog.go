// Package catalog holds the static item tables: names, per-color membership,
// late-game exclusions and the per-player loot counts.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed items.yaml
var defaultItems []byte

// rawCatalog mirrors items.yaml.
type rawCatalog struct {
	Sets       []rawSet       `yaml:"sets"`
	Exclusions map[string]int `yaml:"exclusions"`
}

type rawSet struct {
	Name   string   `yaml:"name"`
	Colors []string `yaml:"colors"`
	Items  []string `yaml:"items"`
}

// Set is a named group of items sharing the same special colors.
type Set struct {
	Name   string
	Colors []Color
	First  int // id of the first item in the set
	Len    int
}

// Catalog is the read-only item table. Build it with Parse or Default and
// never mutate it afterwards; it is safe to share between goroutines.
type Catalog struct {
	names      []string
	ids        map[string]int
	members    [ColorCount][]bool // index 0 (Normal) is unused
	thresholds map[int]int
	sets       []Set
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultItems)
})

// Default returns the shipped 200-item catalog. It is parsed once per process.
func Default() (*Catalog, error) {
	return loadDefault()
}

// MustDefault is Default for callers that treat a broken embedded table as fatal.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from YAML. Ids follow file order.
func Parse(b []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		ids:        make(map[string]int),
		thresholds: make(map[int]int, len(raw.Exclusions)),
	}
	var errs []string

	for si, rs := range raw.Sets {
		set := Set{Name: rs.Name, First: len(c.names), Len: len(rs.Items)}
		if len(rs.Colors) == 0 {
			errs = append(errs, fmt.Sprintf("sets[%d] (%s): at least one color is required", si, rs.Name))
		}
		for _, name := range rs.Colors {
			col, err := ParseColor(name)
			if err != nil {
				errs = append(errs, fmt.Sprintf("sets[%d] (%s): %v", si, rs.Name, err))
				continue
			}
			if !col.Special() {
				errs = append(errs, fmt.Sprintf("sets[%d] (%s): normal is implied and cannot be listed", si, rs.Name))
				continue
			}
			set.Colors = append(set.Colors, col)
		}
		for _, item := range rs.Items {
			item = strings.TrimSpace(item)
			if item == "" {
				errs = append(errs, fmt.Sprintf("sets[%d] (%s): empty item name", si, rs.Name))
				continue
			}
			if _, dup := c.ids[item]; dup {
				errs = append(errs, fmt.Sprintf("duplicate item %q", item))
				continue
			}
			c.ids[item] = len(c.names)
			c.names = append(c.names, item)
		}
		set.Len = len(c.names) - set.First
		c.sets = append(c.sets, set)
	}

	if len(c.names) == 0 {
		errs = append(errs, "catalog has no items")
	}

	for col := Opal; col <= Emerald; col++ {
		c.members[col] = make([]bool, len(c.names))
	}
	for _, set := range c.sets {
		for _, col := range set.Colors {
			for id := set.First; id < set.First+set.Len; id++ {
				c.members[col][id] = true
			}
		}
	}

	for name, v := range raw.Exclusions {
		id, ok := c.ids[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("exclusions: unknown item %q", name))
			continue
		}
		if v < 1 || v > SphereCount {
			errs = append(errs, fmt.Sprintf("exclusions[%s] must be in [1..%d], got %d", name, SphereCount, v))
			continue
		}
		c.thresholds[id] = v
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Len is the number of items.
func (c *Catalog) Len() int { return len(c.names) }

// Name returns the display name of an item. Out-of-range ids panic.
func (c *Catalog) Name(id int) string {
	c.mustID(id)
	return c.names[id]
}

// Lookup returns the id of a named item.
func (c *Catalog) Lookup(name string) (int, bool) {
	id, ok := c.ids[name]
	return id, ok
}

// Sets returns the item sets in catalog order.
func (c *Catalog) Sets() []Set {
	out := make([]Set, len(c.sets))
	copy(out, c.sets)
	return out
}

// Eligible reports whether an item can drop in a sphere of the given color.
// Every item is eligible in a Normal sphere.
func (c *Catalog) Eligible(col Color, id int) bool {
	c.mustID(id)
	switch col {
	case Normal:
		return true
	case Opal, Sapphire, Ruby, Garnet, Emerald:
		return c.members[col][id]
	default:
		panic(fmt.Sprintf("catalog: unknown color %d", uint8(col)))
	}
}

// Threshold returns the exclusion threshold of an item, if it has one.
func (c *Catalog) Threshold(id int) (int, bool) {
	c.mustID(id)
	v, ok := c.thresholds[id]
	return v, ok
}

// Excluded reports whether an item is barred when `remaining` spheres are
// left in the run, counting the current one.
func (c *Catalog) Excluded(id, remaining int) bool {
	v, ok := c.Threshold(id)
	return ok && remaining <= v
}

func (c *Catalog) mustID(id int) {
	if id < 0 || id >= len(c.names) {
		panic(fmt.Sprintf("catalog: item index out of bounds: %d", id))
	}
}
