package catalog

import (
	"fmt"
	"strings"
)

// Color is the tint of a treasuresphere. It decides which items can drop there.
type Color uint8

const (
	Normal Color = iota // can show up to 3 times per run
	Opal
	Sapphire
	Ruby
	Garnet
	Emerald
)

// ColorCount is the number of distinct colors, Normal included.
const ColorCount = 6

// SlotCount is the number of equally weighted draw slots the sequence
// generator permutes. Normal owns slots 0..2, every special color owns one.
const SlotCount = 8

var colorNames = [ColorCount]string{
	Normal:   "normal",
	Opal:     "opal",
	Sapphire: "sapphire",
	Ruby:     "ruby",
	Garnet:   "garnet",
	Emerald:  "emerald",
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Special reports whether c restricts drops to a membership table.
func (c Color) Special() bool {
	return c != Normal && int(c) < ColorCount
}

// ParseColor maps a lowercase color name back to its Color.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// ColorFromSlot maps a weighted slot index to its color.
// A slot outside [0, SlotCount) is a construction bug and panics.
func ColorFromSlot(slot int) Color {
	switch slot {
	case 0, 1, 2:
		return Normal
	case 3:
		return Opal
	case 4:
		return Sapphire
	case 5:
		return Ruby
	case 6:
		return Garnet
	case 7:
		return Emerald
	default:
		panic(fmt.Sprintf("catalog: unexpected treasuresphere slot %d", slot))
	}
}
