// Package output renders simulated runs as fixed-width rows and writes them
// to CSV, XLSX or SQLite.
package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"
)

// Format names an output sink.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported sink.
var Formats = []Format{FormatCSV, FormatXLSX, FormatSQLite}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want csv, xlsx or sqlite)", s)
}

// NeedsFile reports whether the format cannot be streamed to stdout.
func (f Format) NeedsFile() bool { return f == FormatSQLite }

// ColumnCount is the width of every row: player count, one color per sphere
// and MaxItemsPerSphere item slots per sphere.
const ColumnCount = 1 + catalog.SphereCount + catalog.SphereCount*catalog.MaxItemsPerSphere

// Header returns the column names shared by every format.
func Header() []string {
	h := make([]string, 0, ColumnCount)
	h = append(h, "player_count")
	for t := 0; t < catalog.SphereCount; t++ {
		h = append(h, fmt.Sprintf("ts_%d", t))
	}
	for t := 0; t < catalog.SphereCount; t++ {
		for i := 0; i < catalog.MaxItemsPerSphere; i++ {
			h = append(h, fmt.Sprintf("it_%d_%d", t, i))
		}
	}
	return h
}

// Record flattens a run into one row. Item slots past a sphere's count are
// left empty so rows of different player counts line up.
func Record(cat *catalog.Catalog, run lootsim.Run) []string {
	rec := make([]string, 0, ColumnCount)
	rec = append(rec, strconv.Itoa(run.PlayerCount))
	rec = append(rec, run.Spheres.Strings()...)
	for t := 0; t < catalog.SphereCount; t++ {
		items := run.SphereItems(t)
		for i := 0; i < catalog.MaxItemsPerSphere; i++ {
			if i < len(items) {
				rec = append(rec, cat.Name(items[i]))
			} else {
				rec = append(rec, "")
			}
		}
	}
	return rec
}
