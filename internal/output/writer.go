package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"
)

// Writer receives runs one at a time. The header is written when the writer
// is created. Close finishes a successful batch; Abort releases the sink
// after a failed one without committing what the sink still buffers.
type Writer interface {
	WriteRun(run lootsim.Run) error
	Close() error
	Abort() error
}

// Open creates a writer for format. With an empty path the output goes to
// stdout (formats that need a file reject that).
func Open(format Format, path string, stdout io.Writer, cat *catalog.Catalog) (Writer, error) {
	switch format {
	case FormatCSV:
		if path == "" {
			w, err := NewCSVWriter(stdout, cat)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		f, err := createFile(path)
		if err != nil {
			return nil, err
		}
		w, err := NewCSVWriter(f, cat)
		if err != nil {
			f.Close()
			return nil, err
		}
		w.closer = f
		return w, nil
	case FormatXLSX:
		var (
			w   *XLSXWriter
			err error
		)
		if path == "" {
			w, err = NewXLSXWriter(stdout, cat)
		} else {
			w, err = NewXLSXFile(path, cat)
		}
		if err != nil {
			return nil, err
		}
		return w, nil
	case FormatSQLite:
		if path == "" {
			return nil, fmt.Errorf("format %s needs an output file", format)
		}
		w, err := NewSQLiteWriter(path, cat)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
