package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"
)

// CSVWriter streams one CSV record per run and flushes after each, so a
// failing batch leaves only complete rows behind.
type CSVWriter struct {
	cat    *catalog.Catalog
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header to w and returns the writer.
func NewCSVWriter(w io.Writer, cat *catalog.Catalog) (*CSVWriter, error) {
	cw := &CSVWriter{cat: cat, w: csv.NewWriter(w)}
	if err := cw.write(Header()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) WriteRun(run lootsim.Run) error {
	return c.write(Record(c.cat, run))
}

func (c *CSVWriter) write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Abort releases the underlying file. Rows already flushed stay.
func (c *CSVWriter) Abort() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
