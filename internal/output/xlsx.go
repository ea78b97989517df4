package output

import (
	"fmt"
	"io"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "runs"

// XLSXWriter streams runs into a single worksheet. The workbook is only
// complete once Close has saved it.
type XLSXWriter struct {
	cat  *catalog.Catalog
	f    *excelize.File
	sw   *excelize.StreamWriter
	row  int
	path string    // save target, or
	out  io.Writer // stream target
}

// NewXLSXFile writes the workbook to path on Close.
func NewXLSXFile(path string, cat *catalog.Catalog) (*XLSXWriter, error) {
	x, err := newXLSX(cat)
	if err != nil {
		return nil, err
	}
	x.path = path
	return x, nil
}

// NewXLSXWriter writes the workbook to w on Close.
func NewXLSXWriter(w io.Writer, cat *catalog.Catalog) (*XLSXWriter, error) {
	x, err := newXLSX(cat)
	if err != nil {
		return nil, err
	}
	x.out = w
	return x, nil
}

func newXLSX(cat *catalog.Catalog) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		f.Close()
		return nil, err
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx stream writer: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := sw.SetColWidth(2, 1+catalog.SphereCount, 10); err != nil {
		f.Close()
		return nil, err
	}
	if err := sw.SetColWidth(2+catalog.SphereCount, ColumnCount, 24); err != nil {
		f.Close()
		return nil, err
	}

	x := &XLSXWriter{cat: cat, f: f, sw: sw}
	header := Header()
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := x.setRow(cells); err != nil {
		f.Close()
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	return x, nil
}

func (x *XLSXWriter) WriteRun(run lootsim.Run) error {
	rec := Record(x.cat, run)
	cells := make([]interface{}, len(rec))
	for i, v := range rec {
		cells[i] = v
	}
	cells[0] = run.PlayerCount // numeric cell
	return x.setRow(cells)
}

func (x *XLSXWriter) setRow(cells []interface{}) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	return x.sw.SetRow(cell, cells)
}

// Abort drops the workbook without saving it.
func (x *XLSXWriter) Abort() error {
	return x.f.Close()
}

// Close saves the workbook to its path or writer.
func (x *XLSXWriter) Close() error {
	defer x.f.Close()
	if err := x.sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if x.path != "" {
		if err := x.f.SaveAs(x.path); err != nil {
			return fmt.Errorf("save %s: %w", x.path, err)
		}
		return nil
	}
	if _, err := x.f.WriteTo(x.out); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
