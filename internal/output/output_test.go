package output

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"

	"github.com/xuri/excelize/v2"
)

func simulate(t *testing.T, seed uint64, players, runs int, w Writer) []lootsim.Run {
	t.Helper()
	var out []lootsim.Run
	sim := lootsim.NewSimulator(catalog.MustDefault(), lootsim.NewSeededRNG(seed))
	err := sim.Simulate(lootsim.Request{PlayerCount: players, RunCount: runs}, func(r lootsim.Run) error {
		out = append(out, r)
		return w.WriteRun(r)
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return out
}

func TestHeader(t *testing.T) {
	h := Header()
	if len(h) != ColumnCount || ColumnCount != 37 {
		t.Fatalf("header has %d columns, ColumnCount=%d, want 37", len(h), ColumnCount)
	}
	want := map[int]string{0: "player_count", 1: "ts_0", 6: "ts_5", 7: "it_0_0", 11: "it_0_4", 12: "it_1_0", 36: "it_5_4"}
	for i, name := range want {
		if h[i] != name {
			t.Errorf("header[%d] = %q, want %q", i, h[i], name)
		}
	}
}

func TestRecordPadsShortSpheres(t *testing.T) {
	cat := catalog.MustDefault()
	run := lootsim.Run{
		PlayerCount: 1,
		Spheres:     lootsim.Sequence{catalog.Opal, catalog.Normal, catalog.Ruby, catalog.Normal, catalog.Garnet, catalog.Normal},
		Counts:      [catalog.SphereCount]int{5, 5, 3, 3, 3, 3},
	}
	for i := 0; i < 22; i++ {
		run.Items = append(run.Items, i)
	}

	rec := Record(cat, run)
	if len(rec) != ColumnCount {
		t.Fatalf("record has %d columns, want %d", len(rec), ColumnCount)
	}
	if rec[0] != "1" || rec[1] != "opal" || rec[2] != "normal" || rec[3] != "ruby" {
		t.Fatalf("leading columns = %v", rec[:7])
	}
	if rec[7] != cat.Name(0) || rec[11] != cat.Name(4) || rec[12] != cat.Name(5) {
		t.Errorf("first spheres = %v", rec[7:17])
	}
	// sphere 2 holds items 10,11,12 then two blanks
	if rec[17] != cat.Name(10) || rec[19] != cat.Name(12) || rec[20] != "" || rec[21] != "" {
		t.Errorf("sphere 2 = %v", rec[17:22])
	}
	if rec[36] != "" || rec[34] != cat.Name(21) {
		t.Errorf("sphere 5 = %v", rec[32:37])
	}
}

func TestCSVDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	wa, err := Open(FormatCSV, "", &a, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	wb, err := Open(FormatCSV, "", &b, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	simulate(t, 99, 2, 20, wa)
	simulate(t, 99, 2, 20, wb)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("same seed produced different CSV")
	}

	rows, err := csv.NewReader(&a).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 21 {
		t.Fatalf("got %d rows, want header + 20", len(rows))
	}
	for i, row := range rows {
		if len(row) != ColumnCount {
			t.Fatalf("row %d has %d fields", i, len(row))
		}
	}
	if rows[1][0] != "2" {
		t.Errorf("player_count = %q, want 2", rows[1][0])
	}
}

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.csv")
	w, err := Open(FormatCSV, path, nil, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	runs := simulate(t, 5, 4, 3, w)

	f, err := readCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != len(runs)+1 {
		t.Fatalf("got %d rows, want %d", len(f), len(runs)+1)
	}
	if f[1][ColumnCount-1] == "" {
		t.Error("4 player run should fill every item slot")
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	cat := catalog.MustDefault()
	path := filepath.Join(t.TempDir(), "runs.xlsx")
	w, err := Open(FormatXLSX, path, nil, cat)
	if err != nil {
		t.Fatal(err)
	}
	runs := simulate(t, 7, 3, 10, w)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(runs)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(runs)+1)
	}
	if rows[0][0] != "player_count" || rows[0][ColumnCount-1] != "it_5_4" {
		t.Errorf("header = %v", rows[0])
	}
	want := Record(cat, runs[4])
	got, err := f.GetCellValue(xlsxSheet, "A6")
	if err != nil || got != "3" {
		t.Errorf("A6 = %q, %v", got, err)
	}
	for col := 1; col < ColumnCount; col++ {
		cell, _ := excelize.CoordinatesToCellName(col+1, 6)
		v, err := f.GetCellValue(xlsxSheet, cell)
		if err != nil {
			t.Fatal(err)
		}
		if v != want[col] {
			t.Errorf("%s = %q, want %q", cell, v, want[col])
		}
	}
}

func TestXLSXStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := Open(FormatXLSX, "", &buf, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	simulate(t, 1, 1, 2, w)

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open streamed workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(xlsxSheet, "B1"); v != "ts_0" {
		t.Errorf("B1 = %q", v)
	}
}

func TestSQLiteRows(t *testing.T) {
	cat := catalog.MustDefault()
	path := filepath.Join(t.TempDir(), "runs.db")
	w, err := Open(FormatSQLite, path, nil, cat)
	if err != nil {
		t.Fatal(err)
	}
	runs := simulate(t, 11, 1, 12, w)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	count := func(q string, args ...any) int {
		t.Helper()
		var n int
		if err := db.QueryRow(q, args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		return n
	}
	if n := count(`SELECT COUNT(*) FROM runs WHERE player_count = 1`); n != len(runs) {
		t.Errorf("runs = %d, want %d", n, len(runs))
	}
	if n := count(`SELECT COUNT(*) FROM spheres`); n != len(runs)*catalog.SphereCount {
		t.Errorf("spheres = %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM found_items`); n != len(runs)*22 {
		t.Errorf("found_items = %d, want %d", n, len(runs)*22)
	}

	var color, name string
	first := runs[3].SphereItems(0)[0]
	err = db.QueryRow(`SELECT s.color, f.item_name FROM spheres s
		JOIN found_items f ON f.run = s.run AND f.sphere = s.sphere
		WHERE s.run = 3 AND s.sphere = 0 AND f.slot = 0`).Scan(&color, &name)
	if err != nil {
		t.Fatal(err)
	}
	if color != runs[3].Spheres[0].String() || name != cat.Name(first) {
		t.Errorf("run 3 sphere 0 = %s/%s, want %s/%s", color, name, runs[3].Spheres[0], cat.Name(first))
	}
}

func TestSQLiteAbortLeavesNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewSQLiteWriter(path, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	sim := lootsim.NewSimulator(catalog.MustDefault(), lootsim.NewSeededRNG(3))
	run, err := sim.Next(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteRun(run); err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("aborted batch left %d runs", n)
	}
}

func TestXLSXAbortSavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.xlsx")
	w, err := NewXLSXFile(path, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	run, err := lootsim.NewSimulator(catalog.MustDefault(), lootsim.NewSeededRNG(4)).Next(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRun(run); err != nil {
		t.Fatal(err)
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("aborted workbook exists (stat err %v)", err)
	}

	var buf bytes.Buffer
	sw, err := NewXLSXWriter(&buf, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	if err := sw.Abort(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("aborted stream wrote %d bytes", buf.Len())
	}
}

func TestCSVAbortKeepsFlushedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	w, err := Open(FormatCSV, path, nil, catalog.MustDefault())
	if err != nil {
		t.Fatal(err)
	}
	run, err := lootsim.NewSimulator(catalog.MustDefault(), lootsim.NewSeededRNG(4)).Next(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRun(run); err != nil {
		t.Fatal(err)
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}
	rows, err := readCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
}

func TestOpenRejects(t *testing.T) {
	if _, err := Open(FormatSQLite, "", nil, catalog.MustDefault()); err == nil {
		t.Error("sqlite without a path should fail")
	}
	if _, err := Open(Format("parquet"), "", nil, catalog.MustDefault()); err == nil {
		t.Error("unknown format should fail")
	}
	if _, err := ParseFormat("XLSX "); err != nil {
		t.Errorf("ParseFormat should normalize case: %v", err)
	}
	if !FormatSQLite.NeedsFile() || FormatCSV.NeedsFile() {
		t.Error("NeedsFile")
	}
}

func TestWriteErrorSurfaces(t *testing.T) {
	w, err := NewCSVWriter(&failAfter{n: 1}, catalog.MustDefault())
	if err != nil {
		t.Fatalf("header should fit: %v", err)
	}
	sim := lootsim.NewSimulator(catalog.MustDefault(), lootsim.NewSeededRNG(1))
	err = sim.Simulate(lootsim.Request{PlayerCount: 1, RunCount: 3}, func(r lootsim.Run) error {
		return w.WriteRun(r)
	})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v, want errDiskFull", err)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

var errDiskFull = errors.New("disk full")

// failAfter accepts n writes, then fails.
type failAfter struct{ n int }

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errDiskFull
	}
	f.n--
	return len(p), nil
}
