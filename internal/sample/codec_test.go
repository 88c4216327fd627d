package sample_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/spinsim/internal/binio"
	"github.com/san-kum/spinsim/internal/field"
	"github.com/san-kum/spinsim/internal/sample"
)

func testGrid(t *testing.T) *sample.Grid {
	t.Helper()
	g, err := sample.NewGrid([3]sample.Axis{
		{Count: 3, Res: 0.5, Offset: 1},
		{Count: 2, Res: 1, Offset: 0},
		{Count: 2, Res: 2, Offset: -1},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range g.Cells {
		if i%4 == 1 {
			continue // empty cell
		}
		g.Cells[i] = sample.Cell{M0: float64(i + 1), R1: 0.1 * float64(i), R2: 0.3, DB: float64(i) - 5, NN: 0.5}
	}
	return g
}

func TestGridRoundTrip(t *testing.T) {
	g := testGrid(t)

	var buf bytes.Buffer
	n, err := g.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if want := int64(8 * (9 + 5*12)); n != want {
		t.Errorf("wrote %d bytes, want %d", n, want)
	}

	s := sample.New(0)
	if err := s.Populate(&buf); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if !s.Gridded() {
		t.Error("store should report gridded mode")
	}

	want := g.Store()
	if s.Len() != 9 || want.Len() != 9 {
		t.Fatalf("kept %d spins (grid store %d), want 9", s.Len(), want.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if s.Spin(i) != want.Spin(i) {
			t.Errorf("spin %d = %+v, want %+v", i, s.Spin(i), want.Spin(i))
		}
	}
	if s.Axes() != g.Axes {
		t.Errorf("axes = %+v, want %+v", s.Axes(), g.Axes)
	}
}

func TestGridPositions(t *testing.T) {
	g, err := sample.NewGrid([3]sample.Axis{{Count: 2, Res: 1}, {Count: 1, Res: 1}, {Count: 1, Res: 1}})
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(sample.Uniform(sample.Cell{M0: 1, R1: 0.01, R2: 0.2}))

	s := g.Store()
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if s.Spin(0).X != -0.5 || s.Spin(1).X != 0.5 {
		t.Errorf("x positions = %g, %g, want -0.5, 0.5", s.Spin(0).X, s.Spin(1).X)
	}
	if s.Spin(0).Y != 0 || s.Spin(0).Z != 0 {
		t.Errorf("single-cell axes should sit at the offset: %+v", s.Spin(0))
	}
	if s.TotalM0() != 2 {
		t.Errorf("TotalM0 = %g, want 2", s.TotalM0())
	}
}

func TestGridScanOrderIsZYX(t *testing.T) {
	g, err := sample.NewGrid([3]sample.Axis{{Count: 2, Res: 1}, {Count: 2, Res: 1}, {Count: 2, Res: 1}})
	if err != nil {
		t.Fatal(err)
	}
	g.Set(1, 0, 0, sample.Cell{M0: 1})
	g.Set(0, 1, 0, sample.Cell{M0: 2})
	g.Set(0, 0, 1, sample.Cell{M0: 3})

	s := g.Store()
	for i, m0 := range []float64{1, 2, 3} {
		if s.Spin(i).M0 != m0 {
			t.Errorf("spin %d has m0 %g, want %g", i, s.Spin(i).M0, m0)
		}
	}
	if p := s.Spin(2).Position(); p != (field.Position{X: -0.5, Y: -0.5, Z: 0.5}) {
		t.Errorf("position of z-shifted cell = %+v", p)
	}
}

func TestListRoundTrip(t *testing.T) {
	spins := []sample.Spin{
		{X: 0.1, Y: -0.2, Z: 0.3, M0: 1, R1: 0.01, R2: 0.2, DB: 3, NN: 0.25},
		{X: 1e-300, Y: 7, Z: -1e10, M0: 0, R1: 1, R2: 2, DB: -4, NN: 0},
		{X: 0, Y: 0, Z: 0, M0: 0.5, R1: 0, R2: 0, DB: 0, NN: 1},
	}
	orig := sample.FromSpins([3]sample.Axis{{Res: 0.1, Offset: 1}, {Res: 0.2}, {Res: 0.3, Offset: -2}}, spins)

	var buf bytes.Buffer
	if _, err := orig.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	s := sample.New(5)
	if err := s.Populate(&buf); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if s.Gridded() {
		t.Error("list encoding decoded as a grid")
	}
	if s.Len() != len(spins) {
		t.Fatalf("Len = %d, want %d", s.Len(), len(spins))
	}
	for i := range spins {
		if s.Spin(i) != spins[i] {
			t.Errorf("spin %d = %+v, want %+v", i, s.Spin(i), spins[i])
		}
	}
	if s.Resolution() != orig.Resolution() {
		t.Errorf("resolution = %v, want %v", s.Resolution(), orig.Resolution())
	}
}

func TestPopulateTruncated(t *testing.T) {
	var buf bytes.Buffer
	if _, err := testGrid(t).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	for _, cut := range []int{0, 20, 72, 100, len(data) - 8, len(data) - 1} {
		s := sample.New(3)
		err := s.Populate(bytes.NewReader(data[:cut]))
		if !errors.Is(err, sample.ErrTruncated) {
			t.Errorf("cut at %d: got %v, want ErrTruncated", cut, err)
		}
		if s.Len() != 0 {
			t.Errorf("cut at %d: store kept %d spins after failure", cut, s.Len())
		}
	}
}

func header(vals ...float64) *bytes.Buffer {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	w.WriteFloats(vals...)
	w.Flush()
	return &buf
}

func TestPopulateInvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		buf  *bytes.Buffer
		want error
	}{
		{"NaN list size", header(math.NaN(), 1, 0, 0, 1, 0, 0, 1, 0), sample.ErrInvalidHeader},
		{"infinite mode index", header(2, 1, 0, math.Inf(1), 1, 0, 1, 1, 0), sample.ErrInvalidHeader},
		{"NaN z count in grid", header(2, 1, 0, 2, 1, 0, math.NaN(), 1, 0), sample.ErrInvalidHeader},
		{"fractional list size past the data", header(2.5, 1, 0, 0, 1, 0, 0, 1, 0), sample.ErrTruncated},
		{"negative list size", header(-3, 1, 0, 0, 1, 0, 0, 1, 0), sample.ErrInvalidHeader},
		{"zero x count in grid", header(0, 1, 0, 2, 1, 0, 1, 1, 0), sample.ErrInvalidGrid},
		{"zero z count in grid", header(2, 1, 0, 2, 1, 0, 0, 1, 0), sample.ErrInvalidGrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sample.New(0)
			if err := s.Populate(tt.buf); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestListHeaderIndicesTruncate(t *testing.T) {
	tests := []struct {
		name   string
		header []float64
	}{
		{"fractional axis 1 and 2", []float64{2, 1, 0, -0.5, 1, 0, 0.5, 1, 0}},
		{"fractional axis 2", []float64{2, 1, 0, 0, 1, 0, 0.5, 1, 0}},
		{"fractional spin count", []float64{2.7, 1, 0, 0.9, 1, 0, 7, 1, 0}},
		{"unused axis 2 not a number", []float64{2, 1, 0, -1, 1, 0, math.NaN(), 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := header(tt.header...)
			w := binio.NewWriter(buf)
			w.WriteFloats(0, 0, 0, 1, 0.1, 0.2, 3, 0)
			w.WriteFloats(1, 2, 3, 0.5, 0.1, 0.2, -3, 1)
			if _, err := w.Flush(); err != nil {
				t.Fatal(err)
			}

			s := sample.New(0)
			if err := s.Populate(buf); err != nil {
				t.Fatalf("Populate: %v", err)
			}
			if s.Gridded() || s.Len() != 2 {
				t.Fatalf("decoded %d spins, gridded %v; want 2 listed spins", s.Len(), s.Gridded())
			}
			if sp := s.Spin(1); sp.X != 1 || sp.M0 != 0.5 || sp.DB != -3 {
				t.Errorf("spin 1 = %+v", sp)
			}
			if s.Axes()[0].Count != 2 {
				t.Errorf("axis 0 count = %d, want 2", s.Axes()[0].Count)
			}
		})
	}
}

func TestGridHeaderIndicesTruncate(t *testing.T) {
	buf := header(2.9, 1, 0, 1.5, 1, 0, 1, 1, 0)
	w := binio.NewWriter(buf)
	w.WriteFloats(1, 0, 0, 0, 0)
	w.WriteFloats(2, 0, 0, 0, 0)
	if _, err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	s := sample.New(0)
	if err := s.Populate(buf); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if !s.Gridded() || s.Len() != 2 {
		t.Fatalf("decoded %d spins, gridded %v; want a 2x1x1 grid", s.Len(), s.Gridded())
	}
}

func TestPopulateFile(t *testing.T) {
	dir := t.TempDir()
	grid := filepath.Join(dir, "grid.bin")
	list := filepath.Join(dir, "list.bin")

	g := testGrid(t)
	if err := g.Save(grid); err != nil {
		t.Fatal(err)
	}
	if err := g.Store().Save(list); err != nil {
		t.Fatal(err)
	}

	s, err := sample.Load(grid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 9 {
		t.Errorf("Len = %d, want 9", s.Len())
	}

	// repopulating replaces the previous contents
	if err := s.PopulateFile(list); err != nil {
		t.Fatalf("PopulateFile: %v", err)
	}
	if s.Len() != 9 || s.Gridded() {
		t.Errorf("after repopulating: Len = %d, gridded = %v", s.Len(), s.Gridded())
	}

	if err := s.PopulateFile(filepath.Join(dir, "missing.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store kept %d spins after a failed populate", s.Len())
	}
}

func TestSphereFill(t *testing.T) {
	g, err := sample.NewGrid([3]sample.Axis{{Count: 5, Res: 1}, {Count: 5, Res: 1}, {Count: 5, Res: 1}})
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(sample.Sphere(field.Position{}, 1, sample.Cell{M0: 1}))

	// center plus its six face neighbours
	if n := g.Store().Len(); n != 7 {
		t.Errorf("sphere of radius 1 kept %d cells, want 7", n)
	}
}

func TestNewGridRejectsEmptyAxis(t *testing.T) {
	if _, err := sample.NewGrid([3]sample.Axis{{Count: 2}, {Count: 0}, {Count: 1}}); !errors.Is(err, sample.ErrInvalidGrid) {
		t.Errorf("got %v, want ErrInvalidGrid", err)
	}
}
