package sample

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/spinsim/internal/binio"
)

// maxCells bounds the lattice size accepted from a header.
const maxCells = 1 << 26

// maxIndex is the largest header index a float64 holds exactly.
const maxIndex = 1 << 53

const (
	headerLen = 3
	cellLen   = 5
	spinLen   = 8
)

// Populate replaces the store's contents with a sample decoded from r.
// On error the store is left empty.
func (s *Store) Populate(r io.Reader) error {
	s.reset()

	axes, spins, err := decode(binio.NewReader(r))
	if err != nil {
		return err
	}
	s.axes, s.spins = axes, spins
	return nil
}

// PopulateFile is Populate on the named file.
func (s *Store) PopulateFile(name string) error {
	s.reset()

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open sample: %w", err)
	}
	defer f.Close()

	if err := s.Populate(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Load reads a sample file into a new store.
func Load(name string) (*Store, error) {
	s := New(0)
	if err := s.PopulateFile(name); err != nil {
		return nil, err
	}
	return s, nil
}

func decode(r *binio.Reader) ([3]Axis, []Spin, error) {
	var axes [3]Axis
	var raw [3]float64
	rec := make([]float64, spinLen)

	for i := range axes {
		if err := r.ReadFloats(rec[:headerLen]); err != nil {
			return axes, nil, readErr("header", err)
		}
		raw[i] = rec[0]
		axes[i] = Axis{Res: rec[1], Offset: rec[2]}
	}

	mode, err := count(raw[1])
	if err != nil {
		return axes, nil, fmt.Errorf("%w: axis 1: %w", ErrInvalidHeader, err)
	}
	axes[1].Count = mode

	if mode > 0 {
		for _, i := range []int{0, 2} {
			if axes[i].Count, err = count(raw[i]); err != nil {
				return axes, nil, fmt.Errorf("%w: axis %d: %w", ErrInvalidHeader, i, err)
			}
		}
		spins, err := decodeGrid(r, axes, rec[:cellLen])
		return axes, spins, err
	}

	// list mode reads only the axis 0 count
	n, err := count(raw[0])
	if err != nil {
		return axes, nil, fmt.Errorf("%w: axis 0: %w", ErrInvalidHeader, err)
	}
	if n < 0 {
		return axes, nil, fmt.Errorf("%w: negative spin count %d", ErrInvalidHeader, n)
	}
	axes[0].Count = n
	axes[2].Count, _ = count(raw[2])

	spins := make([]Spin, 0, min(n, 1<<16))
	for i := 0; i < n; i++ {
		if err := r.ReadFloats(rec); err != nil {
			return axes, nil, readErr(fmt.Sprintf("spin %d", i), err)
		}
		spins = append(spins, Spin{
			X: rec[0], Y: rec[1], Z: rec[2],
			M0: rec[3], R1: rec[4], R2: rec[5], DB: rec[6], NN: rec[7],
		})
	}
	return axes, spins, nil
}

func decodeGrid(r *binio.Reader, axes [3]Axis, rec []float64) ([]Spin, error) {
	cells, err := gridSize(axes)
	if err != nil {
		return nil, err
	}

	spins := make([]Spin, 0, min(cells, 1<<16))
	for iz := 0; iz < axes[2].Count; iz++ {
		for iy := 0; iy < axes[1].Count; iy++ {
			for ix := 0; ix < axes[0].Count; ix++ {
				if err := r.ReadFloats(rec); err != nil {
					return nil, readErr(fmt.Sprintf("cell (%d,%d,%d)", ix, iy, iz), err)
				}
				c := Cell{M0: rec[0], R1: rec[1], R2: rec[2], DB: rec[3], NN: rec[4]}
				spins = appendCell(spins, axes, ix, iy, iz, c)
			}
		}
	}
	return spins, nil
}

// appendCell keeps only cells with positive equilibrium magnetization.
func appendCell(spins []Spin, axes [3]Axis, ix, iy, iz int, c Cell) []Spin {
	if !(c.M0 > 0) {
		return spins
	}
	return append(spins, Spin{
		X:  axes[0].Coord(ix),
		Y:  axes[1].Coord(iy),
		Z:  axes[2].Coord(iz),
		M0: c.M0, R1: c.R1, R2: c.R2, DB: c.DB, NN: c.NN,
	})
}

func gridSize(axes [3]Axis) (int, error) {
	n := 1
	for i, a := range axes {
		if a.Count < 1 {
			return 0, fmt.Errorf("%w: axis %d count %d", ErrInvalidGrid, i, a.Count)
		}
		n *= a.Count
		if n > maxCells {
			return 0, fmt.Errorf("%w: more than %d cells", ErrInvalidGrid, maxCells)
		}
	}
	return n, nil
}

// count truncates a header index toward zero.
func count(v float64) (int, error) {
	if math.IsNaN(v) || math.Abs(v) > maxIndex {
		return 0, fmt.Errorf("index %g out of range", v)
	}
	return int(v), nil
}

func readErr(what string, err error) error {
	if binio.IsTruncated(err) {
		return fmt.Errorf("%w: %s: %w", ErrTruncated, what, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("sample: reading %s: %w", what, err)
}

// WriteTo writes the store in list encoding.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	bw := binio.NewWriter(w)
	a := s.axes
	bw.WriteFloats(float64(len(s.spins)), a[0].Res, a[0].Offset)
	bw.WriteFloats(0, a[1].Res, a[1].Offset)
	bw.WriteFloats(float64(a[2].Count), a[2].Res, a[2].Offset)
	for _, sp := range s.spins {
		bw.WriteFloats(sp.X, sp.Y, sp.Z, sp.M0, sp.R1, sp.R2, sp.DB, sp.NN)
	}
	return bw.Flush()
}

// Save writes the store to the named file in list encoding.
func (s *Store) Save(name string) error {
	return writeFile(name, s)
}

func writeFile(name string, wt io.WriterTo) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create sample: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return f.Close()
}
