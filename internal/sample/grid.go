package sample

import (
	"io"

	"github.com/san-kum/spinsim/internal/binio"
	"github.com/san-kum/spinsim/internal/field"
)

// Cell holds the per-cell tissue values of a lattice.
type Cell struct {
	M0 float64 `json:"m0" yaml:"m0" toml:"m0"`
	R1 float64 `json:"r1" yaml:"r1" toml:"r1"`
	R2 float64 `json:"r2" yaml:"r2" toml:"r2"`
	DB float64 `json:"db" yaml:"db" toml:"db"`
	NN float64 `json:"nn" yaml:"nn" toml:"nn"`
}

// Grid is a regular lattice in gridded encoding. Cells are stored z-outer,
// y-middle, x-inner.
type Grid struct {
	Axes  [3]Axis
	Cells []Cell
}

func NewGrid(axes [3]Axis) (*Grid, error) {
	n, err := gridSize(axes)
	if err != nil {
		return nil, err
	}
	return &Grid{Axes: axes, Cells: make([]Cell, n)}, nil
}

func (g *Grid) index(ix, iy, iz int) int {
	return (iz*g.Axes[1].Count+iy)*g.Axes[0].Count + ix
}

func (g *Grid) At(ix, iy, iz int) Cell { return g.Cells[g.index(ix, iy, iz)] }

func (g *Grid) Set(ix, iy, iz int, c Cell) { g.Cells[g.index(ix, iy, iz)] = c }

// Position returns the center of cell (ix, iy, iz).
func (g *Grid) Position(ix, iy, iz int) field.Position {
	return field.Position{
		X: g.Axes[0].Coord(ix),
		Y: g.Axes[1].Coord(iy),
		Z: g.Axes[2].Coord(iz),
	}
}

// Fill sets every cell from fn evaluated at the cell center.
func (g *Grid) Fill(fn func(p field.Position) Cell) {
	g.each(func(ix, iy, iz int) {
		g.Set(ix, iy, iz, fn(g.Position(ix, iy, iz)))
	})
}

func (g *Grid) each(fn func(ix, iy, iz int)) {
	for iz := 0; iz < g.Axes[2].Count; iz++ {
		for iy := 0; iy < g.Axes[1].Count; iy++ {
			for ix := 0; ix < g.Axes[0].Count; ix++ {
				fn(ix, iy, iz)
			}
		}
	}
}

// Store compacts the lattice into a store the way decoding does.
func (g *Grid) Store() *Store {
	s := &Store{axes: g.Axes}
	g.each(func(ix, iy, iz int) {
		s.spins = appendCell(s.spins, g.Axes, ix, iy, iz, g.At(ix, iy, iz))
	})
	return s
}

// WriteTo writes the lattice in gridded encoding.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	bw := binio.NewWriter(w)
	for _, a := range g.Axes {
		bw.WriteFloats(float64(a.Count), a.Res, a.Offset)
	}
	for _, c := range g.Cells {
		bw.WriteFloats(c.M0, c.R1, c.R2, c.DB, c.NN)
	}
	return bw.Flush()
}

// Save writes the lattice to the named file.
func (g *Grid) Save(name string) error {
	return writeFile(name, g)
}

// Uniform fills every cell with c.
func Uniform(c Cell) func(field.Position) Cell {
	return func(field.Position) Cell { return c }
}

// Sphere fills cells within radius of center with c and leaves the rest empty.
func Sphere(center field.Position, radius float64, c Cell) func(field.Position) Cell {
	r2 := radius * radius
	return func(p field.Position) Cell {
		dx, dy, dz := p.X-center.X, p.Y-center.Y, p.Z-center.Z
		if dx*dx+dy*dy+dz*dz > r2 {
			return Cell{}
		}
		return c
	}
}
