package signal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/spinsim/internal/binio"
	"github.com/san-kum/spinsim/internal/bloch"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/field"
)

// SpinState is one spin's magnetization at a snapshot time.
type SpinState struct {
	Index      int
	X, Y, Z    float64
	Mx, My, Mz float64
}

type Snapshot struct {
	T     float64
	Spins []SpinState
}

// Evolution captures every stride-th output sample of each recorded spin.
type Evolution struct {
	stride  int
	samples []int
	snaps   []Snapshot
}

func NewEvolution(times []float64, stride int) *Evolution {
	e := &Evolution{stride: stride}
	if stride < 1 {
		return e
	}
	for k := 0; k < len(times); k += stride {
		e.samples = append(e.samples, k)
		e.snaps = append(e.snaps, Snapshot{T: times[k]})
	}
	return e
}

func (e *Evolution) Enabled() bool { return len(e.samples) > 0 }

// Record stores spin index at pos from its full trajectory, scaled by m0.
func (e *Evolution) Record(index int, pos field.Position, m0 float64, states []dynamo.State) {
	for i, k := range e.samples {
		if k >= len(states) {
			break
		}
		mx, my, mz := bloch.Cartesian(states[k])
		e.snaps[i].Spins = append(e.snaps[i].Spins, SpinState{
			Index: index,
			X:     pos.X, Y: pos.Y, Z: pos.Z,
			Mx: m0 * mx, My: m0 * my, Mz: m0 * mz,
		})
	}
}

// Merge appends o's spins to each matching snapshot.
func (e *Evolution) Merge(o *Evolution) error {
	if len(o.snaps) != len(e.snaps) {
		return fmt.Errorf("%w: %d snapshots, want %d", ErrLengthMismatch, len(o.snaps), len(e.snaps))
	}
	for i := range e.snaps {
		e.snaps[i].Spins = append(e.snaps[i].Spins, o.snaps[i].Spins...)
	}
	return nil
}

func (e *Evolution) Snapshots() []Snapshot { return e.snaps }

// WriteDir writes each snapshot to dir as evol_NNN.bin and returns the paths.
func (e *Evolution) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(e.snaps))
	for i, snap := range e.snaps {
		path := filepath.Join(dir, fmt.Sprintf("evol_%03d.bin", i))
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		if _, err := snap.WriteTo(f); err != nil {
			f.Close()
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteTo writes the (numSpins, t) header and one
// (spin, x, y, z, Mx, My, Mz) record per spin.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	bw := binio.NewWriter(w)
	bw.WriteFloats(float64(len(s.Spins)), s.T)
	for _, sp := range s.Spins {
		bw.WriteFloats(float64(sp.Index), sp.X, sp.Y, sp.Z, sp.Mx, sp.My, sp.Mz)
	}
	return bw.Flush()
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	rd := binio.NewReader(br)

	hdr := make([]float64, 2)
	if err := rd.ReadFloats(hdr); err != nil {
		return nil, readErr(0, err)
	}
	n := hdr[0]
	if n < 0 || n != math.Trunc(n) || n > 1<<31 {
		return nil, fmt.Errorf("signal: invalid snapshot spin count %g", n)
	}

	snap := &Snapshot{T: hdr[1], Spins: make([]SpinState, 0, min(int(n), 1<<16))}
	rec := make([]float64, 7)
	for i := 0; i < int(n); i++ {
		if err := rd.ReadFloats(rec); err != nil {
			return nil, readErr(i, err)
		}
		snap.Spins = append(snap.Spins, SpinState{
			Index: int(rec[0]),
			X:     rec[1], Y: rec[2], Z: rec[3],
			Mx: rec[4], My: rec[5], Mz: rec[6],
		})
	}
	return snap, nil
}
