package signal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/spinsim/internal/binio"
)

// WriteTo writes one (t, Mx, My, Mz) record per sample.
func (s *Signal) WriteTo(w io.Writer) (int64, error) {
	bw := binio.NewWriter(w)
	for k := range s.T {
		bw.WriteFloats(s.T[k], s.Mx[k], s.My[k], s.Mz[k])
	}
	return bw.Flush()
}

// WriteComponents writes (Mx, My, Mz) records without the time axis, for
// exchanging partial signals whose sample times are already agreed.
func (s *Signal) WriteComponents(w io.Writer) (int64, error) {
	bw := binio.NewWriter(w)
	for k := range s.T {
		bw.WriteFloats(s.Mx[k], s.My[k], s.Mz[k])
	}
	return bw.Flush()
}

// Read decodes (t, Mx, My, Mz) records until end of input.
func Read(r io.Reader) (*Signal, error) {
	br := binio.NewReader(r)
	s := &Signal{}
	rec := make([]float64, 4)
	for {
		err := br.ReadFloats(rec)
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, readErr(s.Len(), err)
		}
		s.T = append(s.T, rec[0])
		s.Mx = append(s.Mx, rec[1])
		s.My = append(s.My, rec[2])
		s.Mz = append(s.Mz, rec[3])
	}
}

// ReadComponents decodes exactly len(times) (Mx, My, Mz) records.
func ReadComponents(r io.Reader, times []float64) (*Signal, error) {
	br := binio.NewReader(r)
	s := New(times)
	rec := make([]float64, 3)
	for k := range times {
		if err := br.ReadFloats(rec); err != nil {
			return nil, readErr(k, err)
		}
		s.Mx[k], s.My[k], s.Mz[k] = rec[0], rec[1], rec[2]
	}
	return s, nil
}

func readErr(k int, err error) error {
	if binio.IsTruncated(err) {
		return fmt.Errorf("%w: sample %d", ErrTruncated, k)
	}
	return fmt.Errorf("signal: reading sample %d: %w", k, err)
}

func (s *Signal) Save(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write signal: %w", err)
	}
	return f.Close()
}

func Load(name string) (*Signal, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open signal: %w", err)
	}
	defer f.Close()

	s, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}
