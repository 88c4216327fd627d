// Package storage keeps finished runs on disk, one directory per run with
// metadata.json, the binary signal, a CSV copy and optional extras written
// by the caller (metrics.prom, evolution snapshots).
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/signal"
)

const (
	MetadataFile = "metadata.json"
	SignalFile   = "signal.bin"
	CSVFile      = "signal.csv"
	MetricsFile  = "metrics.prom"
	EvolutionDir = "evolution"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Sample     string             `json:"sample"`
	Sequence   string             `json:"sequence"`
	Integrator string             `json:"integrator"`
	Seed       int64              `json:"seed"`
	Partitions int                `json:"partitions"`
	Spins      int                `json:"spins"`
	Failed     int                `json:"failed"`
	Samples    int                `json:"samples"`
	Duration   float64            `json:"duration"`
	Elapsed    float64            `json:"elapsed_seconds"`
	Stats      dynamo.Stats       `json:"stats"`
	Metrics    map[string]float64 `json:"metrics"`
}

// RunDir returns the directory of run id.
func (s *Store) RunDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Save creates a run directory for meta and sig and returns its id.
func (s *Store) Save(meta RunMetadata, sig *signal.Signal) (string, error) {
	now := time.Now()
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Name, now.UnixMilli())
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	meta.Samples = sig.Len()

	runDir := s.RunDir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, MetadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := sig.Save(filepath.Join(runDir, SignalFile)); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, CSVFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, sig); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadSignal(runID string) (*signal.Signal, error) {
	return signal.Load(filepath.Join(s.RunDir(runID), SignalFile))
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s", s.baseDir)
	}
	return runs[len(runs)-1].ID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes a time,mx,my,mz,mxy header and one row per sample.
func WriteCSV(out io.Writer, sig *signal.Signal) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"time", "mx", "my", "mz", "mxy"}); err != nil {
		return err
	}
	mxy := sig.Transverse()
	for k := range sig.T {
		row := []string{
			formatFloat(sig.T[k]),
			formatFloat(sig.Mx[k]),
			formatFloat(sig.My[k]),
			formatFloat(sig.Mz[k]),
			formatFloat(mxy[k]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
