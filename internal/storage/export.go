package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/spinsim/internal/signal"
)

type ExportData struct {
	Run     *RunMetadata `json:"run,omitempty"`
	Times   []float64    `json:"times"`
	Mx      []float64    `json:"mx"`
	My      []float64    `json:"my"`
	Mz      []float64    `json:"mz"`
	Mxy     []float64    `json:"mxy"`
	Samples int          `json:"samples"`
}

func exportData(meta *RunMetadata, sig *signal.Signal) ExportData {
	return ExportData{
		Run:     meta,
		Times:   sig.T,
		Mx:      sig.Mx,
		My:      sig.My,
		Mz:      sig.Mz,
		Mxy:     sig.Transverse(),
		Samples: sig.Len(),
	}
}

// create opens path for writing; "" and "-" mean stdout.
func create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func ExportJSON(path string, meta *RunMetadata, sig *signal.Signal) error {
	file, err := create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(meta, sig))
}

func ExportCSV(path string, sig *signal.Signal) error {
	file, err := create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, sig); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
