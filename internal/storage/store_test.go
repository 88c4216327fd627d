package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/signal"
)

func testSignal() *signal.Signal {
	sig := signal.New([]float64{0, 1})
	sig.Add(0, 0, 0, 2)
	sig.Add(1, 3, 4, 0.5)
	return sig
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Name:       "fid",
		Seed:       42,
		Integrator: "bdf",
		Spins:      2,
		Stats:      dynamo.Stats{Steps: 10},
		Metrics:    map[string]float64{"peak_transverse": 5},
	}
	runID, err := st.Save(meta, testSignal())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Name != "fid" || loaded.Seed != 42 || loaded.Spins != 2 {
		t.Errorf("metadata lost: %+v", loaded)
	}
	if loaded.Samples != 2 {
		t.Errorf("expected 2 samples, got %d", loaded.Samples)
	}
	if loaded.Stats.Steps != 10 || loaded.Metrics["peak_transverse"] != 5 {
		t.Errorf("stats or metrics lost: %+v", loaded)
	}

	sig, err := st.LoadSignal(runID)
	if err != nil {
		t.Fatalf("load signal failed: %v", err)
	}
	if sig.Len() != 2 || sig.Mx[1] != 3 || sig.Mz[0] != 2 {
		t.Errorf("signal round trip = %+v", sig)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		meta := RunMetadata{ID: id, Name: id, Timestamp: base.Add(time.Duration(i) * time.Hour)}
		if _, err := st.Save(meta, testSignal()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755)

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[2].ID != "c" {
		t.Errorf("runs not ordered by time: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	latest, err := st.Latest()
	if err != nil || latest != "c" {
		t.Errorf("Latest = %q, %v; want c", latest, err)
	}
}

func TestLatestEmpty(t *testing.T) {
	if _, err := New(t.TempDir()).Latest(); err == nil {
		t.Error("expected error with no runs")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Name: "test"}, testSignal())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{MetadataFile, SignalFile, CSVFile} {
		if _, err := os.Stat(filepath.Join(st.RunDir(runID), name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	f, err := os.Open(filepath.Join(st.RunDir(runID), CSVFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0][4] != "mxy" || records[2][4] != "5" {
		t.Errorf("csv = %v", records)
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	meta := &RunMetadata{ID: "x", Name: "x"}
	if err := ExportJSON(path, meta, testSignal()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got ExportData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Samples != 2 || got.Run == nil || got.Run.ID != "x" || got.Mxy[1] != 5 {
		t.Errorf("export = %+v", got)
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := ExportCSV(path, testSignal()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "time,mx,my,mz,mxy\n0,0,0,2,0\n1,3,4,0.5,5\n"
	if string(data) != want {
		t.Errorf("csv = %q, want %q", data, want)
	}
}
