// Package storage keeps analysis runs on disk. Each run is a directory
// holding metadata.json and results.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	metadataFile = "metadata.json"
	resultsFile  = "results.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return errors.Wrap(os.MkdirAll(s.baseDir, 0755), "create run store")
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Name      string             `json:"name"`
	Cars      []string           `json:"cars,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Elapsed   time.Duration      `json:"elapsed"`
	Params    map[string]string  `json:"params,omitempty"`
	Summary   map[string]float64 `json:"summary,omitempty"`
	Columns   []string           `json:"columns"`
	Units     []string           `json:"units"`
	Rows      int                `json:"rows"`
}

// Run is what an analysis hands to the store.
type Run struct {
	Kind    string
	Name    string
	Cars    []string
	Elapsed time.Duration
	Params  map[string]string
	Summary map[string]float64
	Table   *Table
}

// Save writes the run under a new id and returns it.
func (s *Store) Save(run Run) (string, error) {
	if run.Table == nil {
		run.Table = &Table{}
	}
	runID := fmt.Sprintf("%s_%s", run.Kind, uuid.New().String()[:8])
	runDir := s.Dir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrap(err, "create run directory")
	}

	meta := RunMetadata{
		ID:        runID,
		Kind:      run.Kind,
		Name:      run.Name,
		Cars:      run.Cars,
		Timestamp: time.Now(),
		Elapsed:   run.Elapsed,
		Params:    run.Params,
		Summary:   finiteOnly(run.Summary),
		Columns:   run.Table.Columns,
		Units:     run.Table.Units,
		Rows:      len(run.Table.Rows),
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, resultsFile), run.Table); err != nil {
		return "", err
	}
	return runID, nil
}

// finiteOnly drops values JSON cannot represent.
func finiteOnly(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create metadata")
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return errors.Wrap(err, "encode metadata")
	}
	return errors.Wrap(f.Close(), "close metadata")
}

func writeCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create results")
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close results")
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "list runs")
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", runID)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode run %s", runID)
	}
	return &meta, nil
}

// LoadTable reads the results of a run. Unparseable cells become NaN.
func (s *Store) LoadTable(runID string) (*Table, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir(runID), resultsFile))
	if err != nil {
		return nil, errors.Wrapf(err, "open results of %s", runID)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read results of %s", runID)
	}

	t := &Table{Columns: meta.Columns, Units: meta.Units}
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
