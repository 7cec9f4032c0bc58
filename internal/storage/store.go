// Package storage persists simulation and fit runs: one directory per
// run with a metadata.json and a trajectory.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/glucosim/internal/dynamo"
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
	ID           string             `json:"id"`
	Kind         string             `json:"kind"`
	Timestamp    time.Time          `json:"timestamp"`
	Params       dynamo.Params      `json:"params"`
	T0           float64            `json:"t0"`
	TEnd         float64            `json:"t_end"`
	Dt           float64            `json:"dt"`
	Diagnostics  dynamo.Diagnostics `json:"diagnostics"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	FittedParams []float64          `json:"fitted_params,omitempty"`
}

// Save writes one run and returns its ID. kind distinguishes discrete,
// continuous and fit runs in the metadata.
func (s *Store) Save(kind string, cfg dynamo.Config, traj *dynamo.Trajectory, diag dynamo.Diagnostics, metricVals map[string]float64, fitted []float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", kind, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Kind:         kind,
		Timestamp:    time.Now(),
		Params:       cfg.Params,
		T0:           cfg.T0,
		TEnd:         cfg.TEnd,
		Dt:           cfg.Dt,
		Diagnostics:  diag,
		Metrics:      metricVals,
		FittedParams: fitted,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if traj != nil {
		if err := writeTrajectory(filepath.Join(runDir, "trajectory.csv"), traj); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeTrajectory(path string, traj *dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"t"}, traj.Fields...)
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, tv := range traj.Times {
		row[0] = strconv.FormatFloat(tv, 'g', -1, 64)
		for j, v := range traj.States[i] {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// LoadMetadata reads one run's metadata back.
func (s *Store) LoadMetadata(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns the IDs of all stored runs.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
