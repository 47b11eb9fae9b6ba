package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/sweep"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	sweepFile      = "sweep.csv"
)

var ErrNoData = errors.New("storage: run has no such data")

var trajectoryHeader = []string{"time", "F1", "F2", "F3", "F4", "ni", "ci", "current"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir is the directory holding the files of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Preset     string             `json:"preset,omitempty"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Chi        float64            `json:"chi"`
	Rates      ncx.Rates          `json:"rates"`
	Every      int                `json:"every"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	DtMax      float64            `json:"dt_max,omitempty"`
	Final      []float64          `json:"final,omitempty"`
	Kinacts    []float64          `json:"kinacts,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// TrajectoryRow is one stored step.
type TrajectoryRow struct {
	Time    float64    `json:"t"`
	F       [4]float64 `json:"f"`
	Na      float64    `json:"ni"`
	Ca      float64    `json:"ci"`
	Current float64    `json:"current"`
}

// Rows converts a result into trajectory rows, keeping every n-th step
// and always the last one.
func Rows(result *dynamo.Result, every int) []TrajectoryRow {
	if result == nil {
		return nil
	}
	if every < 1 {
		every = 1
	}
	tr := ncx.NewTrajectory(result)
	n := tr.Len()
	rows := make([]TrajectoryRow, 0, n/every+1)
	for i := 0; i < n; i++ {
		if i%every != 0 && i != n-1 {
			continue
		}
		rows = append(rows, TrajectoryRow{
			Time:    tr.Times[i],
			F:       tr.Occupancy(i).All(),
			Na:      tr.Na(i),
			Ca:      tr.Ca(i),
			Current: tr.Current(i),
		})
	}
	return rows
}

// Save writes a run. Either the trajectory or the sweep may be absent.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result, curves []sweep.Curve) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	now := time.Now()
	var runID string
	for {
		runID = fmt.Sprintf("run_%d", now.UnixNano())
		err := os.Mkdir(s.Dir(runID), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		now = now.Add(time.Nanosecond)
	}
	runDir := s.Dir(runID)

	meta.ID = runID
	meta.Timestamp = now
	if meta.Metrics == nil && result != nil {
		meta.Metrics = result.Metrics
	}
	if meta.Every < 1 {
		meta.Every = 1
	}
	for _, c := range curves {
		meta.Kinacts = append(meta.Kinacts, c.Kinact)
	}
	dropNonFinite(&meta)

	if result != nil {
		if err := writeFile(filepath.Join(runDir, trajectoryFile), func(w io.Writer) error {
			return WriteTrajectoryCSV(w, Rows(result, meta.Every))
		}); err != nil {
			return "", err
		}
	}
	if len(curves) > 0 {
		if err := writeFile(filepath.Join(runDir, sweepFile), func(w io.Writer) error {
			return WriteSweepCSV(w, curves)
		}); err != nil {
			return "", err
		}
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}

	return runID, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func WriteTrajectoryCSV(w io.Writer, rows []TrajectoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trajectoryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{formatFloat(r.Time)}
		for _, f := range r.F {
			rec = append(rec, formatFloat(f))
		}
		rec = append(rec, formatFloat(r.Na), formatFloat(r.Ca), formatFloat(r.Current))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSweepCSV(w io.Writer, curves []sweep.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kinact", "logci", "current"}); err != nil {
		return err
	}
	for _, c := range curves {
		for _, p := range c.Points {
			if err := cw.Write([]string{formatFloat(c.Kinact), formatFloat(p.LogCa), formatFloat(p.Current)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns all stored runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) readCSV(runID, name string, fields int) ([][]float64, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", runID, name, ErrNoData)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = fields
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, nil
	}

	out := make([][]float64, 0, len(records)-1)
	for line, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", name, line+2, err)
			}
			row[j] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) LoadTrajectory(runID string) ([]TrajectoryRow, error) {
	records, err := s.readCSV(runID, trajectoryFile, len(trajectoryHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]TrajectoryRow, len(records))
	for i, rec := range records {
		rows[i] = TrajectoryRow{
			Time:    rec[0],
			F:       [4]float64{rec[1], rec[2], rec[3], rec[4]},
			Na:      rec[5],
			Ca:      rec[6],
			Current: rec[7],
		}
	}
	return rows, nil
}

// LoadSweep regroups stored points into curves in file order.
func (s *Store) LoadSweep(runID string) ([]sweep.Curve, error) {
	records, err := s.readCSV(runID, sweepFile, 3)
	if err != nil {
		return nil, err
	}
	var curves []sweep.Curve
	index := make(map[float64]int)
	for _, rec := range records {
		k := rec[0]
		i, ok := index[k]
		if !ok {
			i = len(curves)
			index[k] = i
			curves = append(curves, sweep.Curve{Kinact: k})
		}
		curves[i].Points = append(curves[i].Points, sweep.Point{LogCa: rec[1], Kinact: k, Current: rec[2]})
	}
	return curves, nil
}

func isNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// JSON has no encoding for NaN or Inf. Metrics are copied since the map
// is usually shared with the live result.
func dropNonFinite(meta *RunMetadata) {
	if meta.Metrics != nil {
		finite := make(map[string]float64, len(meta.Metrics))
		for k, v := range meta.Metrics {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite[k] = v
			}
		}
		meta.Metrics = finite
	}
	if math.IsNaN(meta.DtMax) || math.IsInf(meta.DtMax, 0) {
		meta.DtMax = 0
	}
}
