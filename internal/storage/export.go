package storage

import (
	"encoding/json"
	"io"

	"github.com/pyncx/ncx/internal/sweep"
)

type ExportData struct {
	Run        RunMetadata     `json:"run"`
	Trajectory []TrajectoryRow `json:"trajectory,omitempty"`
	Sweep      []sweep.Curve   `json:"sweep,omitempty"`
}

// Export collects everything stored for a run. Missing trajectory or sweep
// files are left empty.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Run: *meta}

	if data.Trajectory, err = s.LoadTrajectory(runID); err != nil && !isNoData(err) {
		return nil, err
	}
	if data.Sweep, err = s.LoadSweep(runID); err != nil && !isNoData(err) {
		return nil, err
	}
	return data, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
