package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/sweep"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Errorf("%s is not a PNG", filepath.Base(path))
	}
}

func smallTrajectory() ncx.Trajectory {
	res := &dynamo.Result{}
	x := ncx.DefaultOccupancy().State()
	for i := 1; i <= 200; i++ {
		res.Times = append(res.Times, float64(i)*0.5)
		res.States = append(res.States, x)
		res.Controls = append(res.Controls, dynamo.Control{100, 2})
		res.Outputs = append(res.Outputs, x[1]*0.98)
	}
	return ncx.NewTrajectory(res)
}

func TestRenderTrajectory(t *testing.T) {
	dir := t.TempDir()
	paths, err := New(3, 40).Trajectory(dir, smallTrajectory())
	if err != nil {
		t.Fatalf("Trajectory: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}
	assertPNG(t, filepath.Join(dir, CurrentFile))
	assertPNG(t, filepath.Join(dir, StatesFile))
}

func TestRenderSweep(t *testing.T) {
	cfg := sweep.DefaultConfig()
	cfg.Samples = 30
	cfg.Divisor = 10
	curves, err := sweep.New(ncx.DefaultRates(), cfg, nil).Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "nested")
	path, err := New(3, 40).Sweep(dir, curves)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	assertPNG(t, path)
}

func TestEmptyInputs(t *testing.T) {
	if _, err := CurrentPlot(nil, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := InactivationPlot(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := CurrentPlot([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrNoData) {
		t.Errorf("mismatched series should fail, got %v", err)
	}
}

func TestStepTicker(t *testing.T) {
	ticks := stepTicker(50, "%.0f").Ticks(0.003, 450)
	if len(ticks) != 9 {
		t.Fatalf("expected 9 ticks, got %d", len(ticks))
	}
	if ticks[0].Value != 50 || ticks[0].Label != "50" || ticks[8].Value != 450 {
		t.Errorf("unexpected ticks %+v", ticks)
	}
	var _ plot.Ticker = stepTicker(1, "%g")
}

func TestNewDefaults(t *testing.T) {
	r := New(0, 0)
	if r.Width != 10 || r.DPI != 300 {
		t.Errorf("defaults = %+v", r)
	}
}
