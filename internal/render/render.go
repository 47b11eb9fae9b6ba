// Package render draws the simulation and sweep results as PNG figures.
package render

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/sweep"
)

const (
	CurrentFile      = "current.png"
	StatesFile       = "states.png"
	InactivationFile = "inact.png"
)

var ErrNoData = errors.New("render: nothing to plot")

type Renderer struct {
	Width float64 // inches
	DPI   int
}

func New(width float64, dpi int) *Renderer {
	if width <= 0 {
		width = 10
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Renderer{Width: width, DPI: dpi}
}

// stepTicker places a labelled tick at every multiple of step.
func stepTicker(step float64, labelFmt string) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || step <= 0 {
			return nil
		}
		var ticks []plot.Tick
		for v := math.Ceil(min/step) * step; v <= max; v += step {
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.X.Label.TextStyle.Font.Size = vg.Points(15)
	p.Y.Label.TextStyle.Font.Size = vg.Points(15)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)

	p.Add(plotter.NewGrid())
}

func line(xs, ys []float64, i int) (*plotter.Line, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, ErrNoData
	}
	pts := make(plotter.XYs, len(xs))
	for k := range xs {
		pts[k].X = xs[k]
		pts[k].Y = ys[k]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Width = vg.Points(1.2)
	l.LineStyle.Color = plotutil.Color(i)
	return l, nil
}

func CurrentPlot(times, current []float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Time (t)"
	p.Y.Label.Text = "Current"
	stylePlot(p)
	p.X.Tick.Marker = stepTicker(50, "%.0f")

	l, err := line(times, current, 0)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}
	p.Add(l)
	return p, nil
}

func StatesPlot(times []float64, fractions [4][]float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Time (t)"
	p.Y.Label.Text = "states"
	stylePlot(p)
	p.X.Tick.Marker = stepTicker(50, "%.0f")
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(8)

	for k, series := range fractions {
		l, err := line(times, series, k)
		if err != nil {
			return nil, fmt.Errorf("F%d: %w", k+1, err)
		}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("F%d", k+1), l)
	}
	return p, nil
}

func InactivationPlot(curves []sweep.Curve) (*plot.Plot, error) {
	if len(curves) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.X.Label.Text = "pCa (log10 Ca)"
	p.Y.Label.Text = "Fmax"
	stylePlot(p)
	p.Legend.Top = true
	p.Legend.Left = true

	for k, c := range curves {
		l, err := line(c.LogCa(), c.Currents(), k)
		if err != nil {
			return nil, fmt.Errorf("kinact=%g: %w", c.Kinact, err)
		}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("kinact=%g", c.Kinact), l)
	}
	return p, nil
}

// Save draws p at the renderer width and the given height in inches.
func (r *Renderer) Save(p *plot.Plot, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	w := vg.Length(r.Width) * vg.Inch
	h := vg.Length(heightIn) * vg.Inch

	c := vgimg.NewWith(
		vgimg.UseWH(w, h),
		vgimg.UseDPI(r.DPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// Trajectory writes current.png and states.png into dir.
func (r *Renderer) Trajectory(dir string, tr ncx.Trajectory) ([]string, error) {
	cp, err := CurrentPlot(tr.Times, tr.Outputs)
	if err != nil {
		return nil, err
	}
	sp, err := StatesPlot(tr.Times, tr.Fractions())
	if err != nil {
		return nil, err
	}

	currentPath := filepath.Join(dir, CurrentFile)
	statesPath := filepath.Join(dir, StatesFile)
	if err := r.Save(cp, r.Width*0.6, currentPath); err != nil {
		return nil, err
	}
	if err := r.Save(sp, r.Width*0.3, statesPath); err != nil {
		return nil, err
	}
	return []string{currentPath, statesPath}, nil
}

// Sweep writes inact.png into dir.
func (r *Renderer) Sweep(dir string, curves []sweep.Curve) (string, error) {
	p, err := InactivationPlot(curves)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, InactivationFile)
	if err := r.Save(p, r.Width*0.6, path); err != nil {
		return "", err
	}
	return path, nil
}
