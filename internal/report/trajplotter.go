package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/sim"
)

// TrajectoryPlotter records per-tick run metrics and renders them as PNG
// time series after the run.
type TrajectoryPlotter struct {
	mu      sync.Mutex
	samples []trajSample
}

type trajSample struct {
	Tick        int
	Speed       float64
	HeadingDeg  float64
	Distance    float64
	MemoryCells int
}

// NewTrajectoryPlotter creates an empty plotter.
func NewTrajectoryPlotter() *TrajectoryPlotter {
	return &TrajectoryPlotter{}
}

// ObserveTick implements sim.Observer.
func (tp *TrajectoryPlotter) ObserveTick(s sim.Snapshot) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.samples = append(tp.samples, trajSample{
		Tick:        s.Tick,
		Speed:       s.Robot.Speed,
		HeadingDeg:  s.Robot.HeadingDeg,
		Distance:    geom.Dist(s.Robot.Pos, s.Target),
		MemoryCells: len(s.MemoryCells),
	})
}

// SampleCount returns the number of recorded ticks.
func (tp *TrajectoryPlotter) SampleCount() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.samples)
}

// GeneratePlots writes one PNG per metric into outputDir. Returns the number
// of plots written.
func (tp *TrajectoryPlotter) GeneratePlots(outputDir string) (int, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if len(tp.samples) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	metrics := []struct {
		name  string
		yAxis string
		value func(trajSample) float64
	}{
		{"speed", "Speed (m/tick)", func(s trajSample) float64 { return s.Speed }},
		{"heading", "Heading (deg)", func(s trajSample) float64 { return s.HeadingDeg }},
		{"distance_to_target", "Distance (m)", func(s trajSample) float64 { return s.Distance }},
		{"memory_cells", "Cells", func(s trajSample) float64 { return float64(s.MemoryCells) }},
	}

	count := 0
	for _, m := range metrics {
		pts := make(plotter.XYs, 0, len(tp.samples))
		for _, s := range tp.samples {
			pts = append(pts, plotter.XY{X: float64(s.Tick), Y: m.value(s)})
		}

		p := plot.New()
		p.Title.Text = m.name
		p.X.Label.Text = "Tick"
		p.Y.Label.Text = m.yAxis

		line, err := plotter.NewLine(pts)
		if err != nil {
			return count, fmt.Errorf("%s: %w", m.name, err)
		}
		line.Color = color.RGBA{R: 31, G: 158, B: 137, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)

		file := filepath.Join(outputDir, m.name+".png")
		if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
			return count, fmt.Errorf("save %s plot: %w", m.name, err)
		}
		count++
	}
	return count, nil
}
