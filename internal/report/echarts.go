// Package report renders post-run artefacts: an HTML trajectory report and
// PNG time-series plots. Reporters observe the loop and write files only
// after the run ends.
package report

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/driftlab/navsim/internal/sim"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// HTMLReporter accumulates snapshots and renders an interactive trajectory
// report with go-echarts.
type HTMLReporter struct {
	mu        sync.Mutex
	title     string
	snapshots []sim.Snapshot
}

// NewHTMLReporter creates a reporter. The title appears on the rendered page.
func NewHTMLReporter(title string) *HTMLReporter {
	return &HTMLReporter{title: title}
}

// ObserveTick implements sim.Observer.
func (r *HTMLReporter) ObserveTick(s sim.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

// SnapshotCount returns the number of recorded ticks.
func (r *HTMLReporter) SnapshotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// WriteHTML renders the trajectory, obstacle paths and final memory state to
// a standalone HTML file.
func (r *HTMLReporter) WriteHTML(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.snapshots) == 0 {
		return fmt.Errorf("no snapshots recorded")
	}

	page := components.NewPage()
	page.AddCharts(r.trajectoryChart(), r.memoryChart())

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// trajectoryChart plots the robot path colored by tick, obstacle paths and
// the target on a square XY canvas.
func (r *HTMLReporter) trajectoryChart() *charts.Scatter {
	robotPts := make([]opts.ScatterData, 0, len(r.snapshots))
	obstaclePts := make(map[string][]opts.ScatterData)
	maxAbs := 0.0
	lastTick := 0

	for _, s := range r.snapshots {
		x, y := s.Robot.Pos.X, s.Robot.Pos.Y
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		robotPts = append(robotPts, opts.ScatterData{Value: []interface{}{x, y, s.Tick}})
		lastTick = s.Tick

		for _, o := range s.Obstacles {
			if math.Abs(o.Pos.X) > maxAbs {
				maxAbs = math.Abs(o.Pos.X)
			}
			if math.Abs(o.Pos.Y) > maxAbs {
				maxAbs = math.Abs(o.Pos.Y)
			}
			obstaclePts[o.ID] = append(obstaclePts[o.ID], opts.ScatterData{Value: []interface{}{o.Pos.X, o.Pos.Y, s.Tick}})
		}
	}

	target := r.snapshots[len(r.snapshots)-1].Target
	if math.Abs(target.X) > maxAbs {
		maxAbs = math.Abs(target.X)
	}
	if math.Abs(target.Y) > maxAbs {
		maxAbs = math.Abs(target.Y)
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if lastTick == 0 {
		lastTick = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: r.title, Subtitle: fmt.Sprintf("ticks=%d obstacles=%d", lastTick, len(obstaclePts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(lastTick),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)

	scatter.AddSeries("robot", robotPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	obstacleIDs := make([]string, 0, len(obstaclePts))
	for id := range obstaclePts {
		obstacleIDs = append(obstacleIDs, id)
	}
	sort.Strings(obstacleIDs)
	for _, id := range obstacleIDs {
		scatter.AddSeries("obstacle "+id, obstaclePts[id],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}),
		)
	}
	scatter.AddSeries("target", []opts.ScatterData{{Value: []interface{}{target.X, target.Y, lastTick}}},
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 16, Symbol: "diamond"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#fde725"}),
	)
	return scatter
}

// memoryChart plots the final tick's memory cells colored by weight.
func (r *HTMLReporter) memoryChart() *charts.Scatter {
	last := r.snapshots[len(r.snapshots)-1]

	pts := make([]opts.ScatterData, 0, len(last.MemoryCells))
	maxAbs := 0.0
	for _, c := range last.MemoryCells {
		if math.Abs(c.Pos.X) > maxAbs {
			maxAbs = math.Abs(c.Pos.X)
		}
		if math.Abs(c.Pos.Y) > maxAbs {
			maxAbs = math.Abs(c.Pos.Y)
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{c.Pos.X, c.Pos.Y, c.Weight}})
	}
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Obstacle Memory", Subtitle: fmt.Sprintf("tick=%d cells=%d", last.Tick, len(pts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("memory", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}
