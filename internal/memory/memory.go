// Package memory implements the robot's decaying occupancy memory. Radar
// hits deposit Gaussian-kernel confidence into a sparse grid-bucketed cell
// map; confidence fades by a per-tick retention fraction until re-observed.
package memory

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/radar"
)

const (
	// negligibleWeight is the floor below which a decayed cell is removed.
	// Removal at this level is an optimisation, not a semantic change.
	negligibleWeight = 1e-4

	// minDeposit skips kernel contributions too small to matter.
	minDeposit = 1e-3

	// kernelReach is how many sigma the deposit/query kernel extends.
	kernelReach = 2
)

// Config holds memory construction parameters.
type Config struct {
	Sigma    float64 // Gaussian kernel spread in map units
	Decay    float64 // per-tick retention fraction in (0, 1]; 1 = no forgetting
	Capacity int     // maximum number of distinct cells
	Enabled  bool    // disabled memory ignores updates and always queries zero
}

// Cell is one unit of remembered obstacle evidence.
type Cell struct {
	Pos      r2.Vec  // cell centre in world frame
	Weight   float64 // confidence in [0, 1]
	LastTick int     // tick of the most recent deposit
}

type bucket struct{ x, y int }

// Memory is the sparse decaying occupancy store. It is mutated only by the
// simulation loop's memory phase and queried read-only by navigation.
type Memory struct {
	cfg      Config
	cellSize float64
	cells    map[bucket]*Cell
	lastTick int
}

// New validates the configuration and builds a memory.
func New(cfg Config) (*Memory, error) {
	if cfg.Sigma <= 0 {
		return nil, fmt.Errorf("memory sigma must be positive, got %v", cfg.Sigma)
	}
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		return nil, fmt.Errorf("memory decay must be in (0, 1], got %v", cfg.Decay)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("memory capacity must be positive, got %d", cfg.Capacity)
	}
	return &Memory{
		cfg:      cfg,
		cellSize: cfg.Sigma,
		cells:    make(map[bucket]*Cell),
	}, nil
}

// Enabled reports whether the memory participates in the tick cycle.
func (m *Memory) Enabled() bool { return m.cfg.Enabled }

// Len returns the current cell count.
func (m *Memory) Len() int { return len(m.cells) }

// Update deposits confidence for every finite radar hit in the scan.
func (m *Memory) Update(scan radar.Scan, pose geom.Pose, tick int) {
	if !m.cfg.Enabled {
		return
	}
	for i, s := range scan.Samples {
		if !s.Hit {
			continue
		}
		m.deposit(scan.HitPoint(pose.Pos, i), tick)
	}
}

// deposit spreads a Gaussian kernel of confidence around the hit point.
func (m *Memory) deposit(hit r2.Vec, tick int) {
	reach := kernelReach // kernel extends kernelReach*sigma; cell size is sigma
	cb := m.bucketOf(hit)
	twoSigmaSq := 2 * m.cfg.Sigma * m.cfg.Sigma

	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			b := bucket{cb.x + dx, cb.y + dy}
			center := m.bucketCenter(b)
			d2 := r2.Norm2(r2.Sub(center, hit))
			contribution := math.Exp(-d2 / twoSigmaSq)
			if contribution < minDeposit {
				continue
			}

			cell, ok := m.cells[b]
			if !ok {
				if len(m.cells) >= m.cfg.Capacity {
					m.evictOne()
				}
				cell = &Cell{Pos: center}
				m.cells[b] = cell
			}
			cell.Weight = math.Min(1, cell.Weight+contribution)
			cell.LastTick = tick
		}
	}
}

// evictOne removes the lowest-confidence cell, breaking ties by oldest
// last-update tick and finally by bucket key so eviction never depends on
// map iteration order.
func (m *Memory) evictOne() {
	var victim bucket
	found := false
	for b, c := range m.cells {
		if !found {
			victim, found = b, true
			continue
		}
		if evictBefore(b, c, victim, m.cells[victim]) {
			victim = b
		}
	}
	if found {
		delete(m.cells, victim)
	}
}

func evictBefore(b bucket, c *Cell, vb bucket, v *Cell) bool {
	if c.Weight != v.Weight {
		return c.Weight < v.Weight
	}
	if c.LastTick != v.LastTick {
		return c.LastTick < v.LastTick
	}
	if b.x != vb.x {
		return b.x < vb.x
	}
	return b.y < vb.y
}

// Decay applies the per-tick retention fraction for the ticks elapsed since
// the previous call and drops cells that have faded to nothing.
func (m *Memory) Decay(tick int) {
	if !m.cfg.Enabled {
		return
	}
	elapsed := tick - m.lastTick
	m.lastTick = tick
	if elapsed <= 0 || m.cfg.Decay == 1 {
		return
	}
	factor := math.Pow(m.cfg.Decay, float64(elapsed))
	for b, c := range m.cells {
		c.Weight *= factor
		if c.Weight < negligibleWeight {
			delete(m.cells, b)
		}
	}
}

// Query returns the estimated obstacle confidence at p: the summed Gaussian
// contributions of nearby cells, clamped to [0, 1]. Points with no nearby
// cell return zero.
func (m *Memory) Query(p r2.Vec) float64 {
	if !m.cfg.Enabled || len(m.cells) == 0 {
		return 0
	}
	reach := kernelReach
	cb := m.bucketOf(p)
	twoSigmaSq := 2 * m.cfg.Sigma * m.cfg.Sigma

	var sum float64
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			cell, ok := m.cells[bucket{cb.x + dx, cb.y + dy}]
			if !ok {
				continue
			}
			d2 := r2.Norm2(r2.Sub(cell.Pos, p))
			sum += cell.Weight * math.Exp(-d2/twoSigmaSq)
		}
	}
	return math.Min(1, sum)
}

// Cells returns a stable-ordered copy of the current cell set for observers.
func (m *Memory) Cells() []Cell {
	out := make([]Cell, 0, len(m.cells))
	for _, c := range m.cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.X != out[j].Pos.X {
			return out[i].Pos.X < out[j].Pos.X
		}
		return out[i].Pos.Y < out[j].Pos.Y
	})
	return out
}

func (m *Memory) bucketOf(p r2.Vec) bucket {
	return bucket{
		x: int(math.Floor(p.X / m.cellSize)),
		y: int(math.Floor(p.Y / m.cellSize)),
	}
}

func (m *Memory) bucketCenter(b bucket) r2.Vec {
	return r2.Vec{
		X: (float64(b.x) + 0.5) * m.cellSize,
		Y: (float64(b.y) + 0.5) * m.cellSize,
	}
}
