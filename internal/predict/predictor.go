// Package predict maintains per-obstacle observation tracks and extrapolates
// a Gaussian distribution over each obstacle's future position.
package predict

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distmv"
)

// Config holds predictor construction parameters.
type Config struct {
	HistoryLen     int     // bounded observation history per track (FIFO)
	MaxMissedTicks int     // consecutive unseen ticks before a track is discarded
	BaseVariance   float64 // per-axis position variance at horizon zero
	VarianceGrowth float64 // per-axis variance added per tick of horizon
}

// Observation is one sighting of an obstacle.
type Observation struct {
	Pos  r2.Vec
	Tick int
}

// Track is the bounded observation history for one obstacle identity.
type Track struct {
	ID       string
	History  []Observation
	LastSeen int
}

// Prediction is a Gaussian over an obstacle's position at a future tick.
type Prediction struct {
	ObstacleID string
	TicksAhead int
	Mean       r2.Vec
	Velocity   r2.Vec

	dist *distmv.Normal
	cov  *mat.SymDense
}

// Prob evaluates the predicted probability density at p.
func (p *Prediction) Prob(at r2.Vec) float64 {
	return p.dist.Prob([]float64{at.X, at.Y})
}

// Cov returns the 2x2 covariance of the prediction.
func (p *Prediction) Cov() *mat.SymDense {
	return p.cov
}

// Predictor owns all obstacle tracks. It is mutated only during the loop's
// observe/prune phase and read during the predict phase.
type Predictor struct {
	cfg    Config
	tracks map[string]*Track
}

// New validates the configuration and builds a predictor.
func New(cfg Config) (*Predictor, error) {
	if cfg.HistoryLen < 2 {
		return nil, fmt.Errorf("predictor history length must be at least 2, got %d", cfg.HistoryLen)
	}
	if cfg.MaxMissedTicks <= 0 {
		return nil, fmt.Errorf("predictor max missed ticks must be positive, got %d", cfg.MaxMissedTicks)
	}
	if cfg.BaseVariance <= 0 {
		return nil, fmt.Errorf("predictor base variance must be positive, got %v", cfg.BaseVariance)
	}
	if cfg.VarianceGrowth < 0 {
		return nil, fmt.Errorf("predictor variance growth must be non-negative, got %v", cfg.VarianceGrowth)
	}
	return &Predictor{cfg: cfg, tracks: make(map[string]*Track)}, nil
}

// Observe appends a sighting to the obstacle's track, creating the track on
// first sighting. An identity re-appearing after its track went stale starts
// fresh; stale velocity estimates never carry over.
func (p *Predictor) Observe(id string, pos r2.Vec, tick int) {
	tr, ok := p.tracks[id]
	if !ok || tick-tr.LastSeen > p.cfg.MaxMissedTicks {
		tr = &Track{ID: id, History: make([]Observation, 0, p.cfg.HistoryLen)}
		p.tracks[id] = tr
	}
	if len(tr.History) == p.cfg.HistoryLen {
		copy(tr.History, tr.History[1:])
		tr.History = tr.History[:p.cfg.HistoryLen-1]
	}
	tr.History = append(tr.History, Observation{Pos: pos, Tick: tick})
	tr.LastSeen = tick
}

// Prune discards tracks not re-observed within the configured number of
// consecutive ticks.
func (p *Predictor) Prune(tick int) {
	for id, tr := range p.tracks {
		if tick-tr.LastSeen > p.cfg.MaxMissedTicks {
			delete(p.tracks, id)
		}
	}
}

// Predict extrapolates the track's constant-velocity motion ticksAhead into
// the future. Tracks with fewer than two observations yield no prediction.
func (p *Predictor) Predict(id string, ticksAhead int) *Prediction {
	tr, ok := p.tracks[id]
	if !ok || len(tr.History) < 2 {
		return nil
	}

	first := tr.History[0]
	last := tr.History[len(tr.History)-1]
	elapsed := last.Tick - first.Tick
	if elapsed <= 0 {
		return nil
	}

	vel := r2.Scale(1/float64(elapsed), r2.Sub(last.Pos, first.Pos))
	mean := r2.Add(last.Pos, r2.Scale(float64(ticksAhead), vel))

	// Diagonal covariance growing linearly with horizon: uncertainty
	// compounds the further out the extrapolation reaches.
	variance := p.cfg.BaseVariance + p.cfg.VarianceGrowth*float64(ticksAhead)
	cov := mat.NewSymDense(2, []float64{variance, 0, 0, variance})
	dist, ok := distmv.NewNormal([]float64{mean.X, mean.Y}, cov, nil)
	if !ok {
		return nil
	}

	return &Prediction{
		ObstacleID: id,
		TicksAhead: ticksAhead,
		Mean:       mean,
		Velocity:   vel,
		dist:       dist,
		cov:        cov,
	}
}

// TrackIDs returns the tracked identities in stable order.
func (p *Predictor) TrackIDs() []string {
	ids := make([]string, 0, len(p.tracks))
	for id := range p.tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TrackLen returns the observation count for an identity, zero if untracked.
func (p *Predictor) TrackLen(id string) int {
	tr, ok := p.tracks[id]
	if !ok {
		return 0
	}
	return len(tr.History)
}
