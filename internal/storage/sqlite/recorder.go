package sqlite

import (
	"log"

	"github.com/driftlab/navsim/internal/sim"
)

// Recorder streams a run's trajectory into the store as the loop ticks.
// A write failure is logged and the tick dropped; persistence never stops
// the simulation.
type Recorder struct {
	store *RunStore
	runID string
}

// NewRecorder creates a recorder for a previously created run.
func NewRecorder(store *RunStore, runID string) *Recorder {
	return &Recorder{store: store, runID: runID}
}

// ObserveTick implements sim.Observer.
func (r *Recorder) ObserveTick(s sim.Snapshot) {
	row := TickRow{
		RunID:       r.runID,
		Tick:        s.Tick,
		X:           s.Robot.Pos.X,
		Y:           s.Robot.Pos.Y,
		HeadingDeg:  s.Robot.HeadingDeg,
		Speed:       s.Robot.Speed,
		MemoryCells: len(s.MemoryCells),
	}
	if err := r.store.InsertTick(row); err != nil {
		log.Printf("recorder: %v", err)
	}
}
