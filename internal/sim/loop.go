package sim

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/config"
	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/memory"
	"github.com/driftlab/navsim/internal/nav"
	"github.com/driftlab/navsim/internal/predict"
	"github.com/driftlab/navsim/internal/radar"
)

// Status is the lifecycle state of a simulation.
type Status string

const (
	StatusRunning    Status = "running"
	StatusTerminated Status = "terminated"
)

// Reason is why a simulation terminated.
type Reason string

const (
	ReasonTargetReached Reason = "target_reached"
	ReasonCollided      Reason = "collided"
	ReasonMaxSteps      Reason = "max_steps_exceeded"
	// ReasonAlgorithmError reports a navigation algorithm fault; the run
	// terminates with the last valid tick's state intact.
	ReasonAlgorithmError Reason = "algorithm_error"
	// ReasonCancelled reports external termination, honoured only at tick
	// boundaries so no tick is ever left partially applied.
	ReasonCancelled Reason = "cancelled"
)

// Stats aggregates per-run robot statistics.
type Stats struct {
	Ticks             int
	StaticCollisions  int
	DynamicCollisions int
	DecisionTime      time.Duration
	Decisions         int
}

// AvgDecisionTime returns the mean navigation decision time.
func (s Stats) AvgDecisionTime() time.Duration {
	if s.Decisions == 0 {
		return 0
	}
	return s.DecisionTime / time.Duration(s.Decisions)
}

// ObstacleState is a dynamic obstacle's pose in a snapshot.
type ObstacleState struct {
	ID     string
	Pos    r2.Vec
	Radius float64
}

// Snapshot is the read-only per-tick view handed to observers. Observers
// never feed data back into the core.
type Snapshot struct {
	Tick        int
	Robot       geom.Pose
	Target      r2.Vec
	Obstacles   []ObstacleState
	Scan        radar.Scan
	MemoryCells []memory.Cell
}

// Observer receives one snapshot per completed tick.
type Observer interface {
	ObserveTick(s Snapshot)
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Reason           Reason
	Ticks            int
	FinalPose        geom.Pose
	DistanceToTarget float64
}

// Simulation is the single-threaded tick loop. Every sub-step runs in a
// strict order and all component mutation happens on the loop's goroutine.
type Simulation struct {
	env       *Environment
	rdr       *radar.Radar
	mem       *memory.Memory
	predictor *predict.Predictor
	algo      nav.Algorithm
	tuning    *config.Tuning

	pose     geom.Pose
	lastMove r2.Vec // previous tick's movement vector, for momentum
	tick     int
	status   Status
	reason   Reason
	stats    Stats

	observers []Observer
}

// New constructs a simulation, failing fast on any configuration error
// before the first tick.
func New(env *Environment, tuning *config.Tuning, algo nav.Algorithm) (*Simulation, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if algo == nil {
		return nil, fmt.Errorf("navigation algorithm is required")
	}
	if tuning == nil {
		tuning = config.Default()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}

	rdr, err := radar.New(radar.Config{
		RangeMeters:   tuning.GetRadarRange(),
		ResolutionDeg: tuning.GetRadarResolution(),
	})
	if err != nil {
		return nil, fmt.Errorf("radar: %w", err)
	}

	mem, err := memory.New(memory.Config{
		Sigma:    tuning.GetMemorySigma(),
		Decay:    tuning.GetMemoryDecay(),
		Capacity: tuning.GetMemoryCapacity(),
		Enabled:  tuning.GetMemoryEnabled(),
	})
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	predictor, err := predict.New(predict.Config{
		HistoryLen:     tuning.GetPredictorHistoryLen(),
		MaxMissedTicks: tuning.GetPredictorMaxMissedTicks(),
		BaseVariance:   tuning.GetPredictorBaseVariance(),
		VarianceGrowth: tuning.GetPredictorVarianceGrowth(),
	})
	if err != nil {
		return nil, fmt.Errorf("predictor: %w", err)
	}

	return &Simulation{
		env:       env,
		rdr:       rdr,
		mem:       mem,
		predictor: predictor,
		algo:      algo,
		tuning:    tuning,
		pose:      env.Start(),
		status:    StatusRunning,
	}, nil
}

// AddObserver registers a rendering/recording collaborator.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Status returns the current lifecycle state.
func (s *Simulation) Status() Status { return s.status }

// Reason returns the terminal reason, empty while running.
func (s *Simulation) Reason() Reason { return s.reason }

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int { return s.tick }

// Pose returns the robot's current pose.
func (s *Simulation) Pose() geom.Pose { return s.pose }

// Stats returns the run statistics so far.
func (s *Simulation) Stats() Stats { return s.stats }

// Memory exposes the robot memory for read-only reporting.
func (s *Simulation) Memory() *memory.Memory { return s.mem }

// Step advances the simulation one tick. It is a no-op once terminated.
// A navigation algorithm fault is fatal: the error is returned and the run
// terminates with the last valid tick's state intact.
func (s *Simulation) Step() error {
	if s.status != StatusRunning {
		return nil
	}
	tick := s.tick + 1

	// Phase 1: advance dynamic obstacles.
	s.env.stepObstacles()

	// Phase 2: sense.
	scan := s.rdr.Scan(s.pose, s.env)
	dynScan := s.rdr.ScanDynamic(s.pose, s.env)

	// Phase 3: fade unreinforced evidence, then deposit this tick's hits so
	// fresh observations are never decayed on arrival.
	s.mem.Decay(tick)
	s.mem.Update(scan, s.pose, tick)

	// Phase 4: track visible obstacles and drop stale tracks.
	for _, o := range s.env.Dynamic() {
		if geom.Dist(s.pose.Pos, o.Pos())-o.Radius <= s.rdr.Range() {
			s.predictor.Observe(o.ID, o.Pos(), tick)
		}
	}
	s.predictor.Prune(tick)

	// Phase 5: one-tick-ahead prediction per tracked obstacle. Tracks with
	// insufficient history yield no prediction and are skipped.
	var predictions []*predict.Prediction
	for _, id := range s.predictor.TrackIDs() {
		if p := s.predictor.Predict(id, 1); p != nil {
			predictions = append(predictions, p)
		}
	}

	// Phase 6: decide.
	decision := nav.Decision{
		Tick:        tick,
		Pose:        s.pose,
		Target:      s.env.Target(),
		MaxSpeed:    s.tuning.GetRobotSpeed(),
		RadarRange:  s.rdr.Range(),
		Scan:        scan,
		DynamicScan: dynScan,
		Memory:      s.mem,
		Predictions: predictions,
	}
	started := time.Now()
	cmd, err := s.algo.Decide(decision)
	s.stats.DecisionTime += time.Since(started)
	s.stats.Decisions++
	if err != nil {
		s.terminate(ReasonAlgorithmError)
		return fmt.Errorf("navigation algorithm %s failed at tick %d: %w", s.algo.Name(), tick, err)
	}

	// Phase 7: move the robot under its speed, turn-rate and momentum limits.
	s.applyMotion(cmd)

	s.tick = tick
	s.stats.Ticks = tick
	s.notifyObservers(scan)

	// Phase 8: collision before target, so at most one terminal reason can
	// fire and a tangent contact counts as a collision.
	if hit, dynamic := s.checkCollision(); hit {
		if dynamic {
			s.stats.DynamicCollisions++
		} else {
			s.stats.StaticCollisions++
		}
		s.terminate(ReasonCollided)
		return nil
	}

	// Phase 9: target reached.
	if geom.Dist(s.pose.Pos, s.env.Target()) < s.tuning.GetTargetThreshold() {
		s.terminate(ReasonTargetReached)
		return nil
	}

	// Phase 10: step budget, only after a full tick completes.
	if s.tick >= s.tuning.GetMaxTicks() {
		s.terminate(ReasonMaxSteps)
	}
	return nil
}

// applyMotion turns a motion command into a pose update, clamping to the
// robot's speed and turn-rate limits and blending with the previous movement
// vector so the robot cannot change direction instantaneously.
func (s *Simulation) applyMotion(cmd nav.MotionCommand) {
	speed := cmd.Speed
	if max := s.tuning.GetRobotSpeed(); speed > max {
		speed = max
	}
	if speed < 0 {
		speed = 0
	}

	heading := cmd.HeadingDeg
	if maxTurn := s.tuning.GetMaxTurnRate(); maxTurn > 0 {
		delta := geom.NormalizeDeg(heading - s.pose.HeadingDeg)
		if delta > 180 {
			delta -= 360
		}
		if delta > maxTurn {
			delta = maxTurn
		} else if delta < -maxTurn {
			delta = -maxTurn
		}
		heading = geom.NormalizeDeg(s.pose.HeadingDeg + delta)
	}

	accel := r2.Scale(speed, geom.HeadingVec(heading))
	momentum := s.tuning.GetMovementMomentum()
	move := r2.Add(r2.Scale(momentum, s.lastMove), r2.Scale(1-momentum, accel))
	if n := r2.Norm(move); n > s.tuning.GetRobotSpeed() && n > 0 {
		move = r2.Scale(s.tuning.GetRobotSpeed()/n, move)
	}
	s.lastMove = move

	s.pose.Pos = r2.Add(s.pose.Pos, move)
	s.pose.Speed = r2.Norm(move)
	if s.pose.Speed > 0 {
		s.pose.HeadingDeg = geom.AngleDegBetween(r2.Vec{}, move)
	}
}

// checkCollision tests the robot footprint against every obstacle and the
// boundary. Contact at exactly zero clearance is a collision.
func (s *Simulation) checkCollision() (hit, dynamic bool) {
	r := s.tuning.GetRobotRadius()

	for _, o := range s.env.Dynamic() {
		if o.Body().Clearance(s.pose.Pos)-r <= 0 {
			return true, true
		}
	}
	for _, sh := range s.env.StaticShapes() {
		if sh.Clearance(s.pose.Pos)-r <= 0 {
			return true, false
		}
	}
	if s.env.Bounds().Clearance(s.pose.Pos)-r <= 0 {
		return true, false
	}
	return false, false
}

func (s *Simulation) terminate(reason Reason) {
	s.status = StatusTerminated
	s.reason = reason
}

func (s *Simulation) notifyObservers(scan radar.Scan) {
	if len(s.observers) == 0 {
		return
	}
	dyn := s.env.Dynamic()
	obstacles := make([]ObstacleState, len(dyn))
	for i, o := range dyn {
		obstacles[i] = ObstacleState{ID: o.ID, Pos: o.Pos(), Radius: o.Radius}
	}
	snap := Snapshot{
		Tick:        s.tick,
		Robot:       s.pose,
		Target:      s.env.Target(),
		Obstacles:   obstacles,
		Scan:        scan,
		MemoryCells: s.mem.Cells(),
	}
	for _, o := range s.observers {
		o.ObserveTick(snap)
	}
}

// Run steps the simulation to termination. External cancellation is honoured
// only at tick boundaries, never mid-tick.
func (s *Simulation) Run(ctx context.Context) (Outcome, error) {
	for s.status == StatusRunning {
		select {
		case <-ctx.Done():
			s.terminate(ReasonCancelled)
			return s.Outcome(), ctx.Err()
		default:
		}
		if err := s.Step(); err != nil {
			return s.Outcome(), err
		}
	}
	return s.Outcome(), nil
}

// Outcome reports the terminal reason and final state for external reporting.
func (s *Simulation) Outcome() Outcome {
	return Outcome{
		Reason:           s.reason,
		Ticks:            s.tick,
		FinalPose:        s.pose,
		DistanceToTarget: geom.Dist(s.pose.Pos, s.env.Target()),
	}
}
