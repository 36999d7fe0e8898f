package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/config"
	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/nav"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
func ptrB(v bool) *bool       { return &v }

func openField(t *testing.T, static []geom.Shape, dynamic []*DynamicObstacle) *Environment {
	t.Helper()
	bounds, err := geom.NewBounds(r2.Vec{X: -100, Y: -100}, r2.Vec{X: 300, Y: 100})
	require.NoError(t, err)
	env, err := NewEnvironment(bounds, static, dynamic,
		geom.Pose{Pos: r2.Vec{X: 0, Y: 0}}, r2.Vec{X: 100, Y: 0})
	require.NoError(t, err)
	return env
}

func TestRunReachesTargetOnEmptyMap(t *testing.T) {
	env := openField(t, nil, nil)
	tuning := &config.Tuning{
		RadarRangeMeters:   ptrF(50),
		RadarResolutionDeg: ptrF(10),
		MemoryEnabled:      ptrB(false),
		MaxTicks:           ptrI(200),
	}

	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonTargetReached, out.Reason)
	assert.LessOrEqual(t, out.Ticks, 110)
	assert.Less(t, out.DistanceToTarget, config.DefaultTargetThreshold)
}

func TestRunCollidesWithBlockingCircle(t *testing.T) {
	block, err := geom.NewCircle(r2.Vec{X: 50, Y: 0}, 5)
	require.NoError(t, err)
	env := openField(t, []geom.Shape{block}, nil)
	tuning := &config.Tuning{RobotRadius: ptrF(1)}

	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCollided, out.Reason)
	assert.Less(t, out.Ticks, 60)
	assert.Equal(t, 1, s.Stats().StaticCollisions)
	assert.Equal(t, 0, s.Stats().DynamicCollisions)
}

func TestRunMaxStepsOnlyAfterFullTick(t *testing.T) {
	env := openField(t, nil, nil)
	tuning := &config.Tuning{
		RobotSpeed: ptrF(0.001), // too slow to ever arrive
		MaxTicks:   ptrI(25),
	}

	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonMaxSteps, out.Reason)
	assert.Equal(t, 25, out.Ticks)
}

func TestTerminationReasonsAreExclusive(t *testing.T) {
	// A wall exactly on the path inside the target threshold: collision is
	// checked first and must be the sole reason.
	block, err := geom.NewCircle(r2.Vec{X: 90, Y: 0}, 5)
	require.NoError(t, err)
	env := openField(t, []geom.Shape{block}, nil)

	s, err := New(env, config.Default(), nav.NewStraightLine())
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCollided, out.Reason)
}

func TestRunCollidesWithDynamicObstacle(t *testing.T) {
	// Head-on obstacle approaching along the same corridor.
	o, err := NewLinearObstacle("head-on", r2.Vec{X: 100, Y: 0}, 4, r2.Vec{X: -10, Y: 0})
	require.NoError(t, err)
	env := openField(t, nil, []*DynamicObstacle{o})
	tuning := &config.Tuning{TargetThreshold: ptrF(1)}

	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCollided, out.Reason)
	assert.Equal(t, 1, s.Stats().DynamicCollisions)
}

func TestStepIsNoOpAfterTermination(t *testing.T) {
	env := openField(t, nil, nil)
	s, err := New(env, config.Default(), nav.NewStraightLine())
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)
	ticks := s.Tick()
	pose := s.Pose()

	require.NoError(t, s.Step())
	assert.Equal(t, ticks, s.Tick())
	assert.Equal(t, pose, s.Pose())
}

func TestRunCancelledAtTickBoundary(t *testing.T) {
	env := openField(t, nil, nil)
	s, err := New(env, config.Default(), nav.NewStraightLine())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ReasonCancelled, out.Reason)
	assert.Equal(t, 0, out.Ticks)
}

type faultyAlgorithm struct{}

func (faultyAlgorithm) Name() string { return "faulty" }
func (faultyAlgorithm) Decide(nav.Decision) (nav.MotionCommand, error) {
	return nav.MotionCommand{}, errors.New("planner exploded")
}

func TestAlgorithmErrorTerminatesWithNamedReason(t *testing.T) {
	env := openField(t, nil, nil)
	s, err := New(env, config.Default(), faultyAlgorithm{})
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusTerminated, s.Status())
	assert.Equal(t, ReasonAlgorithmError, out.Reason)
	assert.Equal(t, 0, out.Ticks)
}

type trajectoryRecorder struct {
	poses []geom.Pose
	ticks []int
}

func (r *trajectoryRecorder) ObserveTick(s Snapshot) {
	r.poses = append(r.poses, s.Robot)
	r.ticks = append(r.ticks, s.Tick)
}

func TestObserverSeesEveryTickOnce(t *testing.T) {
	env := openField(t, nil, nil)
	s, err := New(env, config.Default(), nav.NewStraightLine())
	require.NoError(t, err)
	rec := &trajectoryRecorder{}
	s.AddObserver(rec)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.ticks, out.Ticks)
	for i, tick := range rec.ticks {
		assert.Equal(t, i+1, tick)
	}
}

func TestIdenticalSeedsProduceIdenticalRuns(t *testing.T) {
	run := func() []geom.Pose {
		block, err := geom.NewCircle(r2.Vec{X: 50, Y: 10}, 8)
		require.NoError(t, err)
		o, err := NewLinearObstacle("crosser", r2.Vec{X: 60, Y: -40}, 3, r2.Vec{X: 0, Y: 4})
		require.NoError(t, err)
		env := openField(t, []geom.Shape{block}, []*DynamicObstacle{o})

		tuning := &config.Tuning{Seed: func() *int64 { v := int64(99); return &v }()}
		algo := nav.NewSampling(tuning.GetSeed(), tuning.GetSamplingCandidates())
		s, err := New(env, tuning, algo)
		require.NoError(t, err)
		rec := &trajectoryRecorder{}
		s.AddObserver(rec)

		_, err = s.Run(context.Background())
		require.NoError(t, err)
		return rec.poses
	}

	first, second := run(), run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "tick %d diverged", i+1)
	}
}

func TestMomentumSmoothsDirectionChanges(t *testing.T) {
	env := openField(t, nil, nil)
	tuning := &config.Tuning{MovementMomentum: ptrF(0.6)}
	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)

	require.NoError(t, s.Step())
	// First tick: momentum blends with a zero history vector, so the robot
	// moves slower than its command.
	assert.InDelta(t, 0.4*config.DefaultRobotSpeed, s.Pose().Speed, 1e-9)

	require.NoError(t, s.Step())
	assert.Greater(t, s.Pose().Speed, 0.4*config.DefaultRobotSpeed)
	assert.LessOrEqual(t, s.Pose().Speed, config.DefaultRobotSpeed+1e-9)
}

func TestTurnRateLimitClampsHeading(t *testing.T) {
	bounds, err := geom.NewBounds(r2.Vec{X: -100, Y: -100}, r2.Vec{X: 100, Y: 100})
	require.NoError(t, err)
	// Target due north but the robot starts facing east with a tight turn cap.
	env, err := NewEnvironment(bounds, nil, nil,
		geom.Pose{Pos: r2.Vec{}, HeadingDeg: 0}, r2.Vec{X: 0, Y: 90})
	require.NoError(t, err)
	tuning := &config.Tuning{
		MaxTurnRateDeg:  ptrF(15),
		TargetThreshold: ptrF(5),
		RobotSpeed:      ptrF(2),
	}

	s, err := New(env, tuning, nav.NewStraightLine())
	require.NoError(t, err)
	require.NoError(t, s.Step())
	assert.InDelta(t, 15, s.Pose().HeadingDeg, 1e-9)
}

func TestInvalidTuningRejectedAtConstruction(t *testing.T) {
	env := openField(t, nil, nil)
	tuning := &config.Tuning{RadarRangeMeters: ptrF(-1)}
	_, err := New(env, tuning, nav.NewStraightLine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radar_range_meters")
}
