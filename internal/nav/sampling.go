package nav

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/predict"
)

const (
	samplingBins       = 360
	targetSigmaDeg     = 100.0
	safetyThreshold    = 0.1
	safetyBufferMeters = 3.0
)

// Sampling is a trajectory-sampling local planner. Each tick it builds an
// angular preference distribution over candidate headings from the target
// direction, radar clearance, remembered occupancy and predicted obstacle
// motion, then samples candidates and picks the safest one that makes
// progress. With no feasible candidate it stops rather than guessing.
type Sampling struct {
	rng        *rand.Rand
	candidates int
}

// NewSampling builds the planner with a run-scoped seed. Runs with the same
// seed and input sequence are reproducible.
func NewSampling(seed int64, candidates int) *Sampling {
	if candidates <= 0 {
		candidates = 1
	}
	return &Sampling{
		rng:        rand.New(rand.NewSource(seed)),
		candidates: candidates,
	}
}

func (s *Sampling) Name() string { return "sampling" }

func (s *Sampling) Decide(d Decision) (MotionCommand, error) {
	pdf := s.buildDistribution(d)

	// Always consider the direct-to-target heading, then sampled ones.
	headings := make([]float64, 0, s.candidates+1)
	headings = append(headings, geom.AngleDegBetween(d.Pose.Pos, d.Target))
	for i := 0; i < s.candidates; i++ {
		headings = append(headings, s.sampleHeading(pdf))
	}

	bestHeading := math.NaN()
	bestSafety := math.Inf(1)
	bestScore := math.Inf(1)
	for _, h := range headings {
		safety := s.safety(d, h)
		wp := waypoint(d, h)
		score := geom.Dist(wp, d.Target)

		if safety <= safetyThreshold {
			// Feasible: prefer progress towards the target.
			if bestSafety > safetyThreshold || score < bestScore {
				bestHeading, bestSafety, bestScore = h, safety, score
			}
		} else if bestSafety > safetyThreshold && safety < bestSafety {
			// No feasible candidate yet: remember the least unsafe one.
			bestHeading, bestSafety, bestScore = h, safety, score
		}
	}

	if math.IsNaN(bestHeading) || bestSafety >= 1 {
		return Stop, nil // hard blocked in every sampled direction
	}
	return MotionCommand{Speed: d.MaxSpeed, HeadingDeg: bestHeading}, nil
}

// buildDistribution combines the per-bin preferences by taking the minimum,
// so any source can veto a direction.
func (s *Sampling) buildDistribution(d Decision) []float64 {
	amp := 1 / (math.Sqrt(2*math.Pi) * targetSigmaDeg)
	targetAng := geom.AngleDegBetween(d.Pose.Pos, d.Target)

	pdf := make([]float64, samplingBins)
	for i := range pdf {
		ang := float64(i) * 360 / samplingBins

		diff := angularDiff(ang, targetAng)
		p := amp * math.Exp(-diff*diff/(2*targetSigmaDeg*targetSigmaDeg))

		clearance := scanDistanceAt(d, ang)
		p = math.Min(p, amp*clearance/d.RadarRange)

		if d.Memory != nil && d.Memory.Enabled() {
			wp := waypoint(d, ang)
			p = math.Min(p, amp*(1-d.Memory.Query(wp)))
		}

		pdf[i] = math.Max(p, 0)
	}
	return pdf
}

// sampleHeading draws a heading from the distribution; a degenerate all-zero
// distribution falls back to uniform.
func (s *Sampling) sampleHeading(pdf []float64) float64 {
	var total float64
	for _, p := range pdf {
		total += p
	}
	if total == 0 {
		return float64(s.rng.Intn(samplingBins)) * 360 / samplingBins
	}
	r := s.rng.Float64() * total
	var cum float64
	for i, p := range pdf {
		cum += p
		if r < cum {
			return float64(i) * 360 / samplingBins
		}
	}
	return float64(samplingBins-1) * 360 / samplingBins
}

// safety scores a heading in [0, 1]: 0 is free, 1 is hard blocked.
func (s *Sampling) safety(d Decision, headingDeg float64) float64 {
	step := d.MaxSpeed + safetyBufferMeters
	if scanDistanceAt(d, headingDeg) <= step {
		return 1
	}

	wp := waypoint(d, headingDeg)
	free := 1.0
	for _, pr := range d.Predictions {
		free *= 1 - predictedOccupancy(pr, wp)
	}
	return 1 - free
}

// predictedOccupancy converts a prediction density to a peak-relative
// occupancy in [0, 1].
func predictedOccupancy(pr *predict.Prediction, at r2.Vec) float64 {
	peak := pr.Prob(pr.Mean)
	if peak <= 0 {
		return 0
	}
	return math.Min(1, pr.Prob(at)/peak)
}

// scanDistanceAt returns the scan distance for the ray nearest the heading,
// substituting the radar range for no-hit samples.
func scanDistanceAt(d Decision, headingDeg float64) float64 {
	n := len(d.Scan.Samples)
	if n == 0 {
		return d.RadarRange
	}
	res := 360 / float64(n)
	idx := int(math.Round(geom.NormalizeDeg(headingDeg)/res)) % n
	smp := d.Scan.Samples[idx]
	if !smp.Hit {
		return d.RadarRange
	}
	return smp.Distance
}

func waypoint(d Decision, headingDeg float64) r2.Vec {
	return r2.Add(d.Pose.Pos, r2.Scale(d.MaxSpeed, geom.HeadingVec(headingDeg)))
}

// angularDiff returns the minimal circular difference between two angles.
func angularDiff(a, b float64) float64 {
	diff := math.Abs(geom.NormalizeDeg(a) - geom.NormalizeDeg(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
