// Package config holds the tuning surface for the simulator. The schema is
// plain JSON so the same file can seed batch runs and parameter sweeps.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default tuning values. These are the single source of truth used by the
// Get* accessors when a field is absent from the loaded JSON.
const (
	DefaultRadarRange         = 100.0
	DefaultRadarResolution    = 1.0
	DefaultMemorySigma        = 25.0
	DefaultMemoryDecay        = 0.95
	DefaultMemoryCapacity     = 500
	DefaultRobotSpeed         = 10.0
	DefaultRobotRadius        = 1.0
	DefaultMovementMomentum   = 0.0
	DefaultMaxTurnRateDeg     = 0.0 // 0 = unlimited
	DefaultMaxTicks           = 1000
	DefaultTargetThreshold    = 20.0
	DefaultPredictorHistory   = 5
	DefaultPredictorMaxMiss   = 3
	DefaultPredictorBaseVar   = 1.0
	DefaultPredictorVarGrow   = 0.5
	DefaultSeed               = 1
	DefaultSamplingCandidates = 200
)

// Tuning represents the simulator tuning parameters. Fields are pointers so
// a sparse JSON file overrides only what it names; accessors fall back to the
// defaults above.
type Tuning struct {
	// Radar params
	RadarRangeMeters   *float64 `json:"radar_range_meters,omitempty"`
	RadarResolutionDeg *float64 `json:"radar_resolution_deg,omitempty"`

	// Memory params
	MemorySigma    *float64 `json:"memory_sigma,omitempty"`
	MemoryDecay    *float64 `json:"memory_decay,omitempty"`
	MemoryCapacity *int     `json:"memory_capacity,omitempty"`
	MemoryEnabled  *bool    `json:"memory_enabled,omitempty"`

	// Robot params
	RobotSpeed       *float64 `json:"robot_speed,omitempty"`
	RobotRadius      *float64 `json:"robot_radius,omitempty"`
	MovementMomentum *float64 `json:"movement_momentum,omitempty"`
	MaxTurnRateDeg   *float64 `json:"max_turn_rate_deg,omitempty"`

	// Run params
	MaxTicks        *int     `json:"max_ticks,omitempty"`
	TargetThreshold *float64 `json:"target_threshold,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`

	// Predictor params
	PredictorHistoryLen     *int     `json:"predictor_history_len,omitempty"`
	PredictorMaxMissedTicks *int     `json:"predictor_max_missed_ticks,omitempty"`
	PredictorBaseVariance   *float64 `json:"predictor_base_variance,omitempty"`
	PredictorVarianceGrowth *float64 `json:"predictor_variance_growth,omitempty"`

	// Sampling algorithm params
	SamplingCandidates *int `json:"sampling_candidates,omitempty"`
}

// Default returns a Tuning with no overrides; every accessor yields its
// default value.
func Default() *Tuning {
	return &Tuning{}
}

// Load reads a tuning file from disk and validates it.
func Load(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var t Tuning
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return &t, nil
}

// Validate rejects out-of-range values before any tick runs. Invalid values
// are never clamped.
func (t *Tuning) Validate() error {
	if v := t.GetRadarRange(); v <= 0 {
		return fmt.Errorf("radar_range_meters must be positive, got %v", v)
	}
	if v := t.GetRadarResolution(); v <= 0 {
		return fmt.Errorf("radar_resolution_deg must be positive, got %v", v)
	}
	if v := t.GetMemorySigma(); v <= 0 {
		return fmt.Errorf("memory_sigma must be positive, got %v", v)
	}
	if v := t.GetMemoryDecay(); v <= 0 || v > 1 {
		return fmt.Errorf("memory_decay must be in (0, 1], got %v", v)
	}
	if v := t.GetMemoryCapacity(); v <= 0 {
		return fmt.Errorf("memory_capacity must be positive, got %d", v)
	}
	if v := t.GetRobotSpeed(); v < 0 {
		return fmt.Errorf("robot_speed must be non-negative, got %v", v)
	}
	if v := t.GetRobotRadius(); v <= 0 {
		return fmt.Errorf("robot_radius must be positive, got %v", v)
	}
	if v := t.GetMovementMomentum(); v < 0 || v >= 1 {
		return fmt.Errorf("movement_momentum must be in [0, 1), got %v", v)
	}
	if v := t.GetMaxTurnRate(); v < 0 {
		return fmt.Errorf("max_turn_rate_deg must be non-negative, got %v", v)
	}
	if v := t.GetMaxTicks(); v <= 0 {
		return fmt.Errorf("max_ticks must be positive, got %d", v)
	}
	if v := t.GetTargetThreshold(); v <= 0 {
		return fmt.Errorf("target_threshold must be positive, got %v", v)
	}
	if v := t.GetPredictorHistoryLen(); v < 2 {
		return fmt.Errorf("predictor_history_len must be at least 2, got %d", v)
	}
	if v := t.GetPredictorMaxMissedTicks(); v <= 0 {
		return fmt.Errorf("predictor_max_missed_ticks must be positive, got %d", v)
	}
	if v := t.GetPredictorBaseVariance(); v <= 0 {
		return fmt.Errorf("predictor_base_variance must be positive, got %v", v)
	}
	if v := t.GetPredictorVarianceGrowth(); v < 0 {
		return fmt.Errorf("predictor_variance_growth must be non-negative, got %v", v)
	}
	if v := t.GetSamplingCandidates(); v <= 0 {
		return fmt.Errorf("sampling_candidates must be positive, got %d", v)
	}
	return nil
}

func (t *Tuning) GetRadarRange() float64 {
	if t.RadarRangeMeters != nil {
		return *t.RadarRangeMeters
	}
	return DefaultRadarRange
}

func (t *Tuning) GetRadarResolution() float64 {
	if t.RadarResolutionDeg != nil {
		return *t.RadarResolutionDeg
	}
	return DefaultRadarResolution
}

func (t *Tuning) GetMemorySigma() float64 {
	if t.MemorySigma != nil {
		return *t.MemorySigma
	}
	return DefaultMemorySigma
}

func (t *Tuning) GetMemoryDecay() float64 {
	if t.MemoryDecay != nil {
		return *t.MemoryDecay
	}
	return DefaultMemoryDecay
}

func (t *Tuning) GetMemoryCapacity() int {
	if t.MemoryCapacity != nil {
		return *t.MemoryCapacity
	}
	return DefaultMemoryCapacity
}

func (t *Tuning) GetMemoryEnabled() bool {
	if t.MemoryEnabled != nil {
		return *t.MemoryEnabled
	}
	return true
}

func (t *Tuning) GetRobotSpeed() float64 {
	if t.RobotSpeed != nil {
		return *t.RobotSpeed
	}
	return DefaultRobotSpeed
}

func (t *Tuning) GetRobotRadius() float64 {
	if t.RobotRadius != nil {
		return *t.RobotRadius
	}
	return DefaultRobotRadius
}

func (t *Tuning) GetMovementMomentum() float64 {
	if t.MovementMomentum != nil {
		return *t.MovementMomentum
	}
	return DefaultMovementMomentum
}

func (t *Tuning) GetMaxTurnRate() float64 {
	if t.MaxTurnRateDeg != nil {
		return *t.MaxTurnRateDeg
	}
	return DefaultMaxTurnRateDeg
}

func (t *Tuning) GetMaxTicks() int {
	if t.MaxTicks != nil {
		return *t.MaxTicks
	}
	return DefaultMaxTicks
}

func (t *Tuning) GetTargetThreshold() float64 {
	if t.TargetThreshold != nil {
		return *t.TargetThreshold
	}
	return DefaultTargetThreshold
}

func (t *Tuning) GetSeed() int64 {
	if t.Seed != nil {
		return *t.Seed
	}
	return DefaultSeed
}

func (t *Tuning) GetPredictorHistoryLen() int {
	if t.PredictorHistoryLen != nil {
		return *t.PredictorHistoryLen
	}
	return DefaultPredictorHistory
}

func (t *Tuning) GetPredictorMaxMissedTicks() int {
	if t.PredictorMaxMissedTicks != nil {
		return *t.PredictorMaxMissedTicks
	}
	return DefaultPredictorMaxMiss
}

func (t *Tuning) GetPredictorBaseVariance() float64 {
	if t.PredictorBaseVariance != nil {
		return *t.PredictorBaseVariance
	}
	return DefaultPredictorBaseVar
}

func (t *Tuning) GetPredictorVarianceGrowth() float64 {
	if t.PredictorVarianceGrowth != nil {
		return *t.PredictorVarianceGrowth
	}
	return DefaultPredictorVarGrow
}

func (t *Tuning) GetSamplingCandidates() int {
	if t.SamplingCandidates != nil {
		return *t.SamplingCandidates
	}
	return DefaultSamplingCandidates
}
