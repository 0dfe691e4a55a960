package space

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/integrate"
	"github.com/qrigid/engine/island"
	"github.com/qrigid/engine/solver"
)

// ConstraintConfig holds the enumerated constraint-configuration options
// named in spec §6. A Space copies ErrorCorrectionFactor,
// AllowedPenetration, MaxCorrectiveVelocity and BouncinessVelocityThreshold
// into every PenetrationConstraint it builds each tick. Softness,
// StaticFrictionVelocityThreshold, TwistFrictionFactor,
// MinimumSeparationDistance and MaximumContactDistance are stored but not
// read by the Space.
type ConstraintConfig struct {
	Softness                        float64 `yaml:"softness"`
	ErrorCorrectionFactor           float64 `yaml:"error_correction_factor"`
	MaxCorrectiveVelocity           float64 `yaml:"max_corrective_velocity"`
	BouncinessVelocityThreshold     float64 `yaml:"bounciness_velocity_threshold"`
	StaticFrictionVelocityThreshold float64 `yaml:"static_friction_velocity_threshold"`
	TwistFrictionFactor             float64 `yaml:"twist_friction_factor"`
	AllowedPenetration              float64 `yaml:"allowed_penetration"`
	DefaultMargin                   float64 `yaml:"default_margin"`
	ContactInvalidationLength       float64 `yaml:"contact_invalidation_length"`
	MinimumSeparationDistance       float64 `yaml:"minimum_separation_distance"`
	MaximumContactDistance          float64 `yaml:"maximum_contact_distance"`
}

// DefaultConstraintConfig mirrors spec §6's stated defaults.
func DefaultConstraintConfig() ConstraintConfig {
	return ConstraintConfig{
		Softness:                        0.001,
		ErrorCorrectionFactor:           0.2,
		MaxCorrectiveVelocity:           2,
		BouncinessVelocityThreshold:     1,
		StaticFrictionVelocityThreshold: 0.2,
		TwistFrictionFactor:             1,
		AllowedPenetration:              0.01,
		DefaultMargin:                   0.04,
		ContactInvalidationLength:       0.1,
		MinimumSeparationDistance:       0.03,
		MaximumContactDistance:          0.1,
	}
}

// DeactivationConfig holds spec §6's deactivation-manager options, in the
// host-facing float64 shape a YAML preset would supply; ToIslandConfig
// converts it to island.Config's Fix64 fields.
type DeactivationConfig struct {
	VelocityLowerLimit      float64 `yaml:"velocity_lower_limit"`
	LowVelocityTimeMinimum  float64 `yaml:"low_velocity_time_minimum"`
	UseStabilization        bool    `yaml:"use_stabilization"`
	MaxDeactivationAttempts int     `yaml:"max_deactivation_attempts"`
	MaxSplitAttemptsFraction float64 `yaml:"max_split_attempts_fraction"`
	MinSplitAttempts        int     `yaml:"min_split_attempts"`
}

// DefaultDeactivationConfig mirrors spec §6's stated defaults.
func DefaultDeactivationConfig() DeactivationConfig {
	return DeactivationConfig{
		VelocityLowerLimit:       0.26,
		LowVelocityTimeMinimum:   1.0,
		UseStabilization:         true,
		MaxDeactivationAttempts:  100,
		MaxSplitAttemptsFraction: 0.01,
		MinSplitAttempts:         3,
	}
}

// ToIslandConfig converts the host-facing deactivation options into the
// island package's Fix64-keyed Config.
func (d DeactivationConfig) ToIslandConfig() island.Config {
	return island.Config{
		LowVelocityThreshold:    fixed.FromFloat64(d.VelocityLowerLimit),
		MinLowVelocityDuration:  fixed.FromFloat64(d.LowVelocityTimeMinimum),
		MaxDeactivationAttempts: d.MaxDeactivationAttempts,
		SplitFraction:           fixed.FromFloat64(d.MaxSplitAttemptsFraction),
		SplitMinimum:            d.MinSplitAttempts,
	}
}

// Config bundles every tunable a Space needs, in the plain-struct,
// documented-zero-value-defaults style of the teacher's config.go/
// profile.go, with YAML (un)marshal support so a host can load tuning
// presets the way the teacher's engine-level configuration does.
type Config struct {
	Gravity      Vector3YAML      `yaml:"gravity"`
	Constraint   ConstraintConfig `yaml:"constraint"`
	Deactivation DeactivationConfig `yaml:"deactivation"`
	Solver       SolverConfigYAML `yaml:"solver"`
	UltraDamping UltraDampingConfigYAML `yaml:"ultra_damping"`
}

// Vector3YAML is a plain (X, Y, Z float64) mirror of geom.Vector3 for YAML
// (un)marshaling, since geom.Vector3's Fix64 fields are not meant to be
// host-authored raw integers.
type Vector3YAML struct {
	X, Y, Z float64
}

func (v Vector3YAML) ToVector3() geom.Vector3 {
	return geom.V3(fixed.FromFloat64(v.X), fixed.FromFloat64(v.Y), fixed.FromFloat64(v.Z))
}

// SolverConfigYAML mirrors solver.Config in YAML-friendly form.
type SolverConfigYAML struct {
	Iterations int `yaml:"iterations"`
}

func (s SolverConfigYAML) ToSolverConfig() solver.Config {
	if s.Iterations <= 0 {
		return solver.DefaultConfig()
	}
	return solver.Config{Iterations: s.Iterations}
}

// UltraDampingConfigYAML mirrors integrate.Config's ultra-damping fields in
// YAML-friendly form.
type UltraDampingConfigYAML struct {
	Threshold float64 `yaml:"threshold"`
	Delay     float64 `yaml:"delay"`
	Factor    float64 `yaml:"factor"`
}

func (u UltraDampingConfigYAML) ToIntegrateConfig() integrate.Config {
	if u.Threshold == 0 && u.Delay == 0 && u.Factor == 0 {
		return integrate.DefaultConfig()
	}
	return integrate.Config{
		UltraDampingThreshold: fixed.FromFloat64(u.Threshold),
		UltraDampingDelay:     fixed.FromFloat64(u.Delay),
		UltraDampingFactor:    fixed.FromFloat64(u.Factor),
	}
}

// DefaultConfig mirrors spec §6's stated defaults throughout.
func DefaultConfig() Config {
	return Config{
		Gravity:      Vector3YAML{X: 0, Y: -9.8, Z: 0},
		Constraint:   DefaultConstraintConfig(),
		Deactivation: DefaultDeactivationConfig(),
		Solver:       SolverConfigYAML{Iterations: solver.DefaultConfig().Iterations},
		UltraDamping: UltraDampingConfigYAML{Threshold: 0.01, Delay: 0.5, Factor: 0.05},
	}
}

// configAlias breaks UnmarshalYAML/MarshalYAML's recursion (a method on
// Config itself would call itself via yaml.Unmarshal/Marshal otherwise).
type configAlias Config

// UnmarshalYAML loads a tuning preset, defaulting any field the document
// omits to DefaultConfig's value — the host can supply a partial document
// (e.g. just a different gravity) without repeating every other default.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = DefaultConfig()
	return unmarshal((*configAlias)(c))
}

// MarshalYAML emits the full, concrete tuning set — useful for a host to
// dump the defaults it is running with as a starting preset.
func (c Config) MarshalYAML() (interface{}, error) {
	return configAlias(c), nil
}
