// Package config loads and validates the cascading YAML configuration a
// regeneration run is parameterized by: the master seed, geometric
// tolerances, solver limits, and region-detection resolution.
package config

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config specifies every parameter a regeneration run needs beyond the
// feature graph itself.
type Config struct {
	// Seed is the master seed for deterministic regeneration. Use 0 to
	// auto-generate from the current time.
	Seed uint64 `yaml:"seed" json:"seed"`

	// Tolerances governs the linear and angular slack the kernel and
	// solver treat as "close enough".
	Tolerances TolerancesCfg `yaml:"tolerances" json:"tolerances"`

	// Solver controls the constraint solver's iteration budget.
	Solver SolverCfg `yaml:"solver" json:"solver"`

	// Regions controls the region detector's curve discretisation.
	Regions RegionsCfg `yaml:"regions" json:"regions"`

	// Backend names the registered kernel backend to use (e.g. "analytic").
	Backend string `yaml:"backend" json:"backend"`
}

// TolerancesCfg bounds the linear and angular tolerances used throughout
// geometric comparison and tessellation.
type TolerancesCfg struct {
	// Linear is the distance, in the sketch plane's length units, below
	// which two points are considered coincident (1e-9 - 1e-3).
	Linear float64 `yaml:"linear" json:"linear"`

	// Angular is the angle, in radians, below which two directions are
	// considered parallel (1e-9 - 1e-2).
	Angular float64 `yaml:"angular" json:"angular"`
}

// SolverCfg bounds the constraint solver's iteration budget.
type SolverCfg struct {
	// MaxIterations is the relaxation pass cap (10 - 10000).
	MaxIterations int `yaml:"maxIterations" json:"maxIterations"`

	// ConvergenceEpsilon is the worst-per-constraint error below which
	// the solver declares convergence (1e-12 - 1e-3).
	ConvergenceEpsilon float64 `yaml:"convergenceEpsilon" json:"convergenceEpsilon"`
}

// RegionsCfg bounds the curve discretisation used when detecting enclosed
// sketch faces.
type RegionsCfg struct {
	// CircleSegments is the polygon approximation count for a full circle
	// (8 - 512).
	CircleSegments int `yaml:"circleSegments" json:"circleSegments"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses and validates YAML configuration from a byte
// slice.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if cfg.Seed == 0 {
		cfg.Seed = generateSeed()
	}
	if cfg.Backend == "" {
		cfg.Backend = "analytic"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks every range constraint, returning the first failure.
func (c *Config) Validate() error {
	if err := c.Tolerances.Validate(); err != nil {
		return fmt.Errorf("tolerances: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.Regions.Validate(); err != nil {
		return fmt.Errorf("regions: %w", err)
	}
	if c.Backend == "" {
		return errors.New("backend must not be empty")
	}
	return nil
}

// Validate checks TolerancesCfg constraints.
func (t *TolerancesCfg) Validate() error {
	if t.Linear < 1e-9 || t.Linear > 1e-3 {
		return fmt.Errorf("linear must be in range [1e-9, 1e-3], got %g", t.Linear)
	}
	if t.Angular < 1e-9 || t.Angular > 1e-2 {
		return fmt.Errorf("angular must be in range [1e-9, 1e-2], got %g", t.Angular)
	}
	return nil
}

// Validate checks SolverCfg constraints.
func (s *SolverCfg) Validate() error {
	if s.MaxIterations < 10 || s.MaxIterations > 10000 {
		return fmt.Errorf("maxIterations must be in range [10, 10000], got %d", s.MaxIterations)
	}
	if s.ConvergenceEpsilon < 1e-12 || s.ConvergenceEpsilon > 1e-3 {
		return fmt.Errorf("convergenceEpsilon must be in range [1e-12, 1e-3], got %g", s.ConvergenceEpsilon)
	}
	return nil
}

// Validate checks RegionsCfg constraints.
func (r *RegionsCfg) Validate() error {
	if r.CircleSegments < 8 || r.CircleSegments > 512 {
		return fmt.Errorf("circleSegments must be in range [8, 512], got %d", r.CircleSegments)
	}
	return nil
}

// ToYAML serializes the config to canonical YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Hash computes a deterministic sha256 digest of the config's canonical
// YAML encoding, used to detect config drift between regeneration runs.
func (c *Config) Hash() []byte {
	data, err := c.ToYAML()
	if err != nil {
		h := sha256.New()
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], c.Seed)
		h.Write(buf[:])
		return h.Sum(nil)
	}

	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

// Default returns a config with every field at its package-documented
// default, ready to use if no file is supplied.
func Default() Config {
	return Config{
		Seed: generateSeed(),
		Tolerances: TolerancesCfg{
			Linear:  1e-6,
			Angular: 1e-6,
		},
		Solver: SolverCfg{
			MaxIterations:      100,
			ConvergenceEpsilon: 1e-6,
		},
		Regions: RegionsCfg{
			CircleSegments: 64,
		},
		Backend: "analytic",
	}
}

// generateSeed derives a seed from the current time when none is supplied.
func generateSeed() uint64 {
	now := time.Now().UnixNano()
	if now < 0 {
		now = -now
	}
	seed := uint64(now)
	if seed == 0 {
		seed = 1
	}
	return seed
}
