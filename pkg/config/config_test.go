package config_test

import (
	"strings"
	"testing"

	"github.com/archkit/cadcore/pkg/config"
)

func TestLoadConfigFromBytes_ValidConfig(t *testing.T) {
	yaml := `
seed: 12345
tolerances:
  linear: 0.000001
  angular: 0.000001
solver:
  maxIterations: 200
  convergenceEpsilon: 0.0000001
regions:
  circleSegments: 32
backend: analytic
`
	cfg, err := config.LoadConfigFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadConfigFromBytes() failed: %v", err)
	}

	if cfg.Seed != 12345 {
		t.Errorf("Seed = %d, want 12345", cfg.Seed)
	}
	if cfg.Solver.MaxIterations != 200 {
		t.Errorf("Solver.MaxIterations = %d, want 200", cfg.Solver.MaxIterations)
	}
	if cfg.Regions.CircleSegments != 32 {
		t.Errorf("Regions.CircleSegments = %d, want 32", cfg.Regions.CircleSegments)
	}
	if cfg.Backend != "analytic" {
		t.Errorf("Backend = %q, want analytic", cfg.Backend)
	}
}

func TestLoadConfigFromBytes_ZeroSeedIsAutoGenerated(t *testing.T) {
	yaml := `
tolerances:
  linear: 0.000001
  angular: 0.000001
solver:
  maxIterations: 100
  convergenceEpsilon: 0.000001
regions:
  circleSegments: 64
`
	cfg, err := config.LoadConfigFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadConfigFromBytes() failed: %v", err)
	}
	if cfg.Seed == 0 {
		t.Error("expected a zero seed to be auto-generated to a nonzero value")
	}
}

func TestLoadConfigFromBytes_MissingBackendDefaultsToAnalytic(t *testing.T) {
	yaml := `
seed: 1
tolerances:
  linear: 0.000001
  angular: 0.000001
solver:
  maxIterations: 100
  convergenceEpsilon: 0.000001
regions:
  circleSegments: 64
`
	cfg, err := config.LoadConfigFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadConfigFromBytes() failed: %v", err)
	}
	if cfg.Backend != "analytic" {
		t.Errorf("Backend = %q, want analytic", cfg.Backend)
	}
}

func TestValidate_RejectsOutOfRangeLinearTolerance(t *testing.T) {
	cfg := config.Default()
	cfg.Tolerances.Linear = 1.0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an out-of-range linear tolerance to fail validation")
	}
	if !strings.Contains(err.Error(), "linear") {
		t.Errorf("error = %v, want it to mention 'linear'", err)
	}
}

func TestValidate_RejectsOutOfRangeMaxIterations(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.MaxIterations = 1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an out-of-range maxIterations to fail validation")
	}
	if !strings.Contains(err.Error(), "maxIterations") {
		t.Errorf("error = %v, want it to mention 'maxIterations'", err)
	}
}

func TestValidate_RejectsOutOfRangeCircleSegments(t *testing.T) {
	cfg := config.Default()
	cfg.Regions.CircleSegments = 4
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an out-of-range circleSegments to fail validation")
	}
	if !strings.Contains(err.Error(), "circleSegments") {
		t.Errorf("error = %v, want it to mention 'circleSegments'", err)
	}
}

func TestValidate_RejectsEmptyBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an empty backend to fail validation")
	}
}

func TestHash_IsStableAndSensitiveToChange(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42

	h1 := cfg.Hash()
	h2 := cfg.Hash()
	if string(h1) != string(h2) {
		t.Fatal("expected Hash to be stable across repeated calls")
	}

	cfg.Solver.MaxIterations += 1
	h3 := cfg.Hash()
	if string(h1) == string(h3) {
		t.Fatal("expected Hash to change when a field changes")
	}
}

func TestToYAML_RoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 7

	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML() failed: %v", err)
	}

	restored, err := config.LoadConfigFromBytes(data)
	if err != nil {
		t.Fatalf("LoadConfigFromBytes() of round-tripped YAML failed: %v", err)
	}
	if restored.Seed != cfg.Seed {
		t.Errorf("Seed = %d, want %d", restored.Seed, cfg.Seed)
	}
	if restored.Solver.MaxIterations != cfg.Solver.MaxIterations {
		t.Errorf("Solver.MaxIterations = %d, want %d", restored.Solver.MaxIterations, cfg.Solver.MaxIterations)
	}
}
