// Package rng provides deterministic random number generation for
// regeneration-time tie-breaks that fall outside the feature graph's own
// seed-derived identity - currently just the Mesh->Topology translator's
// fallback normal for degenerate coplanar triangles.
//
// # Overview
//
// The RNG type derives a stage-specific seed from a master seed, a stage
// name, and a configuration hash, so a given stage's random sequence is
// reproducible across runs and independent of every other stage's.
//
// # Sub-Seed Derivation
//
// Each RNG derives its seed using SHA-256:
//
//	seed_stage = H(masterSeed, stageName, configHash)
//
// where:
//   - masterSeed: the regeneration run's top-level seed
//   - stageName: a stage identifier (e.g. "mesh.fallback-normal")
//   - configHash: config.Config.Hash(), or any other content hash the
//     caller wants the sequence to be sensitive to
//
// This ensures:
//  1. Same inputs always produce same RNG sequence (determinism)
//  2. Different stages get independent random sequences (isolation)
//  3. Config changes result in different sequences (sensitivity)
//
// # Usage
//
//	seed := cfg.Hash()
//	normalRNG := rng.NewRNG(masterSeed, "mesh.fallback-normal", seed)
//	axis := normalRNG.IntRange(0, 5)
//
// # Thread Safety
//
// RNG instances are NOT thread-safe. Each goroutine should use its own RNG
// instance.
package rng
