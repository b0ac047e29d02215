// Package proptest provides property-based testing utilities with seeded
// random generation for reproducible tests.
//
// Property-based testing generates random inputs and verifies that certain
// invariants (properties) always hold. When a test fails, the seed is logged
// so the failure can be reproduced.
//
// Basic usage:
//
//	func TestMyProperty(t *testing.T) {
//	    proptest.QuickCheck(t, "my property", func(g *proptest.Generator) bool {
//	        n := g.IntRange(1, 100)
//	        return n >= 1 && n <= 100
//	    })
//	}
package proptest

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// Generator wraps a seeded random number generator for reproducible
// random value generation. The seed is stored so it can be logged
// on test failure for reproducibility.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New creates a new Generator with the given seed.
// If seed is 0, uses the current time as the seed.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed used by this generator.
// This is useful for logging on test failure so the failure can be reproduced.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Intn returns a random int in [0, n).
// Panics if n <= 0.
func (g *Generator) Intn(n int) int {
	return g.rng.Intn(n)
}

// Float64 returns a random float64 in [0.0, 1.0).
func (g *Generator) Float64() float64 {
	return g.rng.Float64()
}

// Bool returns a random boolean with 50% probability for each value.
func (g *Generator) Bool() bool {
	return g.rng.Intn(2) == 1
}

// BoolWithProb returns true with the given probability (0.0 to 1.0).
func (g *Generator) BoolWithProb(prob float64) bool {
	return g.rng.Float64() < prob
}

// Config controls property test behavior.
type Config struct {
	// NumTrials is the number of test iterations. Default: 100.
	NumTrials int

	// Seed is the random seed for reproducibility. Default: time-based.
	// Set to 0 for random seed.
	Seed int64

	// Verbose enables additional logging.
	Verbose bool
}

// DefaultConfig returns sensible defaults for property testing.
func DefaultConfig() Config {
	return Config{
		NumTrials: 100,
		Seed:      0, // Will be set from time or environment
	}
}

// getEffectiveSeed returns the seed to use, checking environment first.
func getEffectiveSeed(cfg Config) int64 {
	// Check environment variable for reproducibility
	if envSeed := os.Getenv("PROPTEST_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}

	if cfg.Seed != 0 {
		return cfg.Seed
	}

	return time.Now().UnixNano()
}

// Check runs a property multiple times with different random inputs.
// On failure, it logs the seed for reproducibility.
func Check(t *testing.T, name string, cfg Config, prop func(g *Generator) bool) {
	t.Helper()

	if cfg.NumTrials <= 0 {
		cfg.NumTrials = 100
	}

	seed := getEffectiveSeed(cfg)
	g := New(seed)

	if cfg.Verbose {
		t.Logf("proptest %q: running %d trials with seed %d", name, cfg.NumTrials, seed)
	}

	for i := 0; i < cfg.NumTrials; i++ {
		if !prop(g) {
			t.Errorf("proptest %q failed on trial %d (seed=%d, use PROPTEST_SEED=%d to reproduce)",
				name, i+1, seed, seed)
			return
		}
	}

	if cfg.Verbose {
		t.Logf("proptest %q: passed %d trials", name, cfg.NumTrials)
	}
}

// QuickCheck runs a property with the default configuration.
func QuickCheck(t *testing.T, name string, prop func(g *Generator) bool) {
	t.Helper()
	Check(t, name, DefaultConfig(), prop)
}
