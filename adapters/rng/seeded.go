package rng

import (
	"context"
	"math/rand"
)

// SeededAdapter implements ports.RNGPort with deterministic streams. Each
// named stream derives its seed by hashing the run identifiers into the
// base seed, so the same run reproduces identical shuffle sequences.
type SeededAdapter struct{}

// NewSeededAdapter creates a deterministic RNG adapter.
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if name != "" {
		seed += int64(hashString(name))
	}
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for a specific run/pairing
func (r *SeededAdapter) Stream(ctx context.Context, runID, pairingLabel string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if runID != "" {
		seed += int64(hashString(runID))
	}
	if pairingLabel != "" {
		seed += int64(hashString(pairingLabel))
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding (djb2)
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
