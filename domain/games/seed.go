package games

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
)

// SeedSize is the length of a session seed
const SeedSize = 32

// NewSeed draws a fresh session seed from the OS entropy source
func NewSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := crand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return seed, nil
}

// rngFor returns a deterministic generator for seed. Replaying a stored seed
// reproduces the same outcome.
func rngFor(seed []byte) (*rand.Rand, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	var key [SeedSize]byte
	copy(key[:], seed)
	return rand.New(rand.NewChaCha8(key)), nil
}
