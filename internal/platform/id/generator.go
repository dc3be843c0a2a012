package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator mints opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator produces hex IDs from crypto/rand, optionally
// namespaced with a static prefix.
type RandomGenerator struct {
	prefix string
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func NewPrefixedGenerator(prefix string) *RandomGenerator {
	return &RandomGenerator{prefix: prefix}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return g.prefix + hex.EncodeToString(buf), nil
}
