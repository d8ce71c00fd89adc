// Package shortcode generates random fixed-length short codes.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the 62-symbol set short codes are drawn from.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLength is the code length used when none is configured.
	DefaultLength = 6
)

// Generator produces short codes whose symbols are drawn independently and
// uniformly from Alphabet using crypto/rand. It holds no mutable state and is
// safe for concurrent use.
type Generator struct {
	length int
}

type Option func(*Generator)

// WithLength sets the code length. Values below 1 keep the default.
func WithLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.length = n
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{length: DefaultLength}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
