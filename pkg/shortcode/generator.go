package shortcode

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	StrategyRandom     = "random"
	StrategySequential = "sequential"
)

// ErrInvalidLength is returned when a generator is configured with a non-positive length.
var ErrInvalidLength = errors.New("short code length must be positive")

// Generator produces the short code for the record identified by id.
type Generator interface {
	Generate(id int64) (string, error)
}

// Random draws codes of a fixed length uniformly from the alphabet.
// The record id is ignored, so record volume and ordering stay hidden;
// uniqueness is left to the store's constraint.
type Random struct {
	length int
}

func NewRandom(length int) *Random {
	return &Random{length: length}
}

func (g *Random) Generate(_ int64) (string, error) {
	const op = "shortcode.Random.Generate"

	if g.length <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate nanoid: %w", op, err)
	}

	return code, nil
}

// Sequential encodes the record id itself, padded to a minimum length.
// Distinct ids always give distinct codes.
type Sequential struct {
	minLength int
}

func NewSequential(minLength int) *Sequential {
	return &Sequential{minLength: minLength}
}

func (g *Sequential) Generate(id int64) (string, error) {
	const op = "shortcode.Sequential.Generate"

	if g.minLength <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	if id < 0 {
		return "", fmt.Errorf("%s: negative id %d", op, id)
	}

	return Pad(Encode(uint64(id)), g.minLength), nil
}

// New returns the generator registered under strategy.
func New(strategy string, length int) (Generator, error) {
	switch strategy {
	case StrategyRandom:
		return NewRandom(length), nil
	case StrategySequential:
		return NewSequential(length), nil
	default:
		return nil, fmt.Errorf("shortcode.New: unknown strategy %q", strategy)
	}
}
