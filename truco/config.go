package truco

import (
	"fmt"
	"io"
)

const (
	DefaultStartingLives = 3
	DefaultTimeLimitMs   = int64(3_600_000)

	MinPlayers = 2
	MaxPlayers = 10
)

// Config is per-game configuration, fixed at start.
type Config struct {
	StartingLives int
	TimeLimitMs   int64

	// Entropy drives the shuffle; nil means crypto/rand. Tests inject a
	// deterministic reader.
	Entropy io.Reader
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.StartingLives == 0 {
		out.StartingLives = DefaultStartingLives
	}
	if out.TimeLimitMs == 0 {
		out.TimeLimitMs = DefaultTimeLimitMs
	}
	return out
}

func (c Config) validate() error {
	if c.StartingLives < 1 {
		return fmt.Errorf("StartingLives must be >= 1")
	}
	if c.TimeLimitMs < 0 {
		return fmt.Errorf("TimeLimitMs must be >= 0")
	}
	return nil
}
