// Package envconfig reads bound settings from VRBOUND_* environment
// variables. Invalid values are logged and replaced by their defaults.
package envconfig

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/vrbound/internal/renyi"
)

// Var returns an environment variable with surrounding spaces and quotes
// removed.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the slog level. VRBOUND_DEBUG=1 (or true) selects Debug;
// an integer n selects slog.Level(-4n).
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("VRBOUND_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Float returns a function reading a float64 with a default.
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			f, err := strconv.ParseFloat(s, 64)
			if err == nil {
				return f
			}
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		}
		return defaultValue
	}
}

// Int returns a function reading an int64 with a default.
func Int(key string, defaultValue int64) func() int64 {
	return func() int64 {
		if s := Var(key); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				return n
			}
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		}
		return defaultValue
	}
}

var (
	// Alpha is the Rényi α. Configurable via VRBOUND_ALPHA.
	Alpha = Float("VRBOUND_ALPHA", renyi.DefaultConfig().Alpha)
	// Seed seeds the sample strategy; negative means random. Configurable via VRBOUND_SEED.
	Seed = Int("VRBOUND_SEED", -1)
)

// K returns the importance sample count. Configurable via VRBOUND_K.
// Non-positive values fall back to the default.
func K() int {
	def := renyi.DefaultConfig().K
	k := Int("VRBOUND_K", int64(def))()
	if k <= 0 {
		slog.Warn("invalid environment variable, using default", "key", "VRBOUND_K", "value", k, "default", def)
		return def
	}
	return int(k)
}

// Strategy returns the reduction strategy. Configurable via VRBOUND_STRATEGY.
func Strategy() renyi.Strategy {
	def := renyi.DefaultConfig().Strategy
	s := Var("VRBOUND_STRATEGY")
	if s == "" {
		return def
	}
	strategy, err := renyi.ParseStrategy(s)
	if err != nil {
		slog.Warn("invalid environment variable, using default", "key", "VRBOUND_STRATEGY", "value", s, "default", def)
		return def
	}
	return strategy
}

// BoundConfig assembles a renyi.Config from the environment. A
// non-negative VRBOUND_SEED gives the config a source seeded with it.
func BoundConfig() renyi.Config {
	return renyi.Config{
		Alpha:    Alpha(),
		K:        K(),
		Strategy: Strategy(),
		Rand:     SeededRand(Seed()),
	}
}

// SeededRand returns a source seeded with seed, or nil for a negative seed
// so that each bound evaluation draws fresh randomness.
func SeededRand(seed int64) *rand.Rand {
	if seed < 0 {
		return nil
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // Reproducible sample draws
}

// EnvVar describes one environment variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"VRBOUND_DEBUG":    {"VRBOUND_DEBUG", LogLevel(), "Show additional debug information (e.g. VRBOUND_DEBUG=1)"},
		"VRBOUND_ALPHA":    {"VRBOUND_ALPHA", Alpha(), "Rényi alpha; values within 1e-3 of 1 give the ELBO (default 0.5)"},
		"VRBOUND_K":        {"VRBOUND_K", K(), "Importance samples per observation (default 5)"},
		"VRBOUND_STRATEGY": {"VRBOUND_STRATEGY", Strategy(), "Reduction: full_bound, sample or max (default full_bound)"},
		"VRBOUND_SEED":     {"VRBOUND_SEED", Seed(), "Seed for the sample strategy, -1 for random (default -1)"},
	}
}

// Values returns every variable's current value as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
