// Package config holds the runtime configuration for the kaiku tracer.
// Configuration is resolved from defaults, an optional YAML or JSON
// file, and KAIKU_* environment variables, in that order.
package config

import "fmt"

// Context strategies for the deduplication index.
const (
	// ContextChecksum keys dedup decisions on a rolling checksum of
	// the scope stack. O(1) per lookup, can collide for stacks with
	// equal alternating sums.
	ContextChecksum = "checksum"

	// ContextExact keys dedup decisions on the full ordered scope
	// stack. Collision free, O(depth) per lookup.
	ContextExact = "exact"
)

// Gate policies for multi-threaded traced programs.
const (
	// GateAll admits every calling thread.
	GateAll = "all"

	// GateLeader admits only the first thread that calls into the
	// engine, keeping the scope stack single-writer under fork-join
	// parallelism.
	GateLeader = "leader"
)

// DefaultOutputPath is where save writes when no path is configured.
const DefaultOutputPath = "kaiku_trace.json"

// Config controls the trace engine.
type Config struct {
	// OutputPath is the trace file written by save and at process
	// exit. The extension selects compression (.gz, .zst, .sz, .lz4).
	OutputPath string `yaml:"output_path" json:"output_path" mapstructure:"output_path"`

	// ContextStrategy is ContextChecksum or ContextExact.
	ContextStrategy string `yaml:"context_strategy" json:"context_strategy" mapstructure:"context_strategy"`

	// Gate is GateAll or GateLeader.
	Gate string `yaml:"gate" json:"gate" mapstructure:"gate"`

	// MaxEvents caps the event log; 0 means unlimited. Events past
	// the cap are dropped, not rotated.
	MaxEvents int `yaml:"max_events" json:"max_events" mapstructure:"max_events"`

	// SaveOnExit writes the trace when the engine is torn down.
	SaveOnExit bool `yaml:"save_on_exit" json:"save_on_exit" mapstructure:"save_on_exit"`

	// Debug enables verbose engine logging to stderr.
	Debug bool `yaml:"debug" json:"debug" mapstructure:"debug"`

	// LogEvery emits a progress line every N recorded events.
	LogEvery int `yaml:"log_every" json:"log_every" mapstructure:"log_every"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		OutputPath:      DefaultOutputPath,
		ContextStrategy: ContextChecksum,
		Gate:            GateLeader,
		MaxEvents:       0,
		SaveOnExit:      true,
		Debug:           false,
		LogEvery:        1_000_000,
	}
}

// ApplyDefaults fills zero-valued fields that have non-zero defaults.
// Boolean fields keep their explicit values.
func (c *Config) ApplyDefaults() {
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath
	}
	if c.ContextStrategy == "" {
		c.ContextStrategy = ContextChecksum
	}
	if c.Gate == "" {
		c.Gate = GateLeader
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1_000_000
	}
}

// Validate checks the configuration and returns ValidationErrors
// describing every problem found.
func (c *Config) Validate() error {
	var errors []ValidationError

	if c.OutputPath == "" {
		errors = append(errors, ValidationError{
			Field:      "output_path",
			Message:    "output path cannot be empty",
			Suggestion: fmt.Sprintf("use %q or set KAIKU_OUTPUT_PATH", DefaultOutputPath),
		})
	}

	switch c.ContextStrategy {
	case ContextChecksum, ContextExact:
	default:
		errors = append(errors, ValidationError{
			Field:        "context_strategy",
			Message:      fmt.Sprintf("unknown context strategy '%s'", c.ContextStrategy),
			Suggestion:   "use 'checksum' for speed or 'exact' for collision-free contexts",
			CurrentValue: c.ContextStrategy,
			ValidValues:  []string{ContextChecksum, ContextExact},
		})
	}

	switch c.Gate {
	case GateAll, GateLeader:
	default:
		errors = append(errors, ValidationError{
			Field:        "gate",
			Message:      fmt.Sprintf("unknown gate policy '%s'", c.Gate),
			Suggestion:   "use 'leader' for parallel programs or 'all' for single-threaded ones",
			CurrentValue: c.Gate,
			ValidValues:  []string{GateAll, GateLeader},
		})
	}

	if c.MaxEvents < 0 {
		errors = append(errors, ValidationError{
			Field:        "max_events",
			Message:      "max_events cannot be negative",
			Suggestion:   "use 0 for an unlimited event log",
			CurrentValue: c.MaxEvents,
		})
	}

	if c.LogEvery <= 0 {
		errors = append(errors, ValidationError{
			Field:        "log_every",
			Message:      "log_every must be positive",
			Suggestion:   "use the default of 1000000",
			CurrentValue: c.LogEvery,
		})
	}

	if len(errors) > 0 {
		return NewValidationErrors(errors)
	}
	return nil
}
