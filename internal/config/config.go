// Package config loads the build-time configuration that selects queue
// mode, numeric mode, and the op-step safety ceiling (spec.md §5, §9 —
// ambient configuration the execution engine itself does not specify a
// format for).
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yeatsec/LoihiLSD/internal/chip"
)

// Config is the YAML-backed build configuration for one simulation run.
type Config struct {
	// QueueMode selects "fifo" or "priority" for every queue in the
	// fabric (spec.md §4.2 "construction-time mode").
	QueueMode string `yaml:"queue_mode"`

	// QueueCapacity bounds every router input queue and core in/out
	// buffer (spec.md §4.1).
	QueueCapacity int `yaml:"queue_capacity"`

	// NumericMode selects "float" or "fixed" (spec.md §4.4 "NumericMode
	// plug-ins").
	NumericMode string `yaml:"numeric_mode"`

	// OpStepCeiling bounds the inner op-step loop per timestep; exceeding
	// it is a programming error (spec.md §5).
	OpStepCeiling int `yaml:"op_step_ceiling"`

	// SampleUtilization enables router utilization snapshots during the
	// router ("tic") phase of each op-step (spec.md §4.3, §4.6).
	SampleUtilization bool `yaml:"sample_utilization"`
}

// Default returns the configuration spec.md §8's worked scenarios use
// unless a file overrides it.
func Default() Config {
	return Config{
		QueueMode:         "fifo",
		QueueCapacity:     chip.DefaultFIFOCapacity,
		NumericMode:       "float",
		OpStepCeiling:     1 << 20,
		SampleUtilization: false,
	}
}

// Load reads YAML configuration from r, starting from Default() so
// every field has a sane value even in a partial file.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile opens path and loads configuration from it.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: open")
	}
	defer f.Close()
	return Load(f)
}

// Validate rejects a configuration the chip builder could not use.
func (c Config) Validate() error {
	switch c.QueueMode {
	case "fifo", "priority":
	default:
		return errors.Errorf("config: queue_mode must be fifo or priority, got %q", c.QueueMode)
	}
	switch c.NumericMode {
	case "float", "fixed":
	default:
		return errors.Errorf("config: numeric_mode must be float or fixed, got %q", c.NumericMode)
	}
	if c.QueueCapacity < 1 {
		return errors.Errorf("config: queue_capacity must be >= 1, got %d", c.QueueCapacity)
	}
	if c.OpStepCeiling < 1 {
		return errors.Errorf("config: op_step_ceiling must be >= 1, got %d", c.OpStepCeiling)
	}
	return nil
}

// Mode resolves the configured queue mode to its chip.Mode value.
func (c Config) Mode() chip.Mode {
	if c.QueueMode == "priority" {
		return chip.ModePriority
	}
	return chip.ModeFIFO
}

// Numeric resolves the configured numeric mode to its chip.NumericMode
// value.
func (c Config) Numeric() chip.NumericMode {
	if c.NumericMode == "fixed" {
		return chip.FixedMode{}
	}
	return chip.FloatMode{}
}
