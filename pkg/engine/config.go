package engine

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

// Frequencies valid for RunConfig.Frequency.
var validFrequencies = map[string]bool{
	"daily": true, "weekly": true, "monthly": true, "quarterly": true, "yearly": true,
}

// Valid correlation_method values; anything else clamps to "category".
var validCorrelationMethods = map[string]bool{"none": true, "category": true}

const (
	defaultFrequency         = "weekly"
	defaultNSimulations      = 5000
	minNSimulations          = 100
	maxNSimulations          = 50000
	defaultCorrelationMethod = "category"
	defaultSeed              = 42
)

// RunConfig is the run configuration recognised by Run.
type RunConfig struct {
	ProjectID         string     `yaml:"project_id"`
	DataDate          time.Time  `yaml:"data_date"`
	Frequency         string     `yaml:"frequency"`
	Horizon           *time.Time `yaml:"horizon"`
	NSimulations      int        `yaml:"n_simulations"`
	EnableCorrelation *bool      `yaml:"enable_correlation"`
	CorrelationMethod string     `yaml:"correlation_method"`
	Seed              int64      `yaml:"seed"`
	Workers           int        `yaml:"workers"`
}

// Enabled reports whether correlation is on; the default is true, so a
// nil EnableCorrelation (unset in config) is treated as enabled.
func (c RunConfig) Enabled() bool {
	return c.EnableCorrelation == nil || *c.EnableCorrelation
}

// withDefaults returns a copy of c with every unset or invalid option
// replaced by its default, and n_simulations clamped to
// [minNSimulations, maxNSimulations], rather than rejected, so a
// typo'd or missing config field degrades gracefully instead of failing
// the run.
func (c RunConfig) withDefaults() RunConfig {
	out := c
	if out.Frequency == "" || !validFrequencies[out.Frequency] {
		out.Frequency = defaultFrequency
	}
	if out.NSimulations == 0 {
		out.NSimulations = defaultNSimulations
	}
	if out.NSimulations < minNSimulations {
		out.NSimulations = minNSimulations
	}
	if out.NSimulations > maxNSimulations {
		out.NSimulations = maxNSimulations
	}
	if out.CorrelationMethod == "" || !validCorrelationMethods[out.CorrelationMethod] {
		out.CorrelationMethod = defaultCorrelationMethod
	}
	if out.Seed == 0 {
		out.Seed = defaultSeed
	}
	if out.Horizon != nil && out.Horizon.Before(out.DataDate) {
		out.Horizon = nil // invalid override, derive the horizon instead
	}
	return out
}

// LoadConfig reads a YAML run configuration from path with
// ioutil.ReadFile + yaml.Unmarshal. Unset fields stay at their zero
// value; Run fills them in via withDefaults.
func LoadConfig(path string) (RunConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
