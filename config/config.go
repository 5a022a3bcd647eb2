// Package config holds the configuration of the constant velocity tracking simulation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the simulation configuration.
type Config struct {
	// Steps is the number of simulation steps
	Steps int `yaml:"steps"`
	// Dt is the sampling period
	Dt float64 `yaml:"dt"`
	// Dims is the number of position dimensions
	Dims int `yaml:"dims"`
	// Seed seeds all noise sources; zero seeds them from current time
	Seed uint64 `yaml:"seed"`

	// InitVelocity is the true initial velocity, one value per dimension
	InitVelocity []float64 `yaml:"init_velocity"`
	// InitCovScale scales the identity initial state covariance
	InitCovScale float64 `yaml:"init_cov_scale"`

	Noise NoiseConfig `yaml:"noise"`

	// Plot is path of the output plot; empty disables plotting
	Plot string `yaml:"plot"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// NoiseConfig configures process and measurement noise.
type NoiseConfig struct {
	// Process is variance of the white acceleration driving the system
	Process float64 `yaml:"process"`
	// Measurement is variance of the position measurement noise
	Measurement float64 `yaml:"measurement"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Steps:        100,
		Dt:           0.1,
		Dims:         2,
		Seed:         1,
		InitVelocity: []float64{1.0, 0.5},
		InitCovScale: 1.0,
		Noise: NoiseConfig{
			Process:     0.01,
			Measurement: 0.25,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ValidLogLevels lists all supported log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("invalid number of steps: %d", c.Steps)
	}

	if c.Dt <= 0 {
		return fmt.Errorf("invalid sampling period: %v", c.Dt)
	}

	if c.Dims <= 0 {
		return fmt.Errorf("invalid number of dimensions: %d", c.Dims)
	}

	if len(c.InitVelocity) != c.Dims {
		return fmt.Errorf("initial velocity has %d values, expected %d", len(c.InitVelocity), c.Dims)
	}

	if c.InitCovScale <= 0 {
		return fmt.Errorf("invalid initial covariance scale: %v", c.InitCovScale)
	}

	if c.Noise.Process < 0 {
		return fmt.Errorf("invalid process noise variance: %v", c.Noise.Process)
	}

	// zero measurement noise leaves nothing to filter
	if c.Noise.Measurement <= 0 {
		return fmt.Errorf("invalid measurement noise variance: %v", c.Noise.Measurement)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.LogLevel == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.LogLevel, ValidLogLevels)
	}

	return nil
}
