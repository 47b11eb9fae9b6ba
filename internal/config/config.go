package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/protocol"
	"github.com/pyncx/ncx/internal/sweep"
)

const (
	DefaultDt         = 0.003
	DefaultSteps      = 150000
	DefaultIntegrator = "euler"
	DefaultWidth      = 10.0
	DefaultDPI        = 300
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Integrator   string  `yaml:"integrator"`
	Dt           float64 `yaml:"dt"`
	Steps        int     `yaml:"steps"`
	Chi          float64 `yaml:"chi"`
	HoldNa       bool    `yaml:"hold_na"`
	StrictBounds bool    `yaml:"strict_bounds"`

	Init  InitConfig `yaml:"init"`
	Rates ncx.Rates  `yaml:"rates"`
	// Protocol replaces the default fourteen-window schedule when set.
	Protocol []protocol.Window `yaml:"protocol,omitempty"`
	Sweep    sweep.Config      `yaml:"sweep"`
	Output   OutputConfig      `yaml:"output"`

	LogLevel string `yaml:"log_level"`
}

type InitConfig struct {
	F1 float64 `yaml:"f1"`
	F2 float64 `yaml:"f2"`
	F3 float64 `yaml:"f3"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
	// Plot width in inches; each figure keeps its own aspect ratio.
	Width float64 `yaml:"width"`
	DPI   int     `yaml:"dpi"`
	// TrajectoryEvery keeps every n-th step in the stored trajectory.
	TrajectoryEvery int `yaml:"trajectory_every"`
}

func DefaultConfig() *Config {
	occ := ncx.DefaultOccupancy()
	return &Config{
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		Chi:        protocol.DefaultChi,
		Init:       InitConfig{F1: occ.F1, F2: occ.F2, F3: occ.F3},
		Rates:      ncx.DefaultRates(),
		Sweep:      sweep.DefaultConfig(),
		Output: OutputConfig{
			Dir:             ".",
			Width:           DefaultWidth,
			DPI:             DefaultDPI,
			TrajectoryEvery: 10,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file on top of the defaults, so a file only needs to
// name what it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.Chi < 0 {
		return fmt.Errorf("%w: chi must be non-negative, got %g", ErrInvalidConfig, c.Chi)
	}
	if c.Output.TrajectoryEvery < 1 {
		return fmt.Errorf("%w: trajectory_every must be at least 1", ErrInvalidConfig)
	}
	if !c.Initial().InBounds() {
		return fmt.Errorf("%w: initial occupancy %v outside [0, 1]", ErrInvalidConfig, c.Initial())
	}
	if err := c.Rates.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Sweep.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) Initial() ncx.Occupancy {
	return ncx.Occupancy{F1: c.Init.F1, F2: c.Init.F2, F3: c.Init.F3}
}

func (c *Config) Schedule() protocol.Schedule {
	s := protocol.Default(c.Chi)
	if len(c.Protocol) > 0 {
		s.Windows = c.Protocol
	}
	s.HoldNa = c.HoldNa
	return s
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Steps:         c.Steps,
		ValidateState: true,
		StrictBounds:  c.StrictBounds,
	}
}

// Duration is the simulated time covered by Steps.
func (c *Config) Duration() float64 {
	return float64(c.Steps) * c.Dt
}
