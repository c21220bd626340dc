package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Algorithm names accepted in channel configuration.
const (
	AlgorithmRamp = "ramp"
	AlgorithmSAR  = "sar"
)

// Disabled-state policies of the ramp generator.
const (
	PolicyZero = "zero"
	PolicyHold = "hold"
)

// Display units fed to the calibration unit.
const (
	UnitsDecimal    = "decimal"
	UnitsMillivolts = "millivolts"
)

// Limits of the converter parameters.
const (
	MinWidth          = 1
	MaxWidth          = 16
	MaxWindowExponent = 8
)

var (
	ErrWidth      = errors.New("sample width out of range")
	ErrWindow     = errors.New("window exponent out of range")
	ErrRate       = errors.New("tick rate and ramp frequency must be positive")
	ErrAlgorithm  = errors.New("unknown algorithm")
	ErrPolicy     = errors.New("unknown disabled policy")
	ErrUnits      = errors.New("unknown display units")
	ErrNoChannels = errors.New("no channels configured")
)

// Config represents the application configuration.
type Config struct {
	Converter   ConverterConfig   `yaml:"converter"`
	Channels    []ChannelConfig   `yaml:"channels"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Reference   ReferenceConfig   `yaml:"reference"`
	Mock        MockConfig        `yaml:"mock"`
	Simulation  SimulationConfig  `yaml:"simulation"`
}

// ConverterConfig contains the construction-time parameters shared by every channel.
type ConverterConfig struct {
	Width          int     `yaml:"width"`           // Sample width W in bits
	WindowExponent int     `yaml:"window_exponent"` // Moving average window is 2^k samples
	SettleTicks    int     `yaml:"settle_ticks"`    // SAR wait per bit
	TickRate       float64 `yaml:"tick_rate"`       // Hz
	RampFrequency  float64 `yaml:"ramp_frequency"`  // Hz, full sweeps per second
	DisabledPolicy string  `yaml:"disabled_policy"` // "zero" or "hold"
}

// ChannelConfig contains per-channel configuration.
type ChannelConfig struct {
	Name            string  `yaml:"name"`
	Algorithm       string  `yaml:"algorithm"`
	Disabled        bool    `yaml:"disabled"`
	InputMillivolts float64 `yaml:"input_millivolts"` // Mock front-end input voltage
}

// CalibrationConfig contains calibration parameters.
type CalibrationConfig struct {
	Units        string `yaml:"units"`         // Scaled output fed to the calibration unit
	TriggerTicks int    `yaml:"trigger_ticks"` // How long the trigger is held asserted
}

// ReferenceConfig describes the reference channel used as calibration ground truth.
type ReferenceConfig struct {
	Port            string        `yaml:"port"`
	BaudRate        int           `yaml:"baud_rate"`
	Mock            bool          `yaml:"mock"`
	MockMillivolts  float64       `yaml:"mock_millivolts"`
	MockPeriod      time.Duration `yaml:"mock_period"`
	ReadingsBufSize int           `yaml:"readings_buf_size"`
}

// MockConfig contains the analog front-end model parameters.
type MockConfig struct {
	FullScaleMillivolts float64 `yaml:"full_scale_millivolts"` // DAC output at the maximum code
	NoiseMillivolts     float64 `yaml:"noise_millivolts"`      // Comparator input noise amplitude
	DACTimeConstant     float64 `yaml:"dac_time_constant"`     // DAC settling time constant in ticks
}

// SimulationConfig contains runner parameters.
type SimulationConfig struct {
	Ticks      int64 `yaml:"ticks"`       // Ticks to run (0 = until cancelled)
	BufferSize int   `yaml:"buffer_size"` // Readings channel buffer
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Converter: ConverterConfig{
			Width:          8,
			WindowExponent: 2,
			SettleTicks:    1_000_000,
			TickRate:       100e6,
			RampFrequency:  1000,
			DisabledPolicy: PolicyZero,
		},
		Channels: []ChannelConfig{
			{Name: "ch0", Algorithm: AlgorithmRamp, InputMillivolts: 1650},
			{Name: "ch1", Algorithm: AlgorithmSAR, InputMillivolts: 1650},
		},
		Calibration: CalibrationConfig{
			Units:        UnitsDecimal,
			TriggerTicks: 4,
		},
		Reference: ReferenceConfig{
			Port:            "/dev/ttyACM0",
			BaudRate:        115200,
			Mock:            true,
			MockMillivolts:  1650,
			MockPeriod:      100 * time.Millisecond,
			ReadingsBufSize: 100,
		},
		Mock: MockConfig{
			FullScaleMillivolts: 3300,
			NoiseMillivolts:     0,
			DACTimeConstant:     4,
		},
		Simulation: SimulationConfig{
			Ticks:      0,
			BufferSize: 100,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values that cannot be elaborated.
// It does not modify the configuration.
func (c *Config) Validate() error {
	cv := &c.Converter
	if cv.Width < MinWidth || cv.Width > MaxWidth {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrWidth, cv.Width, MinWidth, MaxWidth)
	}
	if cv.WindowExponent < 0 || cv.WindowExponent > MaxWindowExponent {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrWindow, cv.WindowExponent, MaxWindowExponent)
	}
	if cv.TickRate <= 0 || cv.RampFrequency <= 0 {
		return fmt.Errorf("%w: tick_rate=%g ramp_frequency=%g", ErrRate, cv.TickRate, cv.RampFrequency)
	}
	switch cv.DisabledPolicy {
	case PolicyZero, PolicyHold:
	default:
		return fmt.Errorf("%w: %q", ErrPolicy, cv.DisabledPolicy)
	}
	switch c.Calibration.Units {
	case UnitsDecimal, UnitsMillivolts:
	default:
		return fmt.Errorf("%w: %q", ErrUnits, c.Calibration.Units)
	}
	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	for i, ch := range c.Channels {
		switch ch.Algorithm {
		case AlgorithmRamp, AlgorithmSAR:
		default:
			return fmt.Errorf("channel %d (%s): %w: %q", i, ch.Name, ErrAlgorithm, ch.Algorithm)
		}
	}
	return nil
}

// StepTicks returns the number of ticks per ramp increment:
// max(1, tick_rate / (ramp_frequency * 2^W)).
func (c *ConverterConfig) StepTicks() int {
	if c.RampFrequency <= 0 || c.Width < MinWidth || c.Width > MaxWidth {
		return 1
	}
	t := int(c.TickRate / (c.RampFrequency * float64(uint32(1)<<c.Width)))
	if t < 1 {
		return 1
	}
	return t
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Converter.Width == 0 {
		c.Converter.Width = def.Converter.Width
	}
	if c.Converter.SettleTicks == 0 {
		c.Converter.SettleTicks = def.Converter.SettleTicks
	}
	if c.Converter.SettleTicks < 1 {
		c.Converter.SettleTicks = 1
	}
	if c.Converter.TickRate == 0 {
		c.Converter.TickRate = def.Converter.TickRate
	}
	if c.Converter.RampFrequency == 0 {
		c.Converter.RampFrequency = def.Converter.RampFrequency
	}
	if c.Converter.DisabledPolicy == "" {
		c.Converter.DisabledPolicy = def.Converter.DisabledPolicy
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
	for i := range c.Channels {
		if c.Channels[i].Name == "" {
			c.Channels[i].Name = fmt.Sprintf("ch%d", i)
		}
		if c.Channels[i].Algorithm == "" {
			c.Channels[i].Algorithm = AlgorithmSAR
		}
	}

	if c.Calibration.Units == "" {
		c.Calibration.Units = def.Calibration.Units
	}
	if c.Calibration.TriggerTicks == 0 {
		c.Calibration.TriggerTicks = def.Calibration.TriggerTicks
	}

	if c.Reference.BaudRate == 0 {
		c.Reference.BaudRate = def.Reference.BaudRate
	}
	if c.Reference.MockPeriod == 0 {
		c.Reference.MockPeriod = def.Reference.MockPeriod
	}
	if c.Reference.ReadingsBufSize == 0 {
		c.Reference.ReadingsBufSize = def.Reference.ReadingsBufSize
	}

	if c.Mock.FullScaleMillivolts == 0 {
		c.Mock.FullScaleMillivolts = def.Mock.FullScaleMillivolts
	}
	if c.Mock.DACTimeConstant == 0 {
		c.Mock.DACTimeConstant = def.Mock.DACTimeConstant
	}

	if c.Simulation.BufferSize == 0 {
		c.Simulation.BufferSize = def.Simulation.BufferSize
	}
}
