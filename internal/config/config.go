// Package config holds daemon configuration: the timing preset selected by
// mode plus hardware wiring, loaded from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/heat-timer/internal/adc"
	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/gpio"
	"github.com/sweeney/heat-timer/internal/indicator"
)

// ADC backends.
const (
	BackendIIO    = "iio"
	BackendSerial = "serial"
)

// Config represents the daemon configuration.
type Config struct {
	Mode      Mode            `yaml:"mode"`
	Scan      ScanConfig      `yaml:"scan"`
	Buttons   []GroupConfig   `yaml:"buttons"`
	ADC       ADCConfig       `yaml:"adc"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Indicator IndicatorConfig `yaml:"indicator"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// ScanConfig contains keypad polling parameters.
type ScanConfig struct {
	Period time.Duration `yaml:"period"`
}

// GroupConfig is one analog channel and its button bands, checked in order.
type GroupConfig struct {
	Channel int          `yaml:"channel"`
	Bands   []BandConfig `yaml:"bands"`
}

// BandConfig is the open interval (low, high) identifying a button.
type BandConfig struct {
	Button string `yaml:"button"`
	Low    int    `yaml:"low"`
	High   int    `yaml:"high"`
}

// ADCConfig selects and configures the analog sample source.
type ADCConfig struct {
	Backend    string        `yaml:"backend"` // "iio" or "serial"
	IIODevice  string        `yaml:"iio_device"`
	SerialPort string        `yaml:"serial_port"`
	BaudRate   int           `yaml:"baud_rate"`
	MaxAge     time.Duration `yaml:"max_age"` // serial samples older than this are ignored
}

// GPIOConfig contains output line wiring.
type GPIOConfig struct {
	Chip    string    `yaml:"chip"`
	Relay   PinConfig `yaml:"relay"`
	JobLED  PinConfig `yaml:"job_led"`
	HeatLED PinConfig `yaml:"heat_led"`
}

// PinConfig is one output line.
type PinConfig struct {
	Pin       int  `yaml:"pin"`
	ActiveLow bool `yaml:"active_low"`
}

// IndicatorConfig contains the running-job pulse timing.
type IndicatorConfig struct {
	PulsePeriod time.Duration `yaml:"pulse_period"`
	PulseWidth  time.Duration `yaml:"pulse_width"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration of the reference board in production mode.
func Default() *Config {
	return &Config{
		Mode: ModeProduction,
		Scan: ScanConfig{Period: 200 * time.Millisecond},
		Buttons: []GroupConfig{
			{Channel: adc.DefaultChannelA, Bands: []BandConfig{
				{Button: "program1", Low: 1800, High: 2100},
				{Button: "program2", Low: 2500, High: 2800},
				{Button: "program3", Low: 3150, High: 3450},
			}},
			{Channel: adc.DefaultChannelB, Bands: []BandConfig{
				{Button: "program4", Low: 1800, High: 2100},
				{Button: "reset", Low: 2500, High: 2800},
			}},
		},
		ADC: ADCConfig{
			Backend:   BackendIIO,
			IIODevice: adc.DefaultIIODevice,
			BaudRate:  adc.DefaultBaudRate,
			MaxAge:    adc.DefaultMaxAge,
		},
		GPIO: GPIOConfig{
			Chip:    gpio.DefaultChip,
			Relay:   PinConfig{Pin: gpio.DefaultPinRelay},
			JobLED:  PinConfig{Pin: gpio.DefaultPinJobLED, ActiveLow: true},
			HeatLED: PinConfig{Pin: gpio.DefaultPinHeatLED, ActiveLow: true},
		},
		Indicator: IndicatorConfig{
			PulsePeriod: indicator.DefaultPulsePeriod,
			PulseWidth:  indicator.DefaultPulseWidth,
		},
		MQTT: MQTTConfig{
			ClientID:  "heat-timer",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist the
// defaults are returned; keys missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := normalizeDurations(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := doc.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ensureDefaults replaces zero values written explicitly in the file.
// MQTT heartbeat, MQTT broker and HTTP address keep zero: it means disabled.
// The mode is normalized the way --mode is; an unknown one is left for
// Validate to report.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if m, err := ParseMode(string(c.Mode)); err == nil {
		c.Mode = m
	}
	if c.Scan.Period == 0 {
		c.Scan.Period = def.Scan.Period
	}
	if len(c.Buttons) == 0 {
		c.Buttons = def.Buttons
	}
	if c.ADC.Backend == "" {
		c.ADC.Backend = def.ADC.Backend
	}
	if c.ADC.IIODevice == "" {
		c.ADC.IIODevice = def.ADC.IIODevice
	}
	if c.ADC.BaudRate == 0 {
		c.ADC.BaudRate = def.ADC.BaudRate
	}
	if c.ADC.MaxAge == 0 {
		c.ADC.MaxAge = def.ADC.MaxAge
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.Indicator.PulsePeriod == 0 {
		c.Indicator.PulsePeriod = def.Indicator.PulsePeriod
	}
	if c.Indicator.PulseWidth == 0 {
		c.Indicator.PulseWidth = def.Indicator.PulseWidth
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if _, err := TimingFor(c.Mode); err != nil {
		return err
	}
	if c.Scan.Period <= 0 {
		return fmt.Errorf("scan period must be positive, got %v", c.Scan.Period)
	}
	if _, err := c.Groups(); err != nil {
		return err
	}
	switch c.ADC.Backend {
	case BackendIIO:
	case BackendSerial:
		if c.ADC.SerialPort == "" {
			return fmt.Errorf("adc backend %q requires serial_port", BackendSerial)
		}
	default:
		return fmt.Errorf("unknown adc backend %q", c.ADC.Backend)
	}
	pins := map[int]string{}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"relay", c.GPIO.Relay.Pin},
		{"job_led", c.GPIO.JobLED.Pin},
		{"heat_led", c.GPIO.HeatLED.Pin},
	} {
		if p.pin < 0 {
			return fmt.Errorf("gpio %s: negative pin %d", p.name, p.pin)
		}
		if other, dup := pins[p.pin]; dup {
			return fmt.Errorf("gpio %s and %s share pin %d", other, p.name, p.pin)
		}
		pins[p.pin] = p.name
	}
	if c.Indicator.PulseWidth >= c.Indicator.PulsePeriod {
		return fmt.Errorf("indicator pulse width %v must be shorter than period %v",
			c.Indicator.PulseWidth, c.Indicator.PulsePeriod)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt heartbeat must not be negative, got %v", c.MQTT.Heartbeat)
	}
	return nil
}

// Timing returns the preset for the configured mode.
func (c *Config) Timing() (Timing, error) {
	return TimingFor(c.Mode)
}

// Groups converts the button bands into classifier groups. Each button may
// be wired to only one band.
func (c *Config) Groups() ([]button.Group, error) {
	seen := make(map[button.ID]bool)
	groups := make([]button.Group, 0, len(c.Buttons))
	for _, gc := range c.Buttons {
		g := button.Group{Channel: gc.Channel}
		for _, b := range gc.Bands {
			id, err := button.ParseID(b.Button)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", gc.Channel, err)
			}
			if seen[id] {
				return nil, fmt.Errorf("button %s configured twice", id)
			}
			seen[id] = true
			g.Thresholds = append(g.Thresholds, button.Threshold{ID: id, Low: b.Low, High: b.High})
		}
		groups = append(groups, g)
	}
	if _, err := button.NewClassifier(groups); err != nil {
		return nil, err
	}
	return groups, nil
}
