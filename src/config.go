package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Runtime configuration for the SDR I/O core.
 *
 * Description:	The firmware kept these as a pile of globals selected
 *		partly at compile time.  Here they are one explicit
 *		structure handed to the component constructors, loadable
 *		from a YAML file with command-line overrides applied by
 *		the main program.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Driver selects the transport: "file", "limesdr" or "sxxcvr".
	Driver string `yaml:"driver"`

	// Carrier frequencies in Hz.  The SDR is tuned IF away from these
	// so the DDC lands the signal of interest at baseband.
	RXFrequency float64 `yaml:"rxFrequency"`
	TXFrequency float64 `yaml:"txFrequency"`

	// Gains in dB.
	RXGain float64 `yaml:"rxGain"`
	TXGain float64 `yaml:"txGain"`

	// Resampler filter length in baseband samples and cutoff as a
	// fraction of the baseband Nyquist frequency.
	FilterLength int     `yaml:"filterLength"`
	FilterCutoff float32 `yaml:"filterCutoff"`

	// How many I/Q blocks of latency budget to keep queued towards
	// the SDR.  Covers the driver's own buffering.
	LatencyBlocks int `yaml:"latencyBlocks"`

	// Observation side-channel.
	Monitor         bool   `yaml:"monitor"`
	MonitorEndpoint string `yaml:"monitorEndpoint"`

	// Host port.  Default is a pseudoterminal symlinked at
	// SerialSymlink; set SerialDevice to use a real UART instead.
	SerialDevice  string `yaml:"serialDevice"`
	SerialSymlink string `yaml:"serialSymlink"`

	// Optional GPIO output lines for PTT and the status LED,
	// e.g. to key an external amplifier.  Empty chip disables.
	GPIOChip string `yaml:"gpioChip"`
	PTTLine  int    `yaml:"pttLine"`
	LEDLine  int    `yaml:"ledLine"`

	// Directory for daily log files.  Empty logs to the console only.
	LogDir string `yaml:"logDir"`
}

func DefaultConfig() *Config {
	return &Config{
		Driver:          "file",
		RXFrequency:     434.0e6,
		TXFrequency:     434.0e6,
		RXGain:          50,
		TXGain:          30,
		FilterLength:    11,
		FilterCutoff:    0.5,
		LatencyBlocks:   8,
		MonitorEndpoint: MONITOR_ENDPOINT,
		SerialSymlink:   SERIAL_SYMLINK,
		PTTLine:         -1,
		LEDLine:         -1,
	}
}

// LoadConfig reads path over the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg = DefaultConfig()
	var data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
