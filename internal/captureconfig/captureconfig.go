// Package captureconfig loads the YAML configuration for the live capture
// command. It follows direwolf's deviceid.go: search a short list of
// candidate paths for the first one that exists, read it whole, and
// unmarshal with gopkg.in/yaml.v3 — retargeted from APRS tocalls.yaml onto
// this capture front-end's own settings.
package captureconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// searchLocations mirrors deviceid.go's search_locations: the working
// directory first, then a couple of conventional install locations.
var searchLocations = []string{
	"ec3krx.yaml",
	"/usr/local/etc/ec3krx.yaml",
	"/etc/ec3krx.yaml",
}

// Config is the live capture command's tunable settings. The sample
// threshold and the idle-break length are constants of package ec3k and
// are not settable here.
type Config struct {
	// AudioDevice names the portaudio input device to capture from; empty
	// selects the host API's default input device.
	AudioDevice string `yaml:"audio_device"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// LogDir is where daily-rotated telemetry CSV files are written. When
	// empty, LogFile is used instead for a single fixed-path log.
	LogDir string `yaml:"log_dir"`

	// LogFile is a single fixed telemetry log path, used when LogDir is
	// empty.
	LogFile string `yaml:"log_file"`

	// DeviceAllowList, when non-empty, restricts decoded records to these
	// device IDs; any other device's frames are still CRC-validated but
	// dropped before logging (§9 supplemented feature).
	DeviceAllowList []int `yaml:"device_allow_list"`

	// WaitForDevice, when set, names a udev subsystem to wait for before
	// opening the audio device (e.g. "sound"), for USB dongles that need a
	// moment to enumerate after being plugged in.
	WaitForDevice string `yaml:"wait_for_device"`
}

// DefaultConfig returns the settings used when no config file is found.
func DefaultConfig() Config {
	return Config{
		SampleRate: 96000,
		LogDir:     "ec3k-logs",
	}
}

// Load reads path when it is given, and otherwise searches searchLocations
// for the first file that exists, and parses it. An explicit path that
// doesn't exist is an error; searchLocations is not consulted for it.
// DefaultConfig values are used for any field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	candidates := searchLocations
	if path != "" {
		candidates = []string{path}
	}

	var data []byte
	var found string
	for _, loc := range candidates {
		b, err := os.ReadFile(loc)
		if err == nil {
			data, found = b, loc
			break
		}
	}

	if found == "" {
		if path != "" {
			return cfg, fmt.Errorf("captureconfig: %s: %w", path, os.ErrNotExist)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("captureconfig: parse %s: %w", found, err)
	}
	return cfg, nil
}
