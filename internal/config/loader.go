package config

import (
	"fmt"
	"strconv"

	"github.com/mvo5/goconfigparser"
)

// LoadFile reads an ini-style override file and applies it on top of the
// named compiled preset, returning the merged result. Only the fields
// present in the file are overridden; everything else is inherited from
// the base preset. This is Mercury's on-disk configuration mechanism:
// presets are compiled in, but a station can tune carrier
// frequency, bandwidth, or code rate without a rebuild.
func LoadFile(path, baseName string) (Preset, error) {
	base, err := ByName(baseName)
	if err != nil {
		return Preset{}, err
	}

	cfg := goconfigparser.New()
	if err := cfg.ReadFile(path); err != nil {
		return Preset{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	const section = "preset"

	if v, err := cfg.Get(section, "carrier_freq"); err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return Preset{}, fmt.Errorf("config: carrier_freq: %w", perr)
		}
		base.CarrierFreq = f
	}
	if v, err := cfg.Get(section, "bandwidth"); err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return Preset{}, fmt.Errorf("config: bandwidth: %w", perr)
		}
		base.Bandwidth = f
	}
	if v, err := cfg.Get(section, "code_rate"); err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return Preset{}, fmt.Errorf("config: code_rate: %w", perr)
		}
		base.CodeRate = f
	}
	if v, err := cfg.Get(section, "preamble_nsymb"); err == nil {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return Preset{}, fmt.Errorf("config: preamble_nsymb: %w", perr)
		}
		base.PreambleNSymb = n
	}
	if v, err := cfg.Get(section, "name"); err == nil {
		base.Name = v
	}

	return base, nil
}
