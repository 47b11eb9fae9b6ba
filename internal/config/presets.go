package config

import "sort"

// Presets are named variations of the default configuration. The
// inactivation presets use the alternative rates the protocol was also
// run with.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"fast-inact": func() *Config {
		cfg := DefaultConfig()
		cfg.Rates.Kinact = 1
		return cfg
	},
	"slow-inact": func() *Config {
		cfg := DefaultConfig()
		cfg.Rates.Kinact = 0.001
		return cfg
	},
	"no-calcium": func() *Config {
		cfg := DefaultConfig()
		cfg.Chi = 0
		return cfg
	},
	"quick": func() *Config {
		cfg := DefaultConfig()
		cfg.Steps = 20000
		cfg.Sweep.Samples = 200
		cfg.Sweep.Divisor = 60
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
