// Package config loads the small YAML configuration cmd/bpmgrd starts
// from: listen address, target architecture, and log level.
package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Config is the top-level server configuration document.
type Config struct {
	// Listen is the address the debug server's wire protocol listens
	// on, e.g. "localhost:2345". Parsing/serving that protocol is out
	// of scope for this core; the field exists so cmd/bpmgrd has
	// somewhere to hand it off to.
	Listen string `yaml:"listen"`
	// Arch names the target architecture, "x86" or "arm". cmd/bpmgrd
	// only reports it; its session always uses the x86 managers.
	Arch string `yaml:"arch"`
	// LogLevel is a logrus level name ("debug", "info", "warn", ...).
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Listen:   "localhost:2345",
		Arch:     "x86",
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
