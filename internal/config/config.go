// Package config loads printprep settings from a YAML file and fills
// in defaults for anything the file leaves unset.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks when --config is not given.
const DefaultPath = "printprep.yaml"

// Config mirrors the printprep.yaml layout.
type Config struct {
	// TargetSizeMm is the extent meshes are scaled to.
	TargetSizeMm float64 `yaml:"target_size_mm"`
	// OutputDir receives generated meshes.
	OutputDir string `yaml:"output_dir"`
	// AutoRepair and AutoScale toggle the pipeline steps.
	AutoRepair bool `yaml:"auto_repair"`
	AutoScale  bool `yaml:"auto_scale"`
	// Backend selects the default generation backend.
	Backend string `yaml:"backend"`
	// Verbose switches logging to debug output.
	Verbose bool `yaml:"verbose"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		TargetSizeMm: 100,
		OutputDir:    "outputs",
		AutoRepair:   true,
		AutoScale:    true,
		Backend:      "shapes",
	}
}

// Load reads the file at path and overlays it on the defaults. An
// empty path means DefaultPath, and a missing file there is fine;
// an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TargetSizeMm <= 0 {
		return fmt.Errorf("target_size_mm must be positive, got %v", c.TargetSizeMm)
	}
	switch c.Backend {
	case "shapes", "script":
		return nil
	default:
		return fmt.Errorf("unknown backend %q: must be shapes or script", c.Backend)
	}
}
