package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/shadowcast/internal/fit"
	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
)

// DefaultFile is the config file name looked up when none is given.
const DefaultFile = "shadowcast.yaml"

// Config represents the optional shadowcast.yaml configuration.
type Config struct {
	Light  shadow.Light `yaml:"light"`
	Layers int          `yaml:"layers"`
	Depth  DepthConfig  `yaml:"depth"`
	Output OutputConfig `yaml:"output"`
	Server ServerConfig `yaml:"server"`
	Fit    FitConfig    `yaml:"fit"`
}

// DepthConfig controls how unusable depth maps are handled.
type DepthConfig struct {
	SkipOnError bool `yaml:"skip_on_error"`
}

// OutputConfig selects where and how composites are written.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr    string `yaml:"addr,omitempty"`
	DataDir string `yaml:"data_dir,omitempty"`
}

// FitConfig contains light estimation settings.
type FitConfig struct {
	Iters       int   `yaml:"iters"`
	Pop         int   `yaml:"pop"`
	Seed        int64 `yaml:"seed"`
	WorkingSize int   `yaml:"working_size"`
	// Rounds of box-narrowing search; later rounds stop once the cost stalls
	Rounds int    `yaml:"rounds"`
	Cost   string `yaml:"cost,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Light:  shadow.DefaultLight(),
		Layers: shadow.DefaultLayers,
		Depth:  DepthConfig{SkipOnError: true},
		Output: OutputConfig{Format: string(raster.FormatPNG), Path: "shadow-composite.png"},
		Server: ServerConfig{Addr: ":8080", DataDir: "./data"},
		Fit:    FitConfig{Iters: 60, Pop: 20, Seed: 42, WorkingSize: fit.DefaultWorkingSize, Rounds: 2, Cost: "mse"},
	}
}

// Load reads a YAML config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional reads path if present and returns the defaults otherwise.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Flags holds CLI flag values that override config file settings.
// Pointer fields are nil when the flag was not given, since zero is a
// meaningful value for them.
type Flags struct {
	Angle     *float64
	Elevation *float64
	Intensity *float64
	Layers    *int

	Output  string
	Format  string
	Addr    string
	DataDir string

	Iters       int
	Pop         int
	Seed        *int64
	WorkingSize *int
	Rounds      int
	Cost        string
}

// Resolve applies flag overrides, then fills empty fields with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.Angle != nil {
		c.Light.Angle = *flags.Angle
	}
	if flags.Elevation != nil {
		c.Light.Elevation = *flags.Elevation
	}
	if flags.Intensity != nil {
		c.Light.Intensity = *flags.Intensity
	}
	if flags.Layers != nil {
		c.Layers = *flags.Layers
	}
	if flags.Output != "" {
		c.Output.Path = flags.Output
		// The extension decides unless a format is forced
		if format, err := raster.FormatFromPath(flags.Output); err == nil && flags.Format == "" {
			c.Output.Format = string(format)
		}
	}
	if flags.Format != "" {
		c.Output.Format = flags.Format
	}
	if flags.Addr != "" {
		c.Server.Addr = flags.Addr
	}
	if flags.DataDir != "" {
		c.Server.DataDir = flags.DataDir
	}
	if flags.Iters > 0 {
		c.Fit.Iters = flags.Iters
	}
	if flags.Pop > 0 {
		c.Fit.Pop = flags.Pop
	}
	if flags.Seed != nil {
		c.Fit.Seed = *flags.Seed
	}
	if flags.WorkingSize != nil {
		c.Fit.WorkingSize = *flags.WorkingSize
	}
	if flags.Rounds > 0 {
		c.Fit.Rounds = flags.Rounds
	}
	if flags.Cost != "" {
		c.Fit.Cost = flags.Cost
	}

	def := Default()
	if c.Layers == 0 {
		c.Layers = def.Layers
	}
	if strings.TrimSpace(c.Output.Format) == "" {
		c.Output.Format = def.Output.Format
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		c.Output.Path = def.Output.Path
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = def.Server.DataDir
	}
	if c.Fit.Iters <= 0 {
		c.Fit.Iters = def.Fit.Iters
	}
	if c.Fit.Pop <= 0 {
		c.Fit.Pop = def.Fit.Pop
	}
}

// Validate rejects values the renderer cannot use.
func (c *Config) Validate() error {
	if c.Layers < 1 || c.Layers > shadow.MaxLayers {
		return fmt.Errorf("layers must be between 1 and %d, got %d", shadow.MaxLayers, c.Layers)
	}
	if c.Light.Elevation < 0 || c.Light.Elevation > 90 {
		return fmt.Errorf("light.elevation must be between 0 and 90, got %v", c.Light.Elevation)
	}
	if c.Light.Intensity < 0 || c.Light.Intensity > 1 {
		return fmt.Errorf("light.intensity must be between 0 and 1, got %v", c.Light.Intensity)
	}
	if _, err := raster.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Fit.WorkingSize < 0 {
		return fmt.Errorf("fit.working_size cannot be negative")
	}
	if c.Fit.Rounds < 0 {
		return fmt.Errorf("fit.rounds cannot be negative")
	}
	if _, err := fit.CostByName(c.Fit.Cost); err != nil {
		return fmt.Errorf("fit.cost: %w", err)
	}
	return nil
}

// Params returns the synthesis parameters described by the config.
func (c *Config) Params() shadow.Params {
	return shadow.Params{
		Light:        c.Light,
		Layers:       c.Layers,
		SkipBadDepth: c.Depth.SkipOnError,
	}
}

// FitOptions returns the light estimation options described by the config.
func (c *Config) FitOptions() fit.Options {
	cost, err := fit.CostByName(c.Fit.Cost)
	if err != nil {
		cost = fit.MSECost
	}
	return fit.Options{
		Layers:      c.Layers,
		WorkingSize: c.Fit.WorkingSize,
		Start:       c.Light,
		Cost:        cost,
		Rounds:      c.Fit.Rounds,
		Convergence: fit.DefaultConvergenceConfig(),
	}
}

// OutputFormat returns the parsed output format.
func (c *Config) OutputFormat() raster.Format {
	format, err := raster.ParseFormat(c.Output.Format)
	if err != nil {
		return raster.FormatPNG
	}
	return format
}
