package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
)

var (
	logLevel   string
	configPath string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shadowcast",
	Short: "Layered shadow synthesis for composited cut-outs",
	Long: `Shadowcast places a transparent foreground on a background and casts a
soft, multi-layer shadow from a directional light, optionally bent by a
depth map. It can also estimate the light from an existing composite and
serve renders over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "Config file (ignored when missing)")
}

// loadConfig reads the config file, applies flag overrides and validates
// the result.
func loadConfig(flags config.Flags) (*config.Config, error) {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Configuration resolved", "config", configPath, "light", cfg.Light, "layers", cfg.Layers)
	return cfg, nil
}

// lightFlags registers the light flags shared by render, describe and fit.
type lightFlags struct {
	angle     float64
	elevation float64
	intensity float64
	layers    int
}

func (lf *lightFlags) register(cmd *cobra.Command, withLayers bool) {
	def := config.Default()
	cmd.Flags().Float64Var(&lf.angle, "angle", def.Light.Angle, "Light direction in degrees (0 = from the left)")
	cmd.Flags().Float64Var(&lf.elevation, "elevation", def.Light.Elevation, "Light elevation in degrees (0-90)")
	cmd.Flags().Float64Var(&lf.intensity, "intensity", def.Light.Intensity, "Shadow intensity (0-1)")
	if withLayers {
		cmd.Flags().IntVar(&lf.layers, "layers", def.Layers, "Number of shadow layers")
	}
}

// apply copies explicitly given flags into f so unset flags keep the
// config file values.
func (lf *lightFlags) apply(cmd *cobra.Command, f *config.Flags) {
	if cmd.Flags().Changed("angle") {
		f.Angle = &lf.angle
	}
	if cmd.Flags().Changed("elevation") {
		f.Elevation = &lf.elevation
	}
	if cmd.Flags().Changed("intensity") {
		f.Intensity = &lf.intensity
	}
	if cmd.Flags().Lookup("layers") != nil && cmd.Flags().Changed("layers") {
		f.Layers = &lf.layers
	}
}
