package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
	"github.com/cwbudde/shadowcast/internal/store"
)

var (
	fgPath       string
	bgPath       string
	depthPath    string
	outPath      string
	outFormat    string
	saveRender   bool
	renderData   string
	renderLights lightFlags
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Composite a foreground onto a background with a cast shadow",
	Long: `Scales the foreground onto the background, casts a layered shadow from
the configured light and writes the composite. The CSS drop-shadow that
approximates the same light is printed to stdout.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&fgPath, "fg", "", "Foreground image with transparency (required)")
	renderCmd.Flags().StringVar(&bgPath, "bg", "", "Background image (required)")
	renderCmd.Flags().StringVar(&depthPath, "depth", "", "Optional depth map of the background")
	renderCmd.Flags().StringVar(&outPath, "out", "", "Output image path (format from extension)")
	renderCmd.Flags().StringVar(&outFormat, "format", "", "Force output format: png, webp")
	renderCmd.Flags().BoolVar(&saveRender, "save", false, "Also store the render in the data directory")
	renderCmd.Flags().StringVar(&renderData, "data-dir", "", "Data directory for --save")
	renderLights.register(renderCmd, true)

	renderCmd.MarkFlagRequired("fg")
	renderCmd.MarkFlagRequired("bg")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	flags := config.Flags{Output: outPath, Format: outFormat, DataDir: renderData}
	renderLights.apply(cmd, &flags)
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	in, err := loadInputs(fgPath, bgPath, depthPath, cfg.Depth.SkipOnError)
	if err != nil {
		return err
	}

	slog.Info("Rendering",
		"foreground", fgPath,
		"background", bgPath,
		"depth", depthPath != "",
		"light", cfg.Light,
		"layers", cfg.Layers,
	)

	res, err := shadow.Synthesize(cmd.Context(), in, cfg.Params())
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if res == nil {
		return errors.New("foreground and background are required")
	}

	if err := raster.SaveAs(cfg.Output.Path, res.Composite, cfg.OutputFormat()); err != nil {
		return err
	}

	slog.Info("Render complete",
		"out", cfg.Output.Path,
		"elapsed", res.Elapsed,
		"depth_applied", res.DepthApplied,
		"placement", res.Placement,
	)

	if saveRender {
		st, err := store.NewFSStore(cfg.Server.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create render store: %w", err)
		}
		rec := store.NewRecord(uuid.New().String(), fgPath, bgPath, depthPath, res)
		if err := store.SaveRender(st, rec, res.Composite); err != nil {
			return err
		}
		fmt.Printf("Saved render %s\n", rec.ID)
	}

	fmt.Printf("Wrote %s (%dx%d, %s)\n", cfg.Output.Path, res.Composite.Width, res.Composite.Height, res.Elapsed.Round(time.Millisecond))
	fmt.Println(res.DropShadow)
	return nil
}

// loadInputs decodes the input rasters. A depth map that cannot be read is
// dropped when skipBadDepth is set.
func loadInputs(fg, bg, depth string, skipBadDepth bool) (shadow.Inputs, error) {
	fgBuf, err := raster.Load(fg)
	if err != nil {
		return shadow.Inputs{}, fmt.Errorf("failed to load foreground: %w", err)
	}
	bgBuf, err := raster.Load(bg)
	if err != nil {
		return shadow.Inputs{}, fmt.Errorf("failed to load background: %w", err)
	}

	in := shadow.Inputs{Foreground: fgBuf, Background: bgBuf}
	if depth != "" {
		depthBuf, err := raster.Load(depth)
		switch {
		case err == nil:
			in.Depth = depthBuf
		case skipBadDepth:
			slog.Warn("Ignoring unreadable depth map", "path", depth, "error", err)
		default:
			return shadow.Inputs{}, fmt.Errorf("failed to load depth map: %w", err)
		}
	}
	return in, nil
}
