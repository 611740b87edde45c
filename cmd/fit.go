package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
	"github.com/cwbudde/shadowcast/internal/fit"
	"github.com/cwbudde/shadowcast/internal/opt"
	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
	"github.com/cwbudde/shadowcast/internal/store"
)

var (
	fitFg       string
	fitBg       string
	fitDepth    string
	refPath     string
	fitOut      string
	fitDataDir  string
	iters       int
	popSize     int
	seed        int64
	workingSize int
	writeTrace  bool
	rounds      int
	costName    string
	fitLights   lightFlags
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Estimate the light that produced a reference composite",
	Long: `Searches angle, elevation and intensity with the mayfly optimizer so that
the synthesized composite matches the reference as closely as possible.
The light flags set the starting point the improvement is measured from.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&fitFg, "fg", "", "Foreground image with transparency (required)")
	fitCmd.Flags().StringVar(&fitBg, "bg", "", "Background image (required)")
	fitCmd.Flags().StringVar(&refPath, "ref", "", "Reference composite, same size as the background (required)")
	fitCmd.Flags().StringVar(&fitDepth, "depth", "", "Optional depth map of the background")
	fitCmd.Flags().StringVar(&fitOut, "out", "", "Render the estimated light to this path")
	fitCmd.Flags().StringVar(&fitDataDir, "data-dir", "", "Data directory for --trace")
	fitCmd.Flags().IntVar(&iters, "iters", 0, "Max iterations (default from config)")
	fitCmd.Flags().IntVar(&popSize, "pop", 0, "Population size (default from config)")
	fitCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	fitCmd.Flags().IntVar(&workingSize, "working-size", 0, "Longest background side used during the search, 0 = full size (default from config)")
	fitCmd.Flags().IntVar(&rounds, "rounds", 0, "Search rounds, each narrowing the box around the best light (default from config)")
	fitCmd.Flags().StringVar(&costName, "cost", "", "Cost function: mse, sad (default from config)")
	fitCmd.Flags().BoolVar(&writeTrace, "trace", false, "Write every evaluation to a JSONL trace in the data directory")
	fitLights.register(fitCmd, true)

	fitCmd.MarkFlagRequired("fg")
	fitCmd.MarkFlagRequired("bg")
	fitCmd.MarkFlagRequired("ref")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	flags := config.Flags{
		Iters:   iters,
		Pop:     popSize,
		Output:  fitOut,
		DataDir: fitDataDir,
		Rounds:  rounds,
		Cost:    costName,
	}
	if cmd.Flags().Changed("seed") {
		flags.Seed = &seed
	}
	if cmd.Flags().Changed("working-size") {
		flags.WorkingSize = &workingSize
	}
	fitLights.apply(cmd, &flags)
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	in, err := loadInputs(fitFg, fitBg, fitDepth, cfg.Depth.SkipOnError)
	if err != nil {
		return err
	}
	ref, err := raster.Load(refPath)
	if err != nil {
		return fmt.Errorf("failed to load reference: %w", err)
	}

	opts := cfg.FitOptions()
	if writeTrace {
		id := uuid.New().String()
		tw, err := store.NewTraceWriter(cfg.Server.DataDir, id, false)
		if err != nil {
			return err
		}
		defer tw.Close()
		opts.Trace = tw
		fmt.Printf("Tracing to %s\n", tw.Path())
	}

	problem := fit.Problem{
		Foreground: in.Foreground,
		Background: in.Background,
		Depth:      in.Depth,
		Reference:  ref,
	}
	optimizer := opt.NewMayfly(cfg.Fit.Iters, cfg.Fit.Pop, cfg.Fit.Seed)

	est, err := fit.EstimateLight(cmd.Context(), problem, optimizer, opts)
	if err != nil {
		return err
	}

	fmt.Printf("angle=%.1f elevation=%.1f intensity=%.2f (cost: %.2f -> %.2f, %d evaluations in %d rounds, %s)\n",
		est.Light.Angle, est.Light.Elevation, est.Light.Intensity,
		est.InitialCost, est.Cost, est.Evaluations, est.Rounds, est.Elapsed.Round(time.Millisecond))
	fmt.Println(est.Light.DropShadow())

	if fitOut == "" {
		return nil
	}

	res, err := shadow.Synthesize(cmd.Context(), in, shadow.Params{
		Light:        est.Light,
		Layers:       cfg.Layers,
		SkipBadDepth: cfg.Depth.SkipOnError,
	})
	if err != nil {
		return fmt.Errorf("failed to render estimate: %w", err)
	}
	if res == nil {
		return errors.New("foreground and background are required")
	}
	if err := raster.SaveAs(cfg.Output.Path, res.Composite, cfg.OutputFormat()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", cfg.Output.Path)
	return nil
}
