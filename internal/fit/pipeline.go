package fit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/shadowcast/internal/opt"
	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
	"github.com/cwbudde/shadowcast/internal/store"
)

// DefaultWorkingSize bounds the longer side of the canvas during the search.
const DefaultWorkingSize = 256

// ErrReferenceSize is returned when the reference and background differ in size.
var ErrReferenceSize = errors.New("reference must match background size")

// Problem holds the rasters of one estimation. Reference is a composite of
// Foreground over Background whose light is unknown.
type Problem struct {
	Foreground *raster.Buffer
	Background *raster.Buffer
	Depth      *raster.Buffer
	Reference  *raster.Buffer
}

// Options tune the search.
type Options struct {
	// Layers is passed through to every synthesis pass (0 = default).
	Layers int
	// WorkingSize bounds the longer canvas side while searching; 0 disables downscaling.
	WorkingSize int
	// Start is the light whose cost is reported as InitialCost.
	Start shadow.Light
	// Trace receives one entry per evaluation when non-nil.
	Trace *store.TraceWriter
	// Cost compares a synthesized composite with the reference (nil = MSECost).
	Cost CostFunc
	// Rounds is the number of optimizer runs. Every round after the first
	// searches a box half as wide, centered on the best light so far.
	Rounds int
	// Convergence ends the rounds early once the best cost stalls.
	Convergence ConvergenceConfig
}

// Estimate is the outcome of EstimateLight.
type Estimate struct {
	Light       shadow.Light `json:"light"`
	Cost        float64      `json:"cost"`
	InitialCost float64      `json:"initialCost"`
	Evaluations int          `json:"evaluations"`
	Rounds      int          `json:"rounds"`
	// Scale is the working resolution relative to the input.
	Scale   float64       `json:"scale"`
	Elapsed time.Duration `json:"elapsed"`
}

// searchLower and searchUpper span angle, elevation and intensity.
var (
	searchLower = []float64{0, 0, 0}
	searchUpper = []float64{360, 90, 1}
)

// EstimateLight searches the light that makes the synthesized composite of
// p closest to p.Reference under o.Cost.
func EstimateLight(ctx context.Context, p Problem, optimizer opt.Optimizer, o Options) (*Estimate, error) {
	if p.Foreground == nil || p.Background == nil || p.Reference == nil {
		return nil, fmt.Errorf("foreground, background and reference are required")
	}
	if !p.Reference.SameSize(p.Background) {
		return nil, fmt.Errorf("%w: reference %dx%d, background %dx%d", ErrReferenceSize,
			p.Reference.Width, p.Reference.Height, p.Background.Width, p.Background.Height)
	}

	start := time.Now()
	work, scale, err := downscale(p, o.WorkingSize)
	if err != nil {
		return nil, err
	}

	slog.Info("Starting light estimation",
		"width", work.Background.Width,
		"height", work.Background.Height,
		"scale", scale,
	)

	costFn := o.Cost
	if costFn == nil {
		costFn = MSECost
	}
	rounds := max(1, o.Rounds)

	in := shadow.Inputs{Foreground: work.Foreground, Background: work.Background, Depth: work.Depth}
	cost := func(l shadow.Light) (float64, error) {
		res, err := shadow.Synthesize(ctx, in, shadow.Params{
			Light:        l,
			Layers:       o.Layers,
			SkipBadDepth: true,
			PixelScale:   scale,
		})
		if err != nil {
			return 0, err
		}
		return costFn(res.Composite, work.Reference), nil
	}

	initialCost, err := cost(o.Start.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate starting light: %w", err)
	}

	var (
		evals   int
		evalErr error
	)
	eval := func(x []float64) float64 {
		if evalErr != nil {
			return math.Inf(1)
		}
		l := shadow.Light{Angle: x[0], Elevation: x[1], Intensity: x[2]}.Normalize()
		c, err := cost(l)
		if err != nil {
			// Remaining evaluations short-circuit; the optimizer cannot be interrupted
			evalErr = err
			return math.Inf(1)
		}
		evals++

		if o.Trace != nil {
			if err := o.Trace.Record(l, c); err != nil {
				evalErr = err
			}
		}
		return c
	}

	var (
		bestParams []float64
		bestCost   = math.Inf(1)
		round      int
		tracker    = NewConvergenceTracker(o.Convergence)
		lower      = append([]float64(nil), searchLower...)
		upper      = append([]float64(nil), searchUpper...)
	)
	for round < rounds {
		params, c, err := optimizer.Run(eval, lower, upper, len(lower))
		if err != nil {
			return nil, err
		}
		if evalErr != nil {
			return nil, fmt.Errorf("light estimation aborted: %w", evalErr)
		}
		round++
		if c < bestCost || bestParams == nil {
			bestParams, bestCost = params, c
		}

		slog.Debug("Search round complete", "round", round, "cost", c, "best_cost", bestCost)
		if tracker.Update(bestCost) {
			break
		}
		lower, upper = narrowBox(bestParams, lower, upper)
	}
	params := bestParams

	found := shadow.Light{Angle: params[0], Elevation: params[1], Intensity: params[2]}.Normalize()
	est := &Estimate{
		Light:       found,
		Cost:        bestCost,
		InitialCost: initialCost,
		Evaluations: evals,
		Rounds:      round,
		Scale:       scale,
		Elapsed:     time.Since(start),
	}

	slog.Info("Light estimation complete",
		"initial_cost", initialCost,
		"best_cost", bestCost,
		"evaluations", evals,
		"rounds", round,
		"angle", est.Light.Angle,
		"elevation", est.Light.Elevation,
		"intensity", est.Light.Intensity,
	)
	return est, nil
}

// narrowBox halves the search box around center. Angle may leave [0, 360)
// since lights are normalized; elevation and intensity stay in range.
func narrowBox(center, lower, upper []float64) ([]float64, []float64) {
	lo := make([]float64, len(center))
	hi := make([]float64, len(center))
	for i, c := range center {
		half := (upper[i] - lower[i]) / 4
		lo[i], hi[i] = c-half, c+half
		if i > 0 {
			lo[i] = max(lo[i], searchLower[i])
			hi[i] = min(hi[i], searchUpper[i])
		}
	}
	return lo, hi
}

// downscale shrinks every raster by the factor that brings the longer
// background side down to size. All rasters share the factor so relative
// placement is preserved; passes at the working size render with the factor
// as their PixelScale so candidates stay comparable with the reference.
func downscale(p Problem, size int) (Problem, float64, error) {
	longest := max(p.Background.Width, p.Background.Height)
	if size <= 0 || longest <= size {
		return p, 1, nil
	}
	scale := float64(size) / float64(longest)

	shrink := func(name string, b *raster.Buffer) (*raster.Buffer, error) {
		if b == nil {
			return nil, nil
		}
		w := max(1, int(float64(b.Width)*scale))
		h := max(1, int(float64(b.Height)*scale))
		out, err := raster.Resize(b, w, h)
		if err != nil {
			return nil, fmt.Errorf("failed to downscale %s: %w", name, err)
		}
		return out, nil
	}

	var (
		out Problem
		err error
	)
	if out.Foreground, err = shrink("foreground", p.Foreground); err != nil {
		return Problem{}, 0, err
	}
	if out.Background, err = shrink("background", p.Background); err != nil {
		return Problem{}, 0, err
	}
	if out.Reference, err = shrink("reference", p.Reference); err != nil {
		return Problem{}, 0, err
	}
	if p.Depth != nil && p.Depth.Validate() == nil {
		if out.Depth, err = shrink("depth", p.Depth); err != nil {
			return Problem{}, 0, err
		}
	}
	return out, scale, nil
}
