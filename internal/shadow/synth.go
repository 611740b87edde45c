package shadow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/shadowcast/internal/raster"
)

var (
	// ErrInvalidLayers is returned for a layer count outside [1, MaxLayers].
	ErrInvalidLayers = errors.New("invalid shadow layer count")
	// ErrInvalidPixelScale is returned for a negative or non-finite PixelScale.
	ErrInvalidPixelScale = errors.New("invalid pixel scale")
)

// Inputs are the decoded rasters for one pass. Depth is optional; its red
// channel encodes depth in [0,255]. Inputs are never modified.
type Inputs struct {
	Foreground *raster.Buffer
	Background *raster.Buffer
	Depth      *raster.Buffer
}

// Params are the user-facing parameters of one pass.
type Params struct {
	Light Light `json:"light"`
	// Layers defaults to DefaultLayers when zero.
	Layers int `json:"layers,omitempty"`
	// SkipBadDepth renders without the depth warp when the depth raster is
	// unusable, instead of failing the pass.
	SkipBadDepth bool `json:"skipBadDepth,omitempty"`
	// PixelScale renders the pass for a canvas at this fraction of the
	// resolution the light was chosen for: offsets, blur radii and the
	// bottom margin shrink with it. Zero means 1.
	PixelScale float64 `json:"pixelScale,omitempty"`
}

// Result is the output of one pass.
type Result struct {
	Composite    *raster.Buffer
	Placement    Placement
	Mapping      Mapping
	DropShadow   DropShadow
	DepthApplied bool
	Elapsed      time.Duration
}

// layerImage is a blurred layer plus the padding Blur added around it.
type layerImage struct {
	buf *raster.Buffer
	pad int
}

// Synthesize renders the foreground and its layered shadow onto a copy of the
// background. It returns a nil Result and a nil error when either the
// foreground or the background is missing; that is a precondition, not a
// failure. The pass is deterministic: identical inputs give identical bytes.
func Synthesize(ctx context.Context, in Inputs, p Params) (*Result, error) {
	if in.Foreground == nil || in.Background == nil {
		return nil, nil
	}
	start := time.Now()

	if err := in.Foreground.Validate(); err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	if err := in.Background.Validate(); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	layers := p.Layers
	if layers == 0 {
		layers = DefaultLayers
	}
	if layers < 1 || layers > MaxLayers {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidLayers, layers, MaxLayers)
	}

	scale := p.PixelScale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPixelScale, p.PixelScale)
	}

	m := MapLight(p.Light, layers).Scaled(scale)
	bg := in.Background

	pl, err := PlaceScaled(bg.Width, bg.Height, in.Foreground.Width, in.Foreground.Height, scale)
	if err != nil {
		return nil, err
	}

	fg, err := raster.Resize(in.Foreground, pl.Width, pl.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to scale foreground: %w", err)
	}

	var depth *raster.Buffer
	if in.Depth != nil {
		depth, err = prepareDepth(in.Depth, bg.Width, bg.Height, pl)
		if err != nil {
			if !p.SkipBadDepth {
				return nil, fmt.Errorf("depth: %w", err)
			}
			slog.Warn("Skipping depth warp", "error", err)
			depth = nil
		}
	}

	out := bg.Clone()
	sil := ExtractSilhouette(fg)

	if !sil.Empty() && m.Light.Intensity > 0 {
		images, err := renderLayers(ctx, sil, depth, m)
		if err != nil {
			return nil, err
		}

		// Back to front: the blurriest, farthest layer first
		for layer := layers - 1; layer >= 0; layer-- {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lx, ly := m.LayerPosition(layer, pl.X, pl.Y)
			img := images[layer]
			DrawOver(out, img.buf, int(math.Round(lx))-img.pad, int(math.Round(ly))-img.pad)
		}
	}

	origin := pl.Origin()
	DrawOver(out, fg, origin.X, origin.Y)

	res := &Result{
		Composite:    out,
		Placement:    pl,
		Mapping:      m,
		DropShadow:   m.Light.DropShadow(),
		DepthApplied: depth != nil,
		Elapsed:      time.Since(start),
	}

	slog.Debug("Synthesis pass complete",
		"width", bg.Width,
		"height", bg.Height,
		"layers", layers,
		"subject_pixels", sil.Count(),
		"depth", res.DepthApplied,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// renderLayers shapes, warps and blurs every layer concurrently. Layers do
// not depend on each other until they are composited.
func renderLayers(ctx context.Context, sil *Silhouette, depth *raster.Buffer, m Mapping) ([]layerImage, error) {
	images := make([]layerImage, m.Layers)
	shaper := Shaper{Intensity: m.Light.Intensity}

	g, gctx := errgroup.WithContext(ctx)
	for layer := 0; layer < m.Layers; layer++ {
		g.Go(func() error {
			buf, err := shaper.Layer(gctx, sil, layer)
			if err != nil {
				return err
			}

			if depth != nil {
				buf, err = Warp(buf, depth, m.OffsetX, m.OffsetY)
				if err != nil {
					return fmt.Errorf("layer %d: %w", layer, err)
				}
			}

			if err := gctx.Err(); err != nil {
				return err
			}

			blurred, pad, err := Blur(buf, m.BlurSigma(layer))
			if err != nil {
				return fmt.Errorf("layer %d: %w", layer, err)
			}
			images[layer] = layerImage{buf: blurred, pad: pad}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// prepareDepth stretches the depth map over the whole canvas and crops the
// foreground rectangle out of it, so depth samples line up with layer pixels.
func prepareDepth(depth *raster.Buffer, canvasW, canvasH int, pl Placement) (*raster.Buffer, error) {
	if err := depth.Validate(); err != nil {
		return nil, err
	}

	full := depth
	if depth.Width != canvasW || depth.Height != canvasH {
		var err error
		full, err = raster.Resize(depth, canvasW, canvasH)
		if err != nil {
			return nil, fmt.Errorf("failed to scale depth map: %w", err)
		}
	}

	cropped, err := raster.Crop(full, pl.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to crop depth map: %w", err)
	}
	return cropped, nil
}
