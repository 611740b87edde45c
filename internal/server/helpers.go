package server

import (
	"fmt"
	"math"

	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
)

// loadInputs decodes the rasters named by a request. A depth map that fails
// to load is dropped when skipBadDepth is set.
func loadInputs(req RenderRequest, skipBadDepth bool) (shadow.Inputs, error) {
	fg, err := raster.Load(req.Foreground)
	if err != nil {
		return shadow.Inputs{}, fmt.Errorf("failed to load foreground: %w", err)
	}
	bg, err := raster.Load(req.Background)
	if err != nil {
		return shadow.Inputs{}, fmt.Errorf("failed to load background: %w", err)
	}

	in := shadow.Inputs{Foreground: fg, Background: bg}
	if req.Depth != "" {
		depth, err := raster.Load(req.Depth)
		if err != nil && !skipBadDepth {
			return shadow.Inputs{}, fmt.Errorf("failed to load depth map: %w", err)
		}
		in.Depth = depth
	}
	return in, nil
}

// computeDiffImage creates a false-color image of what the render added to
// the background: black where nothing changed, red where the composite
// darkened or covered it the most.
func computeDiffImage(background, composite *raster.Buffer) (*raster.Buffer, error) {
	if !background.SameSize(composite) {
		return nil, fmt.Errorf("background %dx%d does not match composite %dx%d",
			background.Width, background.Height, composite.Width, composite.Height)
	}

	diff, err := raster.New(background.Width, background.Height)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(background.Pix); i += 4 {
		dr := float64(background.Pix[i+0]) - float64(composite.Pix[i+0])
		dg := float64(background.Pix[i+1]) - float64(composite.Pix[i+1])
		db := float64(background.Pix[i+2]) - float64(composite.Pix[i+2])

		// Max magnitude is 255*sqrt(3)
		mag := math.Sqrt(dr*dr + dg*dg + db*db)
		normalized := uint8(math.Min(255, mag/math.Sqrt(3)))

		diff.Pix[i+0] = normalized
		diff.Pix[i+3] = 255
	}
	return diff, nil
}
