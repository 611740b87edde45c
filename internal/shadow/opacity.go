package shadow

import (
	"context"
	"math"

	"github.com/cwbudde/shadowcast/internal/raster"
)

const (
	contactSpan  = 0.3 // contact boost fades out over this share of the height
	falloffSpan  = 0.5 // e-folding distance of the ambient term, as a share of the height
	contactBoost = 0.4
)

// Shaper turns a silhouette into per-layer shadow alpha. Opacity depends only
// on the row: it is strongest at the subject's base and decays upward.
type Shaper struct {
	Intensity float64
}

// BaseOpacity is the layer-0 opacity of a subject pixel in row y of a box
// that is height rows tall. A zero height yields 0.
func (s Shaper) BaseOpacity(y, height int) float64 {
	if height <= 0 {
		return 0
	}
	h := float64(height)
	fromBottom := h - float64(y)

	contact := math.Max(0, 1-fromBottom/(h*contactSpan))
	falloff := math.Exp(-fromBottom / (h * falloffSpan))

	opacity := s.Intensity * falloff
	// Zero intensity disables the shadow, contact boost included
	if contact > 0 && s.Intensity > 0 {
		opacity = math.Min(1, opacity+contact*contactBoost)
	}
	return opacity
}

// LayerOpacity fades base for layer L. Deeper layers are fainter.
func LayerOpacity(base float64, layer int) float64 {
	return base * (1 - float64(layer)*layerFade)
}

// Layer renders the alpha raster for one layer: black pixels whose alpha is
// the layer opacity inside the silhouette and 0 elsewhere.
func (s Shaper) Layer(ctx context.Context, sil *Silhouette, layer int) (*raster.Buffer, error) {
	buf, err := raster.New(sil.Width, sil.Height)
	if err != nil {
		return nil, err
	}
	if sil.Empty() {
		return buf, nil
	}

	for y := 0; y < sil.Height; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		alpha := toAlpha(LayerOpacity(s.BaseOpacity(y, sil.Height), layer))
		if alpha == 0 {
			continue
		}
		row := y * sil.Width
		for x := 0; x < sil.Width; x++ {
			if sil.inside[row+x] {
				// RGB stays 0: shadows are pure black
				buf.Pix[(row+x)*4+3] = alpha
			}
		}
	}
	return buf, nil
}

func toAlpha(opacity float64) uint8 {
	v := math.RoundToEven(opacity * 255)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
