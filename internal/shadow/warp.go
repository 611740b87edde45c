package shadow

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/shadowcast/internal/raster"
)

// ErrDimensionMismatch is returned when the depth raster and the layer differ in size.
var ErrDimensionMismatch = errors.New("depth raster does not match layer dimensions")

const depthWarpScale = 0.5

// Warp displaces layer by the depth map. Destination (x,y) copies the source
// pixel at floor(x + dx*d*0.5), floor(y + dy*d*0.5) where d is the depth
// sample's red channel in [0,1]. Destinations whose source falls outside the
// layer stay transparent; no interpolation or hole filling is done, so gaps
// can appear. depth must already be cropped and scaled to the layer.
func Warp(layer, depth *raster.Buffer, dx, dy float64) (*raster.Buffer, error) {
	if !layer.SameSize(depth) {
		return nil, fmt.Errorf("%w: layer %dx%d, depth %dx%d",
			ErrDimensionMismatch, layer.Width, layer.Height, depth.Width, depth.Height)
	}

	w, h := layer.Width, layer.Height
	out, err := raster.New(w, h)
	if err != nil {
		return nil, err
	}

	fw, fh := float64(w), float64(h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			d := float64(depth.Pix[i]) / 255

			wx := float64(x) + dx*d*depthWarpScale
			wy := float64(y) + dy*d*depthWarpScale
			if wx < 0 || wx >= fw || wy < 0 || wy >= fh {
				continue
			}

			si := (int(math.Floor(wy))*w + int(math.Floor(wx))) * 4
			copy(out.Pix[i:i+4], layer.Pix[si:si+4])
		}
	}
	return out, nil
}
