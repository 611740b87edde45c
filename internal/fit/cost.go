package fit

import (
	"fmt"

	"github.com/cwbudde/shadowcast/internal/raster"
)

// CostFunc computes the error between current and reference rasters
type CostFunc func(current, reference *raster.Buffer) float64

// sadScale brings one fully inverted pixel to a weighted cost of about 8.4
const sadScale = 1.5378700499807766243752402921953e-6

// CostByName returns the cost function registered under name ("" selects mse).
func CostByName(name string) (CostFunc, error) {
	switch name {
	case "", "mse":
		return MSECost, nil
	case "sad":
		return WeightedSADCost, nil
	default:
		return nil, fmt.Errorf("unknown cost function: %s", name)
	}
}

// MSECost computes Mean Squared Error over the RGB channels of two rasters
// of the same size. Alpha is ignored. It panics on a size mismatch; callers
// check sizes up front.
func MSECost(current, reference *raster.Buffer) float64 {
	if !current.SameSize(reference) {
		panic("raster dimensions must match")
	}
	numPixels := current.Width * current.Height
	return ssd(current.Pix, reference.Pix) / float64(numPixels*3)
}

// WeightedSADCost sums per-pixel absolute RGB differences weighted by
// value×(255+9×value), so large differences dominate, and averages the
// result per pixel. Like MSECost it ignores alpha and panics on a size
// mismatch.
func WeightedSADCost(current, reference *raster.Buffer) float64 {
	if !current.SameSize(reference) {
		panic("raster dimensions must match")
	}

	a, b := current.Pix, reference.Pix
	var total float64
	for i := 0; i < len(a); i += 4 {
		value := absDiff(a[i+0], b[i+0]) + absDiff(a[i+1], b[i+1]) + absDiff(a[i+2], b[i+2])
		total += float64(value * (255 + 9*value))
	}
	return total * sadScale / float64(current.Width*current.Height)
}

// ssd returns the sum of squared RGB differences of two NRGBA pixel slices
// of equal length. Four pixels are processed per iteration.
func ssd(a, b []uint8) float64 {
	var sum float64
	n := len(a) / 4
	unrolled := n / 4 * 4

	i := 0
	for p := 0; p < unrolled; p += 4 {
		dr0 := int32(a[i+0]) - int32(b[i+0])
		dg0 := int32(a[i+1]) - int32(b[i+1])
		db0 := int32(a[i+2]) - int32(b[i+2])

		dr1 := int32(a[i+4]) - int32(b[i+4])
		dg1 := int32(a[i+5]) - int32(b[i+5])
		db1 := int32(a[i+6]) - int32(b[i+6])

		dr2 := int32(a[i+8]) - int32(b[i+8])
		dg2 := int32(a[i+9]) - int32(b[i+9])
		db2 := int32(a[i+10]) - int32(b[i+10])

		dr3 := int32(a[i+12]) - int32(b[i+12])
		dg3 := int32(a[i+13]) - int32(b[i+13])
		db3 := int32(a[i+14]) - int32(b[i+14])

		// int32 holds 12 squared byte differences (max 780300)
		sum += float64(dr0*dr0 + dg0*dg0 + db0*db0 +
			dr1*dr1 + dg1*dg1 + db1*db1 +
			dr2*dr2 + dg2*dg2 + db2*db2 +
			dr3*dr3 + dg3*dg3 + db3*db3)
		i += 16
	}

	for ; i < n*4; i += 4 {
		dr := int32(a[i+0]) - int32(b[i+0])
		dg := int32(a[i+1]) - int32(b[i+1])
		db := int32(a[i+2]) - int32(b[i+2])
		sum += float64(dr*dr + dg*dg + db*db)
	}
	return sum
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
