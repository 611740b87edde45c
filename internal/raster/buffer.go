package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrEmptyRaster is returned when a raster would have zero width or height.
	ErrEmptyRaster = errors.New("raster has zero width or height")
	// ErrOutOfBounds is returned for pixel access outside the raster.
	ErrOutOfBounds = errors.New("pixel coordinate out of bounds")
	// ErrBufferSize is returned when a pixel slice does not hold exactly W*H*4 bytes.
	ErrBufferSize = errors.New("pixel buffer length does not match dimensions")
)

// Buffer is an owned grid of non-premultiplied RGBA8 samples in row-major order.
// len(Pix) is always Width*Height*4.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a fully transparent buffer.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyRaster, width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// FromPix wraps an existing pixel slice without copying it.
func FromPix(width, height int, pix []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyRaster, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: got %d bytes for %dx%d", ErrBufferSize, len(pix), width, height)
	}
	return &Buffer{Width: width, Height: height, Pix: pix}, nil
}

// FromImage copies any image into a new buffer anchored at (0,0).
func FromImage(src image.Image) (*Buffer, error) {
	b := src.Bounds()
	buf, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	// Fast path for the layout we already use
	if n, ok := src.(*image.NRGBA); ok {
		rowLen := buf.Width * 4
		for y := 0; y < buf.Height; y++ {
			si := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(buf.Pix[y*rowLen:(y+1)*rowLen], n.Pix[si:si+rowLen])
		}
		return buf, nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			buf.Pix[i+0] = c.R
			buf.Pix[i+1] = c.G
			buf.Pix[i+2] = c.B
			buf.Pix[i+3] = c.A
			i += 4
		}
	}
	return buf, nil
}

// NRGBA returns an image view that shares the buffer's pixels.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Offset returns the index of the first byte of pixel (x,y) and whether the
// coordinate lies inside the buffer.
func (b *Buffer) Offset(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0, false
	}
	return (y*b.Width + x) * 4, true
}

// Pixel reads one sample.
func (b *Buffer) Pixel(x, y int) (color.NRGBA, error) {
	i, ok := b.Offset(x, y)
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, b.Width, b.Height)
	}
	return color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}, nil
}

// SetPixel writes one sample.
func (b *Buffer) SetPixel(x, y int, c color.NRGBA) error {
	i, ok := b.Offset(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, b.Width, b.Height)
	}
	b.Pix[i+0] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
	return nil
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.NRGBA) {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i+0] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// SameSize reports whether both buffers have identical dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Validate checks the length invariant.
func (b *Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyRaster, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: got %d bytes for %dx%d", ErrBufferSize, len(b.Pix), b.Width, b.Height)
	}
	return nil
}
