package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnknownFormat is returned for output formats we cannot encode.
var ErrUnknownFormat = errors.New("unknown image format")

// Format names an encodable output format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Decoder turns encoded image bytes into a raster. The synthesis core only
// depends on this capability, never on a concrete codec.
type Decoder func(data []byte) (*Buffer, error)

// DefaultDecoder decodes any supported format (png, jpeg, gif, bmp, tiff, webp, tga).
var DefaultDecoder Decoder = func(data []byte) (*Buffer, error) {
	buf, _, err := Decode(data)
	return buf, err
}

type sniffer struct {
	name   string
	match  func(data []byte) bool
	decode func(r io.Reader) (image.Image, error)
}

func prefix(magic string) func([]byte) bool {
	return func(data []byte) bool {
		return bytes.HasPrefix(data, []byte(magic))
	}
}

// TGA has no magic number, so it is tried last. Registration through
// image.RegisterFormat is not used because TGA's empty magic would shadow
// every format registered after it.
var sniffers = []sniffer{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode},
	{"gif", prefix("GIF8"), gif.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
	{"tiff", func(d []byte) bool { return prefix("II*\x00")(d) || prefix("MM\x00*")(d) }, tiff.Decode},
	{"webp", func(d []byte) bool { return len(d) >= 12 && string(d[:4]) == "RIFF" && string(d[8:12]) == "WEBP" }, webp.Decode},
	{"tga", func([]byte) bool { return true }, tga.Decode},
}

// Decode decodes data and reports the detected format name.
func Decode(data []byte) (*Buffer, string, error) {
	var (
		img    image.Image
		format string
		err    error
	)
	for _, s := range sniffers {
		if !s.match(data) {
			continue
		}
		format = s.name
		img, err = s.decode(bytes.NewReader(data))
		break
	}
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	buf, err := FromImage(img)
	if err != nil {
		return nil, format, fmt.Errorf("failed to convert %s image: %w", format, err)
	}
	return buf, format, nil
}

// Load reads and decodes an image file with DefaultDecoder.
func Load(path string) (*Buffer, error) {
	return LoadWith(path, DefaultDecoder)
}

// LoadWith reads path and decodes it with dec.
func LoadWith(path string, dec Decoder) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	buf, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// ParseFormat maps user input to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the output format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes buf to w.
func Encode(w io.Writer, buf *Buffer, format Format) error {
	img := buf.NRGBA()
	switch format {
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return nil
}

// Save encodes buf into path, choosing the format from the extension.
func Save(path string, buf *Buffer) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return SaveAs(path, buf, format)
}

// SaveAs writes buf to path in the given format regardless of the extension.
func SaveAs(path string, buf *Buffer, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, buf, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
