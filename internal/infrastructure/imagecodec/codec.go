package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"compraser-api/internal/application/ports"
)

const (
	// full chroma resolution from this quality up
	chromaFullQuality = 78
	webpMethod        = 4
	maxPaletteColors  = 256
)

var ErrUnsupportedImage = errors.New("unsupported image")

type Codec struct{}

func New() ports.ImageEncoder { return &Codec{} }

func (c *Codec) Encode(src []byte, mimeType string, quality int) (*ports.Encoded, error) {
	quality = clampQuality(quality)

	switch normalizeType(mimeType) {
	case "image/gif":
		return encodeGIF(src)
	case "image/jpeg":
		img, err := decode(src)
		if err != nil {
			return nil, err
		}
		return encodeJPEG(img, quality)
	case "image/png":
		img, err := decode(src)
		if err != nil {
			return nil, err
		}
		enc, err := encodePNG(img, quality)
		if err != nil {
			return nil, err
		}
		// an already tight PNG is kept as is
		if len(enc.Data) >= len(src) {
			return &ports.Encoded{Data: src, MimeType: "image/png"}, nil
		}
		return enc, nil
	default:
		// webp and any other raster subtype end up as webp
		img, err := decode(src)
		if err != nil {
			return nil, err
		}
		return encodeWEBP(img, quality)
	}
}

// Supports reports whether Encode can decode the type; vector formats are not.
func (c *Codec) Supports(mimeType string) bool {
	t := normalizeType(mimeType)
	return strings.HasPrefix(t, "image/") && t != "image/svg+xml"
}

func decode(src []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

func encodeJPEG(img image.Image, quality int) (*ports.Encoded, error) {
	subsample := image.YCbCrSubsampleRatio420
	if quality >= chromaFullQuality {
		subsample = image.YCbCrSubsampleRatio444
	}

	var buf bytes.Buffer
	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:           quality,
		ChromaSubsampling: subsample,
		ProgressiveLevel:  2,
		OptimizeCoding:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	return &ports.Encoded{Data: buf.Bytes(), MimeType: "image/jpeg"}, nil
}

// encodePNG reduces the image to a quality-sized palette and writes it at maximum deflate effort.
// Pixels map to their nearest palette entry without dithering; error diffusion breaks up the runs
// deflate relies on.
func encodePNG(img image.Image, quality int) (*ports.Encoded, error) {
	colors := PaletteSize(quality)

	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean, AddTransparent: hasAlpha(img)}
	palette := q.Quantize(make(color.Palette, 0, colors), img)

	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, paletted); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}

	return &ports.Encoded{Data: buf.Bytes(), MimeType: "image/png"}, nil
}

func encodeWEBP(img image.Image, quality int) (*ports.Encoded, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Method: webpMethod}); err != nil {
		return nil, fmt.Errorf("webp encode: %w", err)
	}

	return &ports.Encoded{Data: buf.Bytes(), MimeType: "image/webp"}, nil
}

// encodeGIF rewrites every frame as is; quality does not apply.
func encodeGIF(src []byte) (*ports.Encoded, error) {
	g, err := gif.DecodeAll(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var buf bytes.Buffer
	if err = gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("gif encode: %w", err)
	}

	return &ports.Encoded{Data: buf.Bytes(), MimeType: "image/gif"}, nil
}

// PaletteSize maps quality to 4..256 colours.
func PaletteSize(quality int) int {
	n := 2 + (clampQuality(quality)*254)/100
	if n > maxPaletteColors {
		n = maxPaletteColors
	}
	return n
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}

func normalizeType(mimeType string) string {
	t := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	}
	return t
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
