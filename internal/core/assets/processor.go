package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// DefaultMaxWidth caps the width of the display rendition
	DefaultMaxWidth = 1920
	// DefaultQuality is the JPEG quality of the display rendition
	DefaultQuality = 85
	// maxSourcePixels rejects decompression bombs before a full decode
	maxSourcePixels = 50_000_000
)

// Rendition describes the display copy derived from an upload
type Rendition struct {
	MaxWidth int
	Quality  int
}

// Render decodes data, applies EXIF orientation, caps the width at
// r.MaxWidth preserving the aspect ratio and re-encodes as JPEG.
// Images narrower than MaxWidth are never upscaled.
func (r Rendition) Render(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	switch format {
	case "jpeg", "png", "webp", "gif":
	default:
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedFormat, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrProcessingFailed, err)
	}

	img = capWidth(img, r.MaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("%w: failed to encode JPEG: %v", ErrProcessingFailed, err)
	}
	return buf.Bytes(), nil
}

func capWidth(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	// Height 0 keeps the aspect ratio
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}
