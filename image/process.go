// Package image prepares citizen evidence photos for storage and scoring:
// EXIF-aware orientation handling, downscaling, and metadata extraction.
package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const (
	maxImageDimension = 1024 // Maximum width or height in pixels
	jpegQuality       = 85
)

// Metadata holds the signals extracted from an evidence image that are
// forwarded to the trust scorer.
type Metadata struct {
	Width       int
	Height      int
	Orientation int
	CapturedAt  *time.Time
	HasGPS      bool
}

// GetOrientation extracts the EXIF orientation from JPEG data
func GetOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1 // Default orientation if no EXIF data or error
	}

	orientation, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientVal, err := orientation.Int(0)
	if err != nil {
		return 1
	}

	return orientVal
}

// ExtractMetadata pulls scorer-relevant signals out of the image bytes.
// Missing EXIF data is not an error; the zero signals are still meaningful
// to the scorer.
func ExtractMetadata(data []byte) *Metadata {
	meta := &Metadata{Orientation: 1}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	meta.Orientation = GetOrientation(data)

	if dt, err := x.DateTime(); err == nil {
		meta.CapturedAt = &dt
	}

	if lat, lng, err := x.LatLong(); err == nil && (lat != 0 || lng != 0) {
		meta.HasGPS = true
	}

	return meta
}

// Compress decodes, orients, downscales and re-encodes an uploaded JPEG so
// oversized phone photos don't bloat the reports table.
func Compress(data []byte) ([]byte, error) {
	orientation := GetOrientation(data)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = correctOrientation(img, orientation)

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxImageDimension && height <= maxImageDimension {
		// Already small enough. Stored images are always served as JPEG,
		// so anything that is not already an upright JPEG is re-encoded.
		if format == "jpeg" && orientation == 1 {
			return data, nil
		}
		return encodeJPEG(img)
	}

	scale := float64(maxImageDimension) / float64(width)
	if height > width {
		scale = float64(maxImageDimension) / float64(height)
	}
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	out, err := encodeJPEG(scaled)
	if err != nil {
		return nil, err
	}

	log.Infof("Compressed %s image %dx%d -> %dx%d (%d -> %d bytes)",
		format, width, height, newWidth, newHeight, len(data), len(out))

	return out, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// correctOrientation applies the EXIF orientation to the decoded image.
// Mirrored orientations (2, 4, 5, 7) are rare on phone cameras and are
// handled as their rotated counterparts.
func correctOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch orientation {
	case 3, 4: // Rotate 180
		newImg := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(width-1-x, height-1-y, img.At(x, y))
			}
		}
		return newImg
	case 5, 6: // Rotate 90 clockwise
		newImg := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(height-1-y, x, img.At(x, y))
			}
		}
		return newImg
	case 7, 8: // Rotate 90 counter-clockwise
		newImg := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(y, width-1-x, img.At(x, y))
			}
		}
		return newImg
	default:
		return img
	}
}
