package intake

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const jpegQuality = 85

// Orientation reads the EXIF orientation tag, defaulting to 1 (upright).
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient maps a destination pixel back to its source pixel for each EXIF orientation.
// w and h are the source dimensions.
func orient(img image.Image, orientation int) image.Image {
	if orientation == 1 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch orientation {
			case 2:
				sx, sy = w-1-x, y
			case 3:
				sx, sy = w-1-x, h-1-y
			case 4:
				sx, sy = x, h-1-y
			case 5:
				sx, sy = y, x
			case 6:
				sx, sy = y, h-1-x
			case 7:
				sx, sy = w-1-y, h-1-x
			case 8:
				sx, sy = w-1-y, x
			}
			out.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return out
}

// Normalize uprights and downsizes still images so their longest side is at most
// maxDim, re-encoding them as JPEG. Video, undecodable data and images that need
// no change come back untouched.
func Normalize(data []byte, mimeType string, maxDim int) ([]byte, string, error) {
	if IsVideo(mimeType) || maxDim <= 0 {
		return data, mimeType, nil
	}

	orientation := Orientation(data)
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.WithError(err).Warn("Could not decode image, sending original bytes")
		return data, mimeType, nil
	}

	b := img.Bounds()
	if orientation == 1 && b.Dx() <= maxDim && b.Dy() <= maxDim {
		return data, mimeType, nil
	}

	img = orient(img, orientation)
	b = img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxDim || h > maxDim {
		scale := float64(maxDim) / float64(w)
		if s := float64(maxDim) / float64(h); s < scale {
			scale = s
		}
		nw, nh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
		scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode normalized image: %w", err)
	}

	log.WithFields(log.Fields{
		"orientation": orientation,
		"from":        fmt.Sprintf("%dx%d", w, h),
		"to":          fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"bytes_in":    len(data),
		"bytes_out":   buf.Len(),
	}).Debug("Image normalized")
	return buf.Bytes(), "image/jpeg", nil
}
