// Package imaging normalizes uploaded equipment photos: validates the format,
// downscales oversized images, and re-encodes everything as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"

	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxDimension is the maximum width or height for stored photos.
const MaxDimension = 1280

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// allowedMIME lists the accepted input MIME types.
var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessResult contains the processed photo data.
type ProcessResult struct {
	Data []byte
	MIME string
}

// Process reads photo data, validates the format by sniffing bytes,
// downscales if larger than MaxDimension, and re-encodes as JPEG.
func Process(r io.Reader) (*ProcessResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (JPEG, PNG, and WebP accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if img = downscale(img, MaxDimension); img == nil {
		return nil, fmt.Errorf("empty image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &ProcessResult{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(h*maxDim/w, 1)
	} else {
		newW = max(w*maxDim/h, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
