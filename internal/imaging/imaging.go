// Package imaging vets operator-selected photos and renders the small
// preview shown in the item form.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// MaxPhotoSize is the largest photo accepted for upload.
const MaxPhotoSize = 5 << 20

// PreviewDimension is the maximum width or height of a preview.
const PreviewDimension = 320

// JPEGQuality is the compression quality for previews.
const JPEGQuality = 80

// MaxPreviewPixels caps the decoded size of an image that gets a rendered
// preview. A small compressed file can declare a huge bitmap.
const MaxPreviewPixels = 40_000_000

// Photo rejections.
var (
	ErrNotImage = errors.New("Only image files are allowed.")
	ErrTooLarge = errors.New("Image is too large (max 5MB).")

	ErrTooManyPixels = errors.New("image dimensions exceed the preview limit")
)

// Result contains an encoded preview.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// DetectType returns the media type of a file. A declared type wins;
// without one the bytes are sniffed.
func DetectType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
		return strings.ToLower(strings.TrimSpace(declared))
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// CheckPhoto rejects non-images first, then oversized files.
func CheckPhoto(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotImage
	}
	if size > MaxPhotoSize {
		return ErrTooLarge
	}
	return nil
}

// Preview decodes data and re-encodes it as a JPEG no larger than
// PreviewDimension on either side. Images whose header declares more than
// MaxPreviewPixels are refused before any pixel data is decoded.
func Preview(data []byte) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, PreviewDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// downscale resizes img so neither side exceeds maxDim, keeping the
// aspect ratio. Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
