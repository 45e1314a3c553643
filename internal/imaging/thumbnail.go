package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// DefaultThumbnailSize is the longest edge of a thumbnail, in pixels.
const DefaultThumbnailSize = 256

// ThumbnailResult contains a re-encoded preview of an image
type ThumbnailResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Thumbnail fits img inside a maxSide square, keeping its aspect ratio, and
// returns it PNG-encoded. Images already small enough are re-encoded at
// their own size.
func Thumbnail(img image.Image, maxSide int) (*ThumbnailResult, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", maxSide)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot thumbnail an empty image")
	}

	thumb := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &ThumbnailResult{
		Width:       thumb.Bounds().Dx(),
		Height:      thumb.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
