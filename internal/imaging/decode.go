package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"log/slog"

	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-extract-mcp/internal/extract"
)

// DefaultMaxPixels bounds width*height of a decoded raster, about 128 MiB
// as 8-bit RGBA.
const DefaultMaxPixels = 32 << 20

// ErrTooManyPixels is returned for images whose header declares more pixels
// than the configured limit. Nothing is allocated for the raster.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Options tunes Render. Zero fields take the defaults.
type Options struct {
	MaxPixels int
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Entry is one decoded candidate, ready for display.
//
// Label and Details are the two strings a gallery shows for the image. The
// remaining fields describe the decoded raster.
type Entry struct {
	// Label is "<source> (<width>x<height>)", e.g. "Data URI #1 (16x16)".
	Label string `json:"label"`

	// Details is "<source> | <type> | <width>x<height> | <n> bytes". The
	// type reads "unknown type" when the candidate declared none.
	Details string `json:"details"`

	// Source is the candidate's provenance label.
	Source string `json:"source"`

	// Type is the declared MIME type, if any.
	Type string `json:"type,omitempty"`

	// Strategy and Offset locate the candidate in the canonical body.
	Strategy extract.Kind `json:"strategy"`
	Offset   int          `json:"offset"`

	// Format is the decoder that accepted the bytes: "png", "jpeg", "gif",
	// "bmp" or "webp".
	Format string `json:"format"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// HasAlpha reports whether any pixel is less than fully opaque.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the encoded candidate size.
	SizeBytes int `json:"size_bytes"`

	// Average is the mean visible colour of the image.
	Average ColorSummary `json:"average_color"`

	// Image is the decoded raster in the decoder's native model.
	Image image.Image `json:"-"`
}

// Pixels returns a copy of the image as 8-bit RGBA, the model a display
// surface draws from.
func (e *Entry) Pixels() *image.RGBA {
	return clone.AsRGBA(e.Image)
}

// Decode decodes a candidate into a gallery entry.
//
// Decoding is the final arbiter of a candidate: bytes that carry a valid
// signature but no decodable raster return an error and should be dropped.
// The header is read first and images larger than maxPixels (DefaultMaxPixels
// when <= 0) fail with ErrTooManyPixels before any pixel data is decoded.
func Decode(c extract.Candidate, maxPixels int) (*Entry, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.Label, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%s is %dx%d: %w", c.Label, cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.Label, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	colorDepth, hasAlpha := describeModel(img)

	typ := c.Type
	if typ == "" {
		typ = "unknown type"
	}

	return &Entry{
		Label:      fmt.Sprintf("%s (%dx%d)", c.Label, w, h),
		Details:    fmt.Sprintf("%s | %s | %dx%d | %d bytes", c.Label, typ, w, h, c.Len()),
		Source:     c.Label,
		Type:       c.Type,
		Strategy:   c.Strategy,
		Offset:     c.Offset,
		Format:     format,
		Width:      w,
		Height:     h,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  c.Len(),
		Average:    AverageColor(img),
		Image:      img,
	}, nil
}

// describeModel reports the per-channel depth of the decoded image type and
// whether any pixel is less than fully opaque.
func describeModel(img image.Image) (colorDepth string, hasAlpha bool) {
	colorDepth = "8-bit"
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		hasAlpha = !o.Opaque()
	}
	return colorDepth, hasAlpha
}

// Render decodes candidates in order and returns the entries that decoded.
// Undecodable or oversized candidates are logged at debug level and
// dropped. Render checks ctx between candidates and returns ctx.Err() once
// it is done.
func Render(ctx context.Context, candidates []extract.Candidate, opts Options) ([]Entry, error) {
	opts.defaults()

	entries := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := Decode(c, opts.MaxPixels)
		if err != nil {
			opts.Logger.Debug("imaging: candidate dropped", "label", c.Label, "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, nil
}
