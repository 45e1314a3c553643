// Package imaging turns extracted candidates into displayable images.
//
// Extraction only proves that bytes start like an image. This package is
// where the pixels are actually decoded, so it has the final say: a
// candidate that fails to decode is dropped from the gallery.
//
// # Supported Formats
//
// PNG, JPEG and GIF come from the standard library decoders. BMP and WebP
// are registered from golang.org/x/image.
//
// # Gallery Entries
//
// Decode produces an Entry with a display label ("Data URI #1 (16x16)") and
// a details line ("Data URI #1 | image/png | 16x16 | 93 bytes"). Render
// decodes a whole candidate list in order.
//
// The declared dimensions are read with image.DecodeConfig before decoding.
// Images over the pixel limit (DefaultMaxPixels unless configured) are
// refused with ErrTooManyPixels, so a small file claiming a huge canvas
// never allocates it.
//
// # Derived Views
//
//   - Pixels: an 8-bit RGBA copy of the raster (bild/clone)
//   - AverageColor: mean visible colour in linear RGB (bild/transform and
//     go-colorful)
//   - Thumbnail: PNG preview bounded by a square (disintegration/imaging)
//
// # Thread Safety
//
// All functions are stateless. Entries are not modified after Decode
// returns them and may be shared between goroutines.
package imaging
