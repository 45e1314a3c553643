// Package sniff classifies byte windows by their magic signature.
//
// The signature table is closed: PNG, JPEG, GIF, BMP and WebP. Signatures are
// checked in that order against at most the 12 bytes starting at the probe
// offset; each signature needs only its own minimum prefix length.
package sniff

// Format names a raster container recognised by its signature.
type Format string

const (
	Unknown Format = ""
	PNG     Format = "png"
	JPEG    Format = "jpeg"
	GIF     Format = "gif"
	BMP     Format = "bmp"
	WebP    Format = "webp"
)

// probeLen is the widest window any signature needs (WebP).
const probeLen = 12

type signature struct {
	format Format
	minLen int
	match  func(p []byte) bool
}

var signatures = []signature{
	{PNG, 4, func(p []byte) bool {
		return p[0] == 0x89 && p[1] == 'P' && p[2] == 'N' && p[3] == 'G'
	}},
	{JPEG, 3, func(p []byte) bool {
		return p[0] == 0xFF && p[1] == 0xD8 && p[2] == 0xFF
	}},
	{GIF, 3, func(p []byte) bool {
		return p[0] == 'G' && p[1] == 'I' && p[2] == 'F'
	}},
	{BMP, 2, func(p []byte) bool {
		return p[0] == 'B' && p[1] == 'M'
	}},
	{WebP, 12, func(p []byte) bool {
		return string(p[0:4]) == "RIFF" && string(p[8:12]) == "WEBP"
	}},
}

// Detect returns the format whose signature starts at offset, or Unknown.
// An offset outside b, or a window shorter than a signature needs, never
// matches that signature.
func Detect(b []byte, offset int) Format {
	if offset < 0 || offset >= len(b) {
		return Unknown
	}
	probe := b[offset:]
	if len(probe) > probeLen {
		probe = probe[:probeLen]
	}
	for _, sig := range signatures {
		if len(probe) >= sig.minLen && sig.match(probe) {
			return sig.format
		}
	}
	return Unknown
}

// LooksLikeImage reports whether an image plausibly starts at offset.
func LooksLikeImage(b []byte, offset int) bool {
	return Detect(b, offset) != Unknown
}

// MIMEType returns the conventional MIME type for f, or "" for Unknown.
func (f Format) MIMEType() string {
	if f == Unknown {
		return ""
	}
	return "image/" + string(f)
}
