package extract

import (
	"bytes"
	"strings"
)

// textSampleLen is how much of the body IsLikelyText inspects.
const textSampleLen = 1024

// textTypeTokens are Content-Type substrings that mark a body as text.
var textTypeTokens = []string{"json", "html", "xml", "javascript", "x-www-form-urlencoded"}

// embeddedMarkers are lower-cased substrings that betray an inline image: a
// data URI, or the base64 forms of the PNG, JPEG and GIF signatures.
var embeddedMarkers = [][]byte{
	[]byte("data:image/"),
	[]byte("ivborw0kggo"),
	[]byte("/9j/"),
	[]byte("r0lgod"),
}

// IsLikelyText reports whether body should be scanned as text.
//
// A text-like Content-Type wins outright. Otherwise the first 1024 bytes are
// sampled: any NUL byte means binary, and so does a share of control bytes
// (outside tab..carriage-return) of one eighth of the sample or more.
func IsLikelyText(contentType string, body []byte) bool {
	if contentType != "" {
		lowered := strings.ToLower(contentType)
		if strings.HasPrefix(lowered, "text/") {
			return true
		}
		for _, tok := range textTypeTokens {
			if strings.Contains(lowered, tok) {
				return true
			}
		}
	}

	sample := body
	if len(sample) > textSampleLen {
		sample = sample[:textSampleLen]
	}
	suspicious := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			suspicious++
		}
	}
	return suspicious < len(sample)/8
}

// HasEmbeddedMarker is the quick check behind view eligibility: a text-like
// body whose first scanLen bytes contain a data-URI marker or a base64 image
// signature prefix.
func HasEmbeddedMarker(body []byte, contentType string, scanLen int) bool {
	if len(body) == 0 || !IsLikelyText(contentType, body) {
		return false
	}
	if scanLen > 0 && len(body) > scanLen {
		body = body[:scanLen]
	}
	lowered := lowerASCII(body)
	for _, m := range embeddedMarkers {
		if bytes.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// lowerASCII folds A-Z only, leaving every other byte untouched.
func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
