package extract

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCandidate marks a match whose payload could not be decoded.
	// Extract absorbs it and moves on to the next match.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrCandidateRejected marks a decoded candidate refused by the
	// acceptance gate (empty, oversized, duplicate, or over the cap).
	// Extract absorbs it and moves on to the next match.
	ErrCandidateRejected = errors.New("candidate rejected")
)

// escapeStripper removes JSON/JS string escapes and whitespace that commonly
// split base64 payloads embedded in text.
var escapeStripper = strings.NewReplacer(
	`\/`, "/",
	`\n`, "",
	`\r`, "",
	`\t`, "",
	"\r", "",
	"\n", "",
	"\t", "",
	" ", "",
)

// decodeBase64Payload normalizes a base64 run lifted from text and decodes
// it. maxDecoded bounds the decoded size; longer payloads are refused before
// decoding.
func decodeBase64Payload(payload []byte, maxDecoded int) ([]byte, error) {
	normalized := escapeStripper.Replace(string(payload))

	if strings.IndexByte(normalized, '%') >= 0 {
		if decoded, err := percentDecode([]byte(normalized)); err == nil {
			normalized = string(decoded)
		}
	}

	if len(normalized) > 2*maxDecoded {
		return nil, fmt.Errorf("%w: base64 payload of %d chars exceeds limit", ErrMalformedCandidate, len(normalized))
	}

	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}

	enc := base64.StdEncoding
	if strings.ContainsAny(normalized, "-_") {
		enc = base64.URLEncoding
	}
	decoded, err := enc.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCandidate, err)
	}
	return decoded, nil
}

// percentDecode decodes %XX escapes; every other byte is copied through.
// A truncated or non-hex escape fails the whole value.
func percentDecode(value []byte) ([]byte, error) {
	if bytes.IndexByte(value, '%') < 0 {
		return bytes.Clone(value), nil
	}

	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(value) {
			return nil, fmt.Errorf("%w: truncated percent escape at %d", ErrMalformedCandidate, i)
		}
		hi, okHi := unhex(value[i+1])
		lo, okLo := unhex(value[i+2])
		if !okHi || !okLo {
			return nil, fmt.Errorf("%w: invalid percent escape at %d", ErrMalformedCandidate, i)
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
