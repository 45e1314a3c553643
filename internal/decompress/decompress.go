// Package decompress normalizes an HTTP body according to its declared
// Content-Encoding.
//
// Recognition is a case-insensitive substring match on the header value, so
// "x-gzip" and "gzip, chunked" both select gzip. Unknown or absent encodings
// are treated as identity and never fail. Every recognised encoding is read
// through a size ceiling so a small body cannot inflate without bound.
package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// DefaultMaxInflated is the ceiling used when Options.MaxInflated is unset.
const DefaultMaxInflated int64 = 64 * 1024 * 1024

// ErrTooLarge reports that a body inflated past the configured ceiling.
var ErrTooLarge = errors.New("decompressed body exceeds size limit")

// DecodeError reports a body that could not be decompressed.
type DecodeError struct {
	// Encoding is the encoding that was attempted ("gzip", "deflate", "zstd").
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode failed: %v", e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options tunes Decode.
type Options struct {
	// MaxInflated caps the decompressed size. Zero means DefaultMaxInflated.
	MaxInflated int64
}

// Encoding returns the canonical encoding selected by a Content-Encoding
// header value, or "" for identity.
func Encoding(header string) string {
	lowered := strings.ToLower(header)
	switch {
	case strings.Contains(lowered, "gzip"):
		return "gzip"
	case strings.Contains(lowered, "deflate"):
		return "deflate"
	case strings.Contains(lowered, "zstd"):
		return "zstd"
	default:
		return ""
	}
}

// Decode returns the canonical bytes of body. When header names no known
// encoding, body itself is returned.
func Decode(body []byte, header string, opts Options) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	limit := opts.MaxInflated
	if limit <= 0 {
		limit = DefaultMaxInflated
	}

	encoding := Encoding(header)
	var (
		out []byte
		err error
	)
	switch encoding {
	case "gzip":
		out, err = gunzip(body, limit)
	case "deflate":
		out, err = inflate(body, limit)
	case "zstd":
		out, err = unzstd(body, limit)
	default:
		return body, nil
	}
	if err != nil {
		return nil, &DecodeError{Encoding: encoding, Err: err}
	}
	return out, nil
}

func gunzip(body []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, limit)
}

// inflate accepts both zlib-wrapped and raw deflate streams. Servers send
// either under the same "deflate" token.
func inflate(body []byte, limit int64) ([]byte, error) {
	if hasZlibHeader(body) {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readLimited(zr, limit)
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return readLimited(fr, limit)
}

func unzstd(body []byte, limit int64) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(body), zstd.WithDecoderMaxMemory(uint64(limit)))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, limit)
}

// hasZlibHeader checks the RFC 1950 CMF/FLG pair: deflate method, window
// size within range, and the FCHECK multiple of 31.
func hasZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	cmf, flg := b[0], b[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrTooLarge
	}
	return out, nil
}
