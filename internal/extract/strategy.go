package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ironsheep/image-extract-mcp/internal/sniff"
)

// MinEmbeddedBase64 is the shortest bare base64 run considered an image.
const MinEmbeddedBase64 = 96

var (
	// Case folding stays on the markers: folded classes would also admit
	// U+212A and U+017F into the payload.
	dataURIBase64Pattern = regexp.MustCompile(`(?i:data:image/)([a-zA-Z0-9.+\-]+)(?i:;base64,)([A-Za-z0-9+/=_%\\\s\-]{32,})`)
	dataURIRawPattern    = regexp.MustCompile(`(?i:data:image/)([a-zA-Z0-9.+\-]+),([A-Za-z0-9%._~!$&'()*+,;=:@/?\-]{16,})`)
)

// Match is one decoded hit from a text strategy. A non-nil Err means the
// hit was found but could not be turned into candidate bytes.
type Match struct {
	Offset int
	Type   string
	Data   []byte
	Err    error
}

// Strategy is one discovery pass over the scanned text. Scan reports
// matches in discovery order and stops as soon as yield returns false.
type Strategy interface {
	Kind() Kind
	Scan(text []byte, maxDecoded int, yield func(Match) bool)
}

// DefaultStrategies returns the text passes in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{DataURIBase64{}, DataURIRaw{}, EmbeddedBase64{}}
}

// DataURIBase64 finds data:image/<subtype>;base64,<payload> URIs.
type DataURIBase64 struct{}

func (DataURIBase64) Kind() Kind { return KindDataURI }

func (DataURIBase64) Scan(text []byte, maxDecoded int, yield func(Match) bool) {
	for _, loc := range dataURIBase64Pattern.FindAllSubmatchIndex(text, -1) {
		m := Match{
			Offset: loc[0],
			Type:   "image/" + strings.ToLower(string(text[loc[2]:loc[3]])),
		}
		m.Data, m.Err = decodeBase64Payload(text[loc[4]:loc[5]], maxDecoded)
		if !yield(m) {
			return
		}
	}
}

// DataURIRaw finds data:image/<subtype>,<percent-encoded payload> URIs.
type DataURIRaw struct{}

func (DataURIRaw) Kind() Kind { return KindDataURIRaw }

func (DataURIRaw) Scan(text []byte, _ int, yield func(Match) bool) {
	for _, loc := range dataURIRawPattern.FindAllSubmatchIndex(text, -1) {
		m := Match{
			Offset: loc[0],
			Type:   "image/" + strings.ToLower(string(text[loc[2]:loc[3]])),
		}
		m.Data, m.Err = percentDecode(text[loc[4]:loc[5]])
		if !yield(m) {
			return
		}
	}
}

// EmbeddedBase64 finds bare base64 runs of at least MinEmbeddedBase64
// characters. With no marker to trust, a run is kept only when its decoded
// bytes carry a known image signature.
type EmbeddedBase64 struct{}

func (EmbeddedBase64) Kind() Kind { return KindEmbeddedBase64 }

func (EmbeddedBase64) Scan(text []byte, maxDecoded int, yield func(Match) bool) {
	forEachBase64Run(text, MinEmbeddedBase64, func(start, end int) bool {
		m := Match{Offset: start}
		m.Data, m.Err = decodeBase64Payload(text[start:end], maxDecoded)
		if m.Err == nil && !sniff.LooksLikeImage(m.Data, 0) {
			m.Data, m.Err = nil, fmt.Errorf("%w: no image signature", ErrMalformedCandidate)
		}
		return yield(m)
	})
}

// isBase64Char reports membership in the union of the standard and URL-safe
// alphabets, padding excluded.
func isBase64Char(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '+' || c == '/' || c == '_' || c == '-'
}

// forEachBase64Run calls fn for every maximal run of base64 characters that
// is at least minLen long and followed by at most two '=' before a
// non-base64 byte. Runs with padding in the middle are not runs.
func forEachBase64Run(text []byte, minLen int, fn func(start, end int) bool) {
	n := len(text)
	for i := 0; i < n; {
		if !isBase64Char(text[i]) && text[i] != '=' {
			i++
			continue
		}
		start := i
		for i < n && (isBase64Char(text[i]) || text[i] == '=') {
			i++
		}

		body := start
		for body < i && text[body] != '=' {
			body++
		}
		pad := i - body
		if body-start < minLen || pad > 2 || strings.Trim(string(text[body:i]), "=") != "" {
			continue
		}
		if !fn(start, i) {
			return
		}
	}
}
