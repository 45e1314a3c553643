package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ironsheep/image-extract-mcp/internal/decompress"
	"github.com/ironsheep/image-extract-mcp/internal/sniff"
)

// Default limits.
const (
	DefaultMaxCandidates    = 24
	DefaultMaxTextScanBytes = 2 * 1024 * 1024
	DefaultMaxDecodedBytes  = 8 * 1024 * 1024
	DefaultMarkerScanBytes  = 256 * 1024
)

// Options tunes an Extractor. Zero fields take the defaults above.
type Options struct {
	MaxCandidates    int
	MaxTextScanBytes int
	MaxDecodedBytes  int
	MarkerScanBytes  int

	// MaxInflated is handed to the decompressor by Eligible.
	MaxInflated int64

	// Strategies overrides the text passes run after the whole-body
	// candidate. Nil means DefaultStrategies().
	Strategies []Strategy

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MaxTextScanBytes <= 0 {
		o.MaxTextScanBytes = DefaultMaxTextScanBytes
	}
	if o.MaxDecodedBytes <= 0 {
		o.MaxDecodedBytes = DefaultMaxDecodedBytes
	}
	if o.MarkerScanBytes <= 0 {
		o.MarkerScanBytes = DefaultMarkerScanBytes
	}
	if o.Strategies == nil {
		o.Strategies = DefaultStrategies()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Extractor finds image candidates in canonical (already decompressed)
// bodies. It holds no per-scan state and is safe for concurrent use.
type Extractor struct {
	opts Options
}

// New returns an Extractor with opts applied over the defaults.
func New(opts Options) *Extractor {
	opts.defaults()
	return &Extractor{opts: opts}
}

// MaxCandidates returns the configured cap.
func (e *Extractor) MaxCandidates() int { return e.opts.MaxCandidates }

// Extract runs the default strategies over body with the given cap.
func Extract(body []byte, contentType string, maxCandidates int) []Candidate {
	return New(Options{MaxCandidates: maxCandidates}).Extract(body, contentType)
}

// Extract returns the candidates found in body, in strategy priority order
// and then discovery order, never more than the configured cap.
//
// The whole body is offered first. The text strategies run only when the
// body looks like text, and only over its first MaxTextScanBytes bytes.
// Undecodable or rejected matches are skipped; they never stop the scan.
func (e *Extractor) Extract(body []byte, contentType string) []Candidate {
	s := &scanState{
		opts:  &e.opts,
		index: NewIndex(),
	}
	if len(body) == 0 {
		return s.out
	}

	if sniff.LooksLikeImage(body, 0) {
		s.offer(KindBody, 0, 0, contentType, bytes.Clone(body))
	} else {
		s.skip(KindBody, 0, fmt.Errorf("%w: no image signature", ErrMalformedCandidate))
	}

	if s.full() || !IsLikelyText(contentType, body) {
		return s.out
	}

	text := body
	if len(text) > e.opts.MaxTextScanBytes {
		text = text[:e.opts.MaxTextScanBytes]
	}

	for _, strategy := range e.opts.Strategies {
		if s.full() {
			break
		}
		kind := strategy.Kind()
		n := 0
		strategy.Scan(text, e.opts.MaxDecodedBytes, func(m Match) bool {
			if m.Err != nil {
				s.skip(kind, m.Offset, m.Err)
				return !s.full()
			}
			// Every decoded match takes a number, kept or not.
			n++
			s.offer(kind, n, m.Offset, m.Type, m.Data)
			return !s.full()
		})
	}
	return s.out
}

// scanState is local to one Extract call.
type scanState struct {
	opts  *Options
	index *Index
	out   []Candidate
}

func (s *scanState) full() bool { return len(s.out) >= s.opts.MaxCandidates }

func (s *scanState) offer(kind Kind, n, offset int, typ string, data []byte) {
	if err := s.accept(kind, n, offset, typ, data); err != nil {
		s.skip(kind, offset, err)
	}
}

// accept is the acceptance gate shared by every strategy. n is the match
// number within the strategy and becomes the label suffix.
func (s *scanState) accept(kind Kind, n, offset int, typ string, data []byte) error {
	switch {
	case len(data) == 0:
		return fmt.Errorf("%w: empty", ErrCandidateRejected)
	case len(data) > s.opts.MaxDecodedBytes:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrCandidateRejected, len(data), s.opts.MaxDecodedBytes)
	case s.full():
		return fmt.Errorf("%w: candidate cap reached", ErrCandidateRejected)
	case !s.index.Add(data):
		return fmt.Errorf("%w: duplicate", ErrCandidateRejected)
	}

	s.out = append(s.out, Candidate{
		Label:    kind.label(n),
		Type:     strings.TrimSpace(typ),
		Format:   sniff.Detect(data, 0),
		Strategy: kind,
		Offset:   offset,
		Data:     data,
	})
	return nil
}

func (s *scanState) skip(kind Kind, offset int, err error) {
	s.opts.Logger.Debug("extract: candidate skipped",
		"strategy", kind.String(), "offset", offset, "error", err)
}

// Eligible reports whether a response deserves an image view at all. It is
// much cheaper than Extract: a declared image type, a signature at the start
// of the decompressed body, or an embedded marker in a text body suffice.
// When decompression fails the raw body is sniffed instead.
func (e *Extractor) Eligible(body []byte, contentType, contentEncoding string) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return true
	}
	if len(body) == 0 {
		return false
	}

	decoded, err := decompress.Decode(body, contentEncoding, decompress.Options{MaxInflated: e.opts.MaxInflated})
	if err != nil {
		e.opts.Logger.Debug("extract: eligibility decode failed", "error", err)
		return sniff.LooksLikeImage(body, 0)
	}
	return sniff.LooksLikeImage(decoded, 0) ||
		HasEmbeddedMarker(decoded, contentType, e.opts.MarkerScanBytes)
}
