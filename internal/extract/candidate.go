package extract

import (
	"fmt"

	"github.com/ironsheep/image-extract-mcp/internal/sniff"
)

// Kind identifies the strategy that discovered a candidate.
type Kind int

const (
	KindBody Kind = iota
	KindDataURI
	KindDataURIRaw
	KindEmbeddedBase64
)

func (k Kind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindDataURI:
		return "data-uri"
	case KindDataURIRaw:
		return "data-uri-raw"
	case KindEmbeddedBase64:
		return "embedded-base64"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// label returns the provenance label for the n-th (1-based) decoded match
// of this strategy.
func (k Kind) label(n int) string {
	switch k {
	case KindBody:
		return "Body image"
	case KindDataURI:
		return fmt.Sprintf("Data URI #%d", n)
	case KindDataURIRaw:
		return fmt.Sprintf("Data URI (raw) #%d", n)
	case KindEmbeddedBase64:
		return fmt.Sprintf("Embedded base64 #%d", n)
	default:
		return fmt.Sprintf("Candidate #%d", n)
	}
}

// Candidate is a byte span that is likely a complete image container.
//
// Data is owned by the candidate: it never aliases the scanned body. A
// candidate is not modified after Extract returns it.
type Candidate struct {
	// Label is the provenance label, e.g. "Body image" or "Data URI #2".
	Label string `json:"label"`

	// Type is the declared MIME type ("image/png" from a data URI, the
	// Content-Type for the body). Empty when nothing was declared.
	Type string `json:"type,omitempty"`

	// Format is the sniffed container format, Unknown when no signature
	// matched at offset 0 of Data.
	Format sniff.Format `json:"format,omitempty"`

	// Strategy is the discovery strategy.
	Strategy Kind `json:"strategy"`

	// Offset is where the match starts in the canonical body.
	Offset int `json:"offset"`

	Data []byte `json:"-"`
}

// Len returns the candidate size in bytes.
func (c Candidate) Len() int { return len(c.Data) }

// Fingerprint returns the dedup key of the candidate bytes.
func (c Candidate) Fingerprint() Fingerprint { return Sum(c.Data) }
