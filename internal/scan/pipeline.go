package scan

import (
	"context"
	"log/slog"

	"github.com/ironsheep/image-extract-mcp/internal/decompress"
	"github.com/ironsheep/image-extract-mcp/internal/extract"
	"github.com/ironsheep/image-extract-mcp/internal/imaging"
)

// Request is a response body to scan, with its declared headers. The body
// is owned by the caller and only read.
type Request struct {
	Body            []byte
	ContentType     string
	ContentEncoding string
}

// Pipeline turns a request into gallery entries. It should return
// ctx.Err() when it notices cancellation, but is not required to.
type Pipeline func(ctx context.Context, req *Request) ([]imaging.Entry, error)

// NewPipeline returns the standard pipeline: decompress, extract, then
// decode each candidate. Decompression failures are returned as
// *decompress.DecodeError. iopts.Logger also receives the pipeline's own
// debug output.
func NewPipeline(ex *extract.Extractor, dopts decompress.Options, iopts imaging.Options) Pipeline {
	logger := iopts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req *Request) ([]imaging.Entry, error) {
		body, err := decompress.Decode(req.Body, req.ContentEncoding, dopts)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := ex.Extract(body, req.ContentType)
		logger.Debug("scan: extracted candidates", "count", len(candidates), "body_bytes", len(body))
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return imaging.Render(ctx, candidates, iopts)
	}
}
