package scanning

import (
	"context"
	"errors"
)

// ErrExtractionEmpty means the OCR provider returned no readable text.
// Records that fail this way are skipped and never persisted.
var ErrExtractionEmpty = errors.New("extraction produced no text")

// Extractor defines the interface for turning a captured image into raw
// text. Implementations fail closed: an empty result is ErrExtractionEmpty,
// never an empty string with a nil error.
type Extractor interface {
	// ExtractText reads all visible text from an image or PDF.
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases provider resources.
	Close() error
}
