package extract

import (
	"context"
	"log"
	"os"
	"time"

	"documind/internal/model"
)

// Extractor converts a source file (or URL, for HTML) into per-page raw
// text. Dispatch is a strategy table keyed by DocType, so new formats are
// additive.
type Extractor struct {
	ocr         *OCR
	httpTimeout time.Duration
}

func New(ocr *OCR) *Extractor {
	return &Extractor{
		ocr:         ocr,
		httpTimeout: 30 * time.Second,
	}
}

type extractFunc func(ctx context.Context, e *Extractor, source string) ([]model.Page, error)

var strategies = map[model.DocType]extractFunc{
	model.DocTypePDF:   extractPDF,
	model.DocTypeDOCX:  extractDOCX,
	model.DocTypeTXT:   extractTXT,
	model.DocTypeHTML:  extractHTML,
	model.DocTypeImage: extractImage,
}

// Extract runs the strategy for docType against source. It never fails:
// any extraction error is logged and degrades to a single empty page, so a
// bad input file cannot crash the ingestion pipeline. Downstream chunking
// produces zero chunks for empty text.
func (e *Extractor) Extract(ctx context.Context, source string, docType model.DocType) []model.Page {
	fn, ok := strategies[docType]
	if !ok {
		log.Printf("extract: no strategy for doctype %q", docType)
		return []model.Page{{Number: 1}}
	}
	pages, err := fn(ctx, e, source)
	if err != nil {
		log.Printf("extract %s failed: %v", source, err)
		return []model.Page{{Number: 1}}
	}
	if len(pages) == 0 {
		return []model.Page{{Number: 1}}
	}
	return pages
}

func extractTXT(_ context.Context, _ *Extractor, source string) ([]model.Page, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	return []model.Page{{Number: 1, Text: string(raw)}}, nil
}
