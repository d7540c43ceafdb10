package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-shiori/go-readability"

	"documind/internal/model"
)

// extractHTML strips boilerplate and keeps the main content. The source is
// fetched when it is an http(s) URL, otherwise parsed as a local file.
func extractHTML(_ context.Context, e *Extractor, source string) ([]model.Page, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		article, err := readability.FromURL(source, e.httpTimeout)
		if err != nil {
			return nil, fmt.Errorf("fetch html content failed: %w", err)
		}
		return []model.Page{{Number: 1, Text: article.TextContent}}, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	article, err := readability.FromReader(f, nil)
	if err != nil {
		return nil, fmt.Errorf("parse html content failed: %w", err)
	}
	return []model.Page{{Number: 1, Text: article.TextContent}}, nil
}

func extractImage(ctx context.Context, e *Extractor, source string) ([]model.Page, error) {
	if e.ocr == nil {
		return nil, fmt.Errorf("no ocr runner configured")
	}
	text, err := e.ocr.ImageToText(ctx, source)
	if err != nil {
		return nil, err
	}
	return []model.Page{{Number: 1, Text: text}}, nil
}
