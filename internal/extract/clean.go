package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"documind/internal/model"
)

// CleanText normalizes text to NFKC and strips control-category runes.
// Newlines, carriage returns and tabs survive cleaning so the chunker can
// still see paragraph and line boundaries.
func CleanText(text string) string {
	normalized := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.In(r, unicode.C) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanPages applies CleanText to every page before chunking.
func CleanPages(pages []model.Page) []model.Page {
	cleaned := make([]model.Page, len(pages))
	for i, p := range pages {
		cleaned[i] = model.Page{Number: p.Number, Text: CleanText(p.Text)}
	}
	return cleaned
}
