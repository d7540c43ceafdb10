package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"

	"documind/internal/model"
)

// extractPDF reads the text layer page by page. When every page comes back
// blank the file is treated as a scanned PDF and re-run through page-image
// extraction plus OCR.
func extractPDF(ctx context.Context, e *Extractor, source string) ([]model.Page, error) {
	pages, err := pdfTextPages(source)
	if err != nil {
		return nil, err
	}
	if !allBlank(pages) {
		return pages, nil
	}
	ocrPages, err := e.scannedPDFPages(ctx, source)
	if err != nil {
		log.Printf("ocr fallback for %s failed: %v", source, err)
		return pages, nil
	}
	if len(ocrPages) > 0 {
		return ocrPages, nil
	}
	return pages, nil
}

func pdfTextPages(path string) ([]model.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]model.Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, model.Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, model.Page{Number: i, Text: text})
	}
	return pages, nil
}

func allBlank(pages []model.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// imagePageNr matches the page number pdfcpu encodes into extracted image
// file names (<base>_<page>_<resource>.<ext>).
var imagePageNr = regexp.MustCompile(`_(\d+)_[^_]+$`)

// scannedPDFPages extracts the embedded page images (a scanned PDF is one
// full-page image per page) and runs each through tesseract.
func (e *Extractor) scannedPDFPages(ctx context.Context, source string) ([]model.Page, error) {
	if e.ocr == nil {
		return nil, fmt.Errorf("no ocr runner configured")
	}

	dir, err := os.MkdirTemp("", "documind-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := pdfcpu.ExtractImagesFile(source, dir, nil, nil); err != nil {
		return nil, fmt.Errorf("extract pdf images failed: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	texts := map[int][]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		m := imagePageNr.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		pageNr, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		text, err := e.ocr.ImageToText(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("ocr page %d of %s failed: %v", pageNr, source, err)
			continue
		}
		texts[pageNr] = append(texts[pageNr], text)
	}

	numbers := make([]int, 0, len(texts))
	for nr := range texts {
		numbers = append(numbers, nr)
	}
	sort.Ints(numbers)

	pages := make([]model.Page, 0, len(numbers))
	for _, nr := range numbers {
		pages = append(pages, model.Page{Number: nr, Text: strings.Join(texts[nr], "\n")})
	}
	return pages, nil
}
