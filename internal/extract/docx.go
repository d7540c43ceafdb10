package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"documind/internal/model"
)

// extractDOCX concatenates every paragraph of word/document.xml into a
// single page. A .docx file is a zip container of WordprocessingML.
func extractDOCX(_ context.Context, _ *Extractor, source string) ([]model.Page, error) {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, fmt.Errorf("open docx failed: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return nil, err
	}
	return []model.Page{{Number: 1, Text: strings.Join(paragraphs, "\n")}}, nil
}

// docxParagraphs walks the XML token stream collecting w:t runs, closing a
// paragraph on each </w:p>.
func docxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var paragraphs []string
	var current strings.Builder

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse docx xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				var run string
				if err := decoder.DecodeElement(&run, &t); err != nil {
					return nil, fmt.Errorf("decode docx text run failed: %w", err)
				}
				current.WriteString(run)
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs, nil
}
