package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DocType identifies the source format of an uploaded document.
type DocType string

const (
	DocTypePDF   DocType = "pdf"
	DocTypeDOCX  DocType = "docx"
	DocTypeTXT   DocType = "txt"
	DocTypeHTML  DocType = "html"
	DocTypeImage DocType = "image"
)

// ErrUnsupportedFormat is returned for file extensions outside the fixed
// type set. Uploads fail on it synchronously, before any queueing.
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format")

var extToDocType = map[string]DocType{
	".pdf":  DocTypePDF,
	".docx": DocTypeDOCX,
	".txt":  DocTypeTXT,
	".html": DocTypeHTML,
	".jpg":  DocTypeImage,
	".jpeg": DocTypeImage,
	".png":  DocTypeImage,
}

// DetectDocType maps a filename extension to its DocType.
func DetectDocType(filename string) (DocType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	dt, ok := extToDocType[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return dt, nil
}
