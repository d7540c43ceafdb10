package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCR runs optical character recognition through the external tesseract
// binary.
type OCR struct {
	binPath string
}

func NewOCR(binPath string) *OCR {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &OCR{binPath: binPath}
}

// ImageToText recognizes the text in a single image file.
func (o *OCR) ImageToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, o.binPath, path, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
