package ocr

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"docintel/internal/domain"
)

const pdfMIME = "application/pdf"

// DetectPDF sniffs the file header and returns ErrNotPDF for anything else.
func DetectPDF(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect type of %s: %w", path, err)
	}
	if !mt.Is(pdfMIME) {
		return fmt.Errorf("%w: %s is %s", domain.ErrNotPDF, path, mt.String())
	}
	return nil
}
