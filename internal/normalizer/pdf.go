package normalizer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
)

// parsePDF yields one document per page with extractable text.
// The pdf reader panics on some malformed files, so panics become ErrUnsupportedInput.
func parsePDF(data []byte, title string) (docs []document.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("malformed pdf: %v: %w", r, domain.ErrUnsupportedInput)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, domain.ErrUnsupportedInput)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		doc, err := document.New(text, title)
		if err != nil {
			continue
		}
		docs = append(docs, doc.WithPage(i))
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("pdf has no extractable text: %w", domain.ErrUnsupportedInput)
	}
	return docs, nil
}
