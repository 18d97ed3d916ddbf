package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Kind discriminates ingestion sources.
type Kind string

const (
	// KindPDF is an uploaded PDF buffer.
	KindPDF Kind = "pdf"
	// KindURL is a web page fetched by the service.
	KindURL Kind = "url"
	// KindText is raw caller text.
	KindText Kind = "text"
	// KindTranscripts is a set of timestamped transcript files.
	KindTranscripts Kind = "transcripts"
)

// File is one uploaded transcript.
type File struct {
	Name string
	Data []byte
}

// Source is the tagged union of ingestion inputs, decided once at the API boundary.
// Only the field matching Kind is set.
type Source struct {
	kind  Kind
	data  []byte
	url   string
	text  string
	files []File
}

// PDF wraps a PDF buffer.
func PDF(data []byte) (Source, error) {
	if len(data) == 0 {
		return Source{}, domain.NewValidationError("pdf", "is empty")
	}
	return Source{kind: KindPDF, data: data}, nil
}

// URL wraps an absolute http(s) URL.
func URL(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, domain.NewValidationError("url", "is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Source{}, domain.NewValidationError("url", "must be an absolute http(s) URL")
	}
	return Source{kind: KindURL, url: u.String()}, nil
}

// Text wraps raw text.
func Text(text string) (Source, error) {
	if strings.TrimSpace(text) == "" {
		return Source{}, domain.NewValidationError("content", "is required")
	}
	return Source{kind: KindText, text: text}, nil
}

// Transcripts wraps one or more transcript files.
func Transcripts(files []File) (Source, error) {
	if len(files) == 0 {
		return Source{}, domain.NewValidationError("vtt", "at least one file is required")
	}
	for i, f := range files {
		if len(f.Data) == 0 {
			return Source{}, domain.NewValidationError("vtt", fmt.Sprintf("file %d (%s) is empty", i, f.Name))
		}
	}
	return Source{kind: KindTranscripts, files: files}, nil
}

// Kind returns the variant tag.
func (s Source) Kind() Kind { return s.kind }

// PDFData returns the PDF buffer.
func (s Source) PDFData() []byte { return s.data }

// URL returns the page address.
func (s Source) URL() string { return s.url }

// Text returns the raw text.
func (s Source) Text() string { return s.text }

// Files returns the transcript files.
func (s Source) Files() []File { return s.files }
