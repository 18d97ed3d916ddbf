package chi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
)

// Upload limits.
const (
	DefaultMaxPDFBytes  int64 = 5 << 20
	DefaultMaxVTTBytes  int64 = 10 << 20
	DefaultMaxVTTFiles        = 20
	DefaultMaxJSONBytes int64 = 1 << 20

	// multipartMemory is the in-memory threshold before parts spill to disk.
	multipartMemory = 8 << 20
	// formOverhead covers boundaries and the title field.
	formOverhead = 64 << 10
)

// Limits bounds request bodies.
type Limits struct {
	MaxPDFBytes  int64
	MaxVTTBytes  int64
	MaxVTTFiles  int
	MaxJSONBytes int64
}

// DefaultLimits returns the stock upload limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPDFBytes:  DefaultMaxPDFBytes,
		MaxVTTBytes:  DefaultMaxVTTBytes,
		MaxVTTFiles:  DefaultMaxVTTFiles,
		MaxJSONBytes: DefaultMaxJSONBytes,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPDFBytes <= 0 {
		l.MaxPDFBytes = d.MaxPDFBytes
	}
	if l.MaxVTTBytes <= 0 {
		l.MaxVTTBytes = d.MaxVTTBytes
	}
	if l.MaxVTTFiles <= 0 {
		l.MaxVTTFiles = d.MaxVTTFiles
	}
	if l.MaxJSONBytes <= 0 {
		l.MaxJSONBytes = d.MaxJSONBytes
	}
	return l
}

// errPayloadTooLarge is answered with 400 and code payload_too_large.
var errPayloadTooLarge = errors.New("payload too large")

// parseMultipart reads a multipart form of at most limit bytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errPayloadTooLarge
		}
		return domain.NewValidationError("body", "must be multipart/form-data")
	}
	return nil
}

func formTitle(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("title"))
}

// pdfSource validates the single `pdf` part.
func pdfSource(r *http.Request, maxBytes int64) (source.Source, error) {
	files := r.MultipartForm.File["pdf"]
	if len(files) != 1 {
		return source.Source{}, domain.NewValidationError("pdf", "exactly one file is required")
	}
	fh := files[0]
	if fh.Size > maxBytes {
		return source.Source{}, errPayloadTooLarge
	}
	if mediaType(fh) != "application/pdf" {
		return source.Source{}, domain.NewValidationError("pdf", "must be application/pdf")
	}
	data, err := readPart(fh)
	if err != nil {
		return source.Source{}, err
	}
	return source.PDF(data)
}

// vttSource validates the `vtt` parts.
func vttSource(r *http.Request, maxFiles int, maxBytes int64) (source.Source, error) {
	files := r.MultipartForm.File["vtt"]
	if len(files) == 0 {
		return source.Source{}, domain.NewValidationError("vtt", "at least one file is required")
	}
	if len(files) > maxFiles {
		return source.Source{}, domain.NewValidationError("vtt", fmt.Sprintf("at most %d files are allowed", maxFiles))
	}

	out := make([]source.File, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxBytes {
			return source.Source{}, errPayloadTooLarge
		}
		if mediaType(fh) != "text/vtt" && !strings.EqualFold(filepath.Ext(fh.Filename), ".vtt") {
			return source.Source{}, domain.NewValidationError("vtt", fmt.Sprintf("%s must be text/vtt", fh.Filename))
		}
		data, err := readPart(fh)
		if err != nil {
			return source.Source{}, err
		}
		out = append(out, source.File{Name: fh.Filename, Data: data})
	}
	return source.Transcripts(out)
}

func mediaType(fh *multipart.FileHeader) string {
	mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", fh.Filename, err)
	}
	return data, nil
}
