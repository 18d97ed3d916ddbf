package vecrag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// UploadText ingests raw text into the collection named title.
func (c *Client) UploadText(ctx context.Context, title, content string) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_content", start, err) }()

	return c.uploadJSON(ctx, "/upload/content", uploadTextRequest{Title: title, Content: content})
}

// UploadURL asks the server to fetch a web page and ingest its readable text.
func (c *Client) UploadURL(ctx context.Context, title, pageURL string) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_url", start, err) }()

	return c.uploadJSON(ctx, "/upload/url", uploadURLRequest{Title: title, URL: pageURL})
}

// UploadPDF ingests one PDF document.
func (c *Client) UploadPDF(
	ctx context.Context, title, filename string, pdf io.Reader,
) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_pdf", start, err) }()

	data, err := io.ReadAll(pdf)
	if err != nil {
		return nil, fmt.Errorf("vecrag: read pdf: %w", err)
	}
	return c.uploadMultipart(ctx, "/upload/pdf", title, func(mw *multipart.Writer) error {
		return writePart(mw, "pdf", filename, "application/pdf", data)
	})
}

// UploadTranscripts ingests WebVTT files into one collection.
func (c *Client) UploadTranscripts(ctx context.Context, title string, files []File) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_vtt", start, err) }()

	return c.uploadMultipart(ctx, "/upload/vtt", title, func(mw *multipart.Writer) error {
		for _, f := range files {
			if err := writePart(mw, "vtt", f.Name, "text/vtt", f.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) uploadJSON(ctx context.Context, path string, body any) (*UploadResult, error) {
	var res UploadResult
	h, err := c.doJSON(ctx, http.MethodPost, path, body, &res)
	if err != nil {
		return nil, err
	}
	res.EmbeddingTokens = embeddingTokens(h)
	return &res, nil
}

func (c *Client) uploadMultipart(
	ctx context.Context, path, title string, parts func(*multipart.Writer) error,
) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", title); err != nil {
		return nil, fmt.Errorf("vecrag: build form: %w", err)
	}
	if err := parts(mw); err != nil {
		return nil, fmt.Errorf("vecrag: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("vecrag: build form: %w", err)
	}

	var res UploadResult
	h, err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, &res)
	if err != nil {
		return nil, err
	}
	res.EmbeddingTokens = embeddingTokens(h)
	return &res, nil
}

func writePart(mw *multipart.Writer, field, filename, contentType string, data []byte) error {
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	hdr.Set("Content-Type", contentType)
	w, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
