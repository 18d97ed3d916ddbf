package normalizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/version"
)

func (n *Normalizer) fetchPage(ctx context.Context, rawURL string) ([]document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %v: %w", err, domain.ErrUnsupportedInput)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", rawURL, err, domain.ErrUnsupportedInput)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d: %w", rawURL, resp.StatusCode, domain.ErrUnsupportedInput)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, n.maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", rawURL, err, domain.ErrUnsupportedInput)
	}
	if int64(len(body)) > n.maxPageBytes {
		return nil, fmt.Errorf("page exceeds %d bytes: %w", n.maxPageBytes, domain.ErrUnsupportedInput)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var text string
	switch mediaType {
	case "text/html", "application/xhtml+xml", "":
		text, err = visibleText(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse html: %v: %w", err, domain.ErrUnsupportedInput)
		}
	case "text/plain":
		text = string(body)
	default:
		return nil, fmt.Errorf("content type %q: %w", mediaType, domain.ErrUnsupportedInput)
	}

	n.logger.Debug("page fetched",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Int("text_chars", len(text)),
	)

	doc, err := document.New(text, rawURL)
	if err != nil {
		return nil, err
	}
	return []document.Document{doc}, nil
}

var skippedElements = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Svg: true, atom.Iframe: true, atom.Canvas: true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Aside: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Table: true, atom.Tr: true,
	atom.Blockquote: true, atom.Pre: true, atom.Br: true, atom.Hr: true,
	atom.Figure: true, atom.Figcaption: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
}

// visibleText renders what a reader sees: text nodes outside non-content
// elements, one line per block element, paragraphs separated by a blank line.
func visibleText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var lines []string
	var cur strings.Builder
	flush := func(paragraph bool) {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
			if paragraph {
				lines = append(lines, "")
			}
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			cur.WriteString(node.Data)
			return
		case html.ElementNode:
			if skippedElements[node.DataAtom] {
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}

		block := node.Type == html.ElementNode && blockElements[node.DataAtom]
		if block {
			flush(false)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			flush(isParagraph(node.DataAtom))
		}
	}
	walk(root)
	flush(false)

	return strings.TrimSpace(strings.Join(compactBlank(lines), "\n")), nil
}

func isParagraph(a atom.Atom) bool {
	switch a {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Section, atom.Article, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

// compactBlank collapses runs of empty lines into one.
func compactBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if l == "" && (i == 0 || lines[i-1] == "") {
			continue
		}
		out = append(out, l)
	}
	return out
}
