package normalizer

import (
	"bufio"
	"bytes"
	"fmt"
	"html"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
)

var cueTagRegex = regexp.MustCompile(`<[^>]*>`)

type cue struct {
	start, end time.Duration
	text       string
}

// parseTranscripts yields one document per file. Any unparseable file fails the whole set.
func parseTranscripts(files []source.File) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(files))
	for _, f := range files {
		cues, err := parseCues(f.Data)
		if err != nil {
			return nil, fmt.Errorf("transcript %s: %w", f.Name, err)
		}
		doc, err := transcriptDocument(baseName(f.Name), cues)
		if err != nil {
			return nil, fmt.Errorf("transcript %s: %w", f.Name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// transcriptDocument joins cue texts with newlines and records each cue's span.
func transcriptDocument(name string, cues []cue) (document.Document, error) {
	var sb strings.Builder
	spans := make([]document.Cue, len(cues))
	offset := 0
	for i, c := range cues {
		if i > 0 {
			sb.WriteByte('\n')
			offset++
		}
		n := utf8.RuneCountInString(c.text)
		spans[i] = document.Cue{Start: c.start, End: c.end, Offset: offset, Length: n}
		sb.WriteString(c.text)
		offset += n
	}

	doc, err := document.New(sb.String(), name)
	if err != nil {
		return document.Document{}, err
	}
	return doc.WithCues(spans)
}

// parseCues reads WebVTT cue blocks. SRT files are accepted too: numeric
// identifiers look like VTT cue ids and comma decimals are tolerated.
func parseCues(data []byte) ([]cue, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("not UTF-8 text: %w", domain.ErrUnsupportedInput)
	}

	var (
		cues  []cue
		block []string
	)
	endBlock := func() error {
		defer func() { block = block[:0] }()
		if len(block) == 0 {
			return nil
		}
		c, ok, err := parseBlock(block)
		if err != nil {
			return err
		}
		if ok {
			cues = append(cues, c)
		}
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := endBlock(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %v: %w", err, domain.ErrUnsupportedInput)
	}
	if err := endBlock(); err != nil {
		return nil, err
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("no cues found: %w", domain.ErrUnsupportedInput)
	}
	return cues, nil
}

// parseBlock returns ok=false for header, NOTE, STYLE and REGION blocks and for cues without text.
func parseBlock(lines []string) (cue, bool, error) {
	head := strings.TrimSpace(lines[0])
	for _, kw := range []string{"WEBVTT", "NOTE", "STYLE", "REGION"} {
		if head == kw || strings.HasPrefix(head, kw+" ") || strings.HasPrefix(head, kw+"\t") {
			return cue{}, false, nil
		}
	}

	timing := -1
	for i, l := range lines[:min(2, len(lines))] {
		if strings.Contains(l, "-->") {
			timing = i
			break
		}
	}
	if timing < 0 {
		return cue{}, false, fmt.Errorf("block %q has no timing line: %w", head, domain.ErrUnsupportedInput)
	}

	start, end, err := parseTiming(lines[timing])
	if err != nil {
		return cue{}, false, err
	}

	parts := make([]string, 0, len(lines)-timing-1)
	for _, l := range lines[timing+1:] {
		l = strings.TrimSpace(html.UnescapeString(cueTagRegex.ReplaceAllString(l, "")))
		if l != "" {
			parts = append(parts, l)
		}
	}
	if len(parts) == 0 {
		return cue{}, false, nil
	}
	return cue{start: start, end: end, text: strings.Join(parts, " ")}, true, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[1] != "-->" {
		return 0, 0, fmt.Errorf("bad timing line %q: %w", line, domain.ErrUnsupportedInput)
	}
	start, err := parseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(fields[2])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts in %q: %w", line, domain.ErrUnsupportedInput)
	}
	return start, end, nil
}

// parseTimestamp accepts hh:mm:ss.ttt and mm:ss.ttt, with '.' or ','.
// maxCueHours caps cue timestamps at 99:59:59.999.
const maxCueHours = 99

func parseTimestamp(s string) (time.Duration, error) {
	bad := fmt.Errorf("bad timestamp %q: %w", s, domain.ErrUnsupportedInput)

	s = strings.Replace(s, ",", ".", 1)
	clock, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 3 {
		return 0, bad
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, bad
	}

	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}[3-len(parts):]
	// the leading field is bounded by maxCueHours, whichever unit it is in
	lead := maxCueHours
	if len(parts) == 2 {
		lead = maxCueHours*60 + 59
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || (i == 0 && v > lead) || (i > 0 && v > 59) {
			return 0, bad
		}
		total += time.Duration(v) * units[i]
	}
	ms, err := strconv.Atoi(frac)
	if err != nil || ms < 0 {
		return 0, bad
	}
	return total + time.Duration(ms)*time.Millisecond, nil
}

// baseName strips directories and the final extension: "talks/intro.en.vtt" -> "intro.en".
func baseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		return "transcript"
	}
	return base
}
