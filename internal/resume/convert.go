package resume

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZIP  = "application/zip"
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

// ErrUnsupportedFormat is returned for documents FileConverter cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// FileConverter extracts text locally from PDF, DOCX, HTML and plain text
// documents. It does not try to find contact fields.
type FileConverter struct{}

func (FileConverter) Convert(_ context.Context, filename string, data []byte) (*Document, error) {
	mtype := mimetype.Detect(data)

	var (
		text string
		err  error
	)
	switch {
	case is(mtype, mimePDF):
		text, err = pdfText(data)
	case is(mtype, mimeDOCX), is(mtype, mimeZIP) && strings.EqualFold(filepath.Ext(filename), ".docx"):
		text, err = docxText(data)
	case is(mtype, mimeHTML):
		text, err = htmlText(data)
	case is(mtype, mimeText), utf8.Valid(data):
		text = string(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
	}
	if err != nil {
		return nil, err
	}

	return &Document{Text: cleanWhitespace(text)}, nil
}

func is(mtype *mimetype.MIME, name string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(name) {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(out), nil
}

// docxText concatenates the text runs of word/document.xml, one line per
// paragraph.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open docx body: %w", err)
			}
			break
		}
	}
	if body == nil {
		return "", errors.New("docx has no word/document.xml")
	}
	defer body.Close()

	var (
		b      strings.Builder
		inText bool
	)
	decoder := xml.NewDecoder(body)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav").Remove()
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, div, section, tr, br").AfterHtml("\n")

	return doc.Find("body").Text(), nil
}

// cleanWhitespace trims every line and drops blank ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
