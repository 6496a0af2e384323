package resume

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	doc *Document
	err error
}

func (f fakeConverter) Convert(context.Context, string, []byte) (*Document, error) {
	return f.doc, f.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestIngestExtractsContact(t *testing.T) {
	path := writeFile(t, "resume.txt", []byte("\n\n  Jane Doe  \nhas email jane@x.com, phone 555-123-4567\nGo developer\n"))

	r, err := Ingest(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "jane@x.com", r.Email)
	assert.Equal(t, "555-123-4567", r.Phone)
	assert.Regexp(t, `^\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}$`, r.Phone)
	assert.Equal(t, "Jane Doe\nhas email jane@x.com, phone 555-123-4567\nGo developer", r.Text)
}

func TestIngestMissingFieldsStayEmpty(t *testing.T) {
	path := writeFile(t, "resume.md", []byte("# John Smith\nBackend engineer"))

	r, err := Ingest(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "John Smith", r.Name)
	assert.Empty(t, r.Email)
	assert.Empty(t, r.Phone)
}

func TestIngestConverterFieldsWin(t *testing.T) {
	path := writeFile(t, "resume.pdf", []byte("binary"))
	conv := fakeConverter{doc: &Document{
		Text:  "Header line\ncontact: other@y.org",
		Email: "jane@x.com",
		Name:  "Jane Doe",
	}}

	r, err := Ingest(context.Background(), path, conv)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "jane@x.com", r.Email)
	assert.Empty(t, r.Phone)
}

func TestIngestErrors(t *testing.T) {
	boom := errors.New("service unavailable")

	tests := []struct {
		name string
		path func(t *testing.T) string
		conv Converter
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.pdf") },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeFile(t, "empty.txt", nil) },
		},
		{
			name: "converter failure",
			path: func(t *testing.T) string { return writeFile(t, "r.pdf", []byte("x")) },
			conv: fakeConverter{err: boom},
		},
		{
			name: "no text",
			path: func(t *testing.T) string { return writeFile(t, "r.pdf", []byte("x")) },
			conv: fakeConverter{doc: &Document{Text: "  \n "}},
		},
		{
			name: "unsupported binary",
			path: func(t *testing.T) string {
				return writeFile(t, "photo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Ingest(context.Background(), tt.path(t), tt.conv)

			var ie *IngestError
			require.True(t, errors.As(err, &ie), "expected IngestError, got %v", err)
		})
	}
}

func TestFileConverterHTML(t *testing.T) {
	html := []byte(`<html><head><style>p{}</style></head><body><h1>Jane Doe</h1><p>jane@x.com</p><ul><li>Go</li><li>Kubernetes</li></ul><script>var x;</script></body></html>`)

	doc, err := FileConverter{}.Convert(context.Background(), "resume.html", html)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\njane@x.com\nGo\nKubernetes", doc.Text)
}

func TestFileConverterDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`))
	require.NoError(t, err)

	body, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = body.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := FileConverter{}.Convert(context.Background(), "resume.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills:\tGo", doc.Text)
}

func TestFileConverterMalformedPDF(t *testing.T) {
	_, err := FileConverter{}.Convert(context.Background(), "resume.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))
	assert.Error(t, err)
}

func TestFileConverterUnsupported(t *testing.T) {
	_, err := FileConverter{}.Convert(context.Background(), "photo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractContactPhoneFormats(t *testing.T) {
	for _, phone := range []string{"555-123-4567", "(555) 123-4567", "+1 555 123 4567", "555.123.4567"} {
		c := ExtractContact("Name\nPhone: " + phone)
		assert.Equal(t, phone, c.Phone)
	}
}
