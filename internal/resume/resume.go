// Package resume reads a resume document and normalizes it into a Resume.
package resume

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spigell/ats-analyzer/internal/utils"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?(?:\(\d{3}\)|\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

// Resume is the normalized text of a resume with best-effort contact fields.
// Fields that could not be found are empty.
type Resume struct {
	Text  string
	Name  string
	Email string
	Phone string
}

// Document is what a Converter extracts from raw file bytes.
type Document struct {
	Text  string
	Name  string
	Email string
	Phone string
}

// Converter turns document bytes into text.
type Converter interface {
	Convert(ctx context.Context, filename string, data []byte) (*Document, error)
}

// Ingest reads the file at path and converts it with conv. FileConverter is
// used when conv is nil.
func Ingest(ctx context.Context, path string, conv Converter) (*Resume, error) {
	if conv == nil {
		conv = FileConverter{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IngestError{Path: path, Message: "read file", Cause: err}
	}
	if len(data) == 0 {
		return nil, &IngestError{Path: path, Message: "file is empty"}
	}

	doc, err := conv.Convert(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, &IngestError{Path: path, Message: "convert document", Cause: err}
	}
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, &IngestError{Path: path, Message: "no text could be extracted"}
	}

	text := strings.TrimSpace(doc.Text)
	found := ExtractContact(text)

	return &Resume{
		Text:  text,
		Name:  utils.FirstNonEmpty(doc.Name, found.Name),
		Email: utils.FirstNonEmpty(doc.Email, found.Email),
		Phone: utils.FirstNonEmpty(doc.Phone, found.Phone),
	}, nil
}

// Contact holds the contact fields found in resume text.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// ExtractContact finds the first email address, the first phone number and
// takes the first non-blank line as the name.
func ExtractContact(text string) Contact {
	var c Contact

	c.Email = emailPattern.FindString(text)
	c.Phone = strings.TrimSpace(phonePattern.FindString(text))

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			c.Name = line
			break
		}
	}

	return c
}
