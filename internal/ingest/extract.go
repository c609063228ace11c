// Package ingest turns uploaded documents into embedded chunks in the vector
// store and keeps the query cache consistent with document changes.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("ingest: unsupported document type")
	ErrNoText          = errors.New("ingest: document has no extractable text")
)

// SupportedExtensions lists the file types Extract understands.
var SupportedExtensions = []string{".pdf", ".txt", ".md"}

// Page is the text of one page. Plain-text documents are a single page 0.
type Page struct {
	Number int
	Text   string
}

// Supported reports whether name has an extension Extract understands.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Extract returns the text pages of a document, chosen by file extension.
func Extract(name string, data []byte) ([]Page, error) {
	var (
		pages []Page
		err   error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		pages, err = extractPDF(data)
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedType, name)
		}
		pages = []Page{{Number: 0, Text: string(data)}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return pages, nil
		}
	}
	return nil, ErrNoText
}

func extractPDF(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ingest: open pdf: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip pages with broken fonts/content streams
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
