// Package extract turns office documents into plain text. Decoders are
// selected by the upload's declared content type, not by sniffing.
package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/corpusworks/docindex/internal/domain"
)

// Extractor decodes one document format from a local file into plain text.
type Extractor interface {
	ExtractFile(path string) (string, error)
}

// Registry dispatches extraction by declared content type.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a registry with the default decoders: PDF, Word
// (doc/docx) and plain text.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register("pdf", &PDFExtractor{})
	word := &WordExtractor{}
	r.Register("doc", word)
	r.Register("docx", word)
	r.Register("txt", &PlainTextExtractor{})
	return r
}

// Register installs an extractor for a content type.
func (r *Registry) Register(contentType string, e Extractor) {
	r.extractors[contentType] = e
}

// Extract decodes the file at path according to the declared content type.
// Unknown types fail with ErrUnsupportedFormat.
func (r *Registry) Extract(path, contentType string) (string, error) {
	e, ok := r.extractors[NormalizeContentType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, contentType)
	}

	text, err := e.ExtractFile(path)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, "text extraction failed", err)
	}
	return text, nil
}

// IsSupported reports whether the declared content type maps to a format
// the default registry can decode.
func IsSupported(contentType string) bool {
	switch NormalizeContentType(contentType) {
	case "pdf", "doc", "docx", "txt":
		return true
	}
	return false
}

// NormalizeContentType maps MIME types and file extensions onto the short
// format keys the registry dispatches on.
func NormalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch ct {
	case "application/pdf":
		return "pdf"
	case "application/msword":
		return "doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "text/plain":
		return "txt"
	}

	return strings.TrimPrefix(ct, ".")
}

// PlainTextExtractor reads the file verbatim.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
