package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// WordExtractor decodes legacy .doc and OOXML .docx files via docconv.
// The format is chosen by the file's extension since both types are
// registered against this extractor.
type WordExtractor struct{}

func (e *WordExtractor) ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".doc":
		body, _, err = docconv.ConvertDoc(f)
	default:
		body, _, err = docconv.ConvertDocx(f)
	}
	if err != nil {
		return "", fmt.Errorf("failed to convert word document: %w", err)
	}

	return body, nil
}
