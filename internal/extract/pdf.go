// Package extract pulls plain text out of PDF binaries for chunking.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes caps in-memory extraction; open-access papers are far
// smaller than this.
const maxPDFBytes = 200 << 20

// PDFFile reads a PDF from disk and returns its plain text.
func PDFFile(path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}
	if stat.Size() > maxPDFBytes {
		return "", fmt.Errorf("pdf %s too large for in-memory extraction (%d bytes)", path, stat.Size())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return PDFBytes(content)
}

// PDFBytes extracts text page by page. Pages that fail to parse are
// skipped rather than failing the document; NUL bytes are stripped
// because Postgres text columns reject them.
func PDFBytes(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	out := strings.ReplaceAll(b.String(), "\x00", "")
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return out, nil
}
