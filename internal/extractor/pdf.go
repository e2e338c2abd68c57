package extractor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// PDFCPUExtractor implements interfaces.PDFExtractor using pdfcpu, which has
// no in-memory API for content extraction -- it round-trips through a temp
// file, as the upstream CLI does.
type PDFCPUExtractor struct {
	tempDir string
}

var _ interfaces.PDFExtractor = (*PDFCPUExtractor)(nil)

// NewPDFCPUExtractor creates a PDFCPUExtractor using tempDir for scratch
// files (created if absent).
func NewPDFCPUExtractor(tempDir string) *PDFCPUExtractor {
	os.MkdirAll(tempDir, 0o755)
	return &PDFCPUExtractor{tempDir: tempDir}
}

// ExtractText extracts per-page text content from a PDF byte stream.
func (e *PDFCPUExtractor) ExtractText(body []byte) ([]interfaces.PDFPage, error) {
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%d.pdf", os.Getpid()))
	if err := os.WriteFile(tempFile, body, 0o644); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d", os.Getpid()))
	os.MkdirAll(outDir, 0o755)
	defer os.RemoveAll(outDir)

	pages := make([]interfaces.PDFPage, 0, pageCount)
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		for n := 1; n <= pageCount; n++ {
			pages = append(pages, interfaces.PDFPage{N: n})
		}
		return pages, nil
	}

	files, _ := os.ReadDir(outDir)
	pageTexts := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &n); err == nil {
			pageTexts[n] = string(content)
		}
	}

	for n := 1; n <= pageCount; n++ {
		pages = append(pages, interfaces.PDFPage{N: n, Text: pageTexts[n]})
	}
	return pages, nil
}
