package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/siherrmann/paperdex/model"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// PDFExtractor implements Extractor using pdfcpu. Extraction writes page
// content to a scratch directory and reads it back, which is how pdfcpu
// exposes text.
type PDFExtractor struct {
	tempDir string
	log     *slog.Logger
}

// Compile-time interface assertion
var _ Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor with a scratch directory under the
// system temp dir.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	tempDir := filepath.Join(os.TempDir(), "paperdex-pdf")
	os.MkdirAll(tempDir, 0755)

	return &PDFExtractor{
		tempDir: tempDir,
		log:     logger,
	}
}

// Extract pulls the text of all pages plus basic metadata. Unreadable files
// and files without any extractable text surface a model.ExtractionError.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.ExtractionError{Path: path, Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &model.ExtractionError{Path: path, Err: err}
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, &model.ExtractionError{Path: path, Err: fmt.Errorf("failed to read PDF context: %w", err)}
	}
	pageCount := pdfCtx.PageCount

	text, err := e.extractText(path, pageCount)
	if err != nil {
		return nil, &model.ExtractionError{Path: path, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &model.ExtractionError{Path: path, Err: fmt.Errorf("no extractable text, possibly a scanned document")}
	}

	// Info dictionary first, heuristics only when it is absent or empty.
	title := strings.TrimSpace(pdfCtx.Title)
	if title == "" {
		title = titleHeuristic(text, path)
	}
	author := strings.TrimSpace(pdfCtx.Author)

	extraction := &Extraction{
		Text:      text,
		Title:     title,
		Author:    author,
		Year:      yearHeuristic(text),
		PageCount: pageCount,
	}

	e.log.Debug("Extracted PDF",
		slog.String("path", path),
		slog.Int("pages", pageCount),
		slog.Int("characters", len(text)))

	return extraction, nil
}

func (e *PDFExtractor) extractText(path string, pageCount int) (string, error) {
	// A fresh directory per call keeps concurrent extractions apart.
	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read scratch directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			e.log.Warn("Failed to read extracted page", slog.String("file", file.Name()), slog.Any("error", err))
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = string(content)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if text, ok := pageTexts[pageNum]; ok {
			if builder.Len() > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(text)
		}
	}
	return builder.String(), nil
}

// titleHeuristic takes the first reasonably sized line of the text, falling
// back to the file name without extension.
func titleHeuristic(text string, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 10 && len(line) <= 200 {
			return line
		}
	}

	filename := filepath.Base(path)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if title == "" {
		return filename
	}
	return title
}

// yearHeuristic scans the leading text for the first plausible four-digit
// year.
func yearHeuristic(text string) *int {
	head := text
	if len(head) > 2000 {
		head = head[:2000]
	}
	match := yearPattern.FindString(head)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}
