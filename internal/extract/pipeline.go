// Package extract turns raw PDF bytes into plain text. It tries a structured
// text-layer read first and falls back to page-by-page optical recognition.
// Extract never returns an error: every failure mode is represented in the
// Result so a batch ingest can keep going.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/logutil"
	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/ocr"
)

const pageDelimiter = "\n\n"

type Config struct {
	MinTextChars int
	RenderDPI    float64
	PageTimeout  time.Duration
}

type Result struct {
	Text       string
	PageCount  int
	Method     model.ExtractionMethod
	Confidence float64
	Errors     []string
}

// textReader reads the embedded text layer without rendering.
type textReader interface {
	ReadText(data []byte) (text string, pageCount int, err error)
}

// renderer rasterizes pages for recognition.
type renderer interface {
	Open(data []byte) (renderedDoc, error)
}

type renderedDoc interface {
	PageCount() int
	RenderPage(ctx context.Context, page int, dpi float64) ([]byte, error)
	Close() error
}

type Pipeline struct {
	reader   textReader
	renderer renderer
	ocr      ocr.Provider
	cfg      Config
}

func NewPipeline(ocrProvider ocr.Provider, cfg Config) *Pipeline {
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 144
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	return &Pipeline{
		reader:   &pdfTextReader{},
		renderer: &fitzRenderer{},
		ocr:      ocrProvider,
		cfg:      cfg,
	}
}

func (p *Pipeline) Extract(ctx context.Context, data []byte, filename string) *Result {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))

	result := &Result{Method: model.ExtractionFailed}

	text, pageCount, err := p.reader.ReadText(data)
	if err != nil {
		logger.Warn("text-layer read failed", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("text-layer: %v", err))
	}
	result.PageCount = pageCount
	if trimmed := strings.TrimSpace(text); len(trimmed) >= p.cfg.MinTextChars {
		logger.Info("text layer accepted", zap.Int("chars", len(trimmed)), zap.Int("pages", pageCount))
		result.Method = model.ExtractionTextLayer
		result.Text = trimmed
		result.Errors = nil
		return result
	}

	logger.Info("text layer insufficient, falling back to ocr")
	p.runOCR(ctx, logger, data, result)
	return result
}

func (p *Pipeline) runOCR(ctx context.Context, logger *zap.Logger, data []byte, result *Result) {
	if p.ocr == nil {
		result.Errors = append(result.Errors, "ocr: no provider configured")
		return
	}
	doc, err := p.renderer.Open(data)
	if err != nil {
		logger.Warn("open for rendering failed", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("render open: %v", err))
		return
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if pageCount > result.PageCount {
		result.PageCount = pageCount
	}

	var parts []string
	var confSum float64
	var confPages int

	// Pages are processed in order; OCR engines are single-stream and the
	// reassembled text must read top to bottom.
	for page := 0; page < pageCount; page++ {
		text, confidence, err := p.recognizePage(ctx, doc, page)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page+1, err))
			if page == 0 {
				// An unreadable first page means the document itself is
				// almost certainly unreadable; do not grind through the rest.
				logger.Warn("first page failed, aborting ocr", zap.Error(err))
				return
			}
			logger.Warn("page failed, continuing", zap.Int("page", page+1), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		parts = append(parts, text)
		confSum += confidence
		confPages++
	}

	if len(parts) == 0 {
		logger.Warn("ocr yielded no text", zap.Int("pages", pageCount))
		return
	}

	result.Method = model.ExtractionOCR
	result.Text = strings.Join(parts, pageDelimiter)
	result.Confidence = confSum / float64(confPages)
	logger.Info("ocr extraction complete",
		zap.Int("pages", pageCount),
		zap.Int("pages_with_text", confPages),
		zap.Float64("confidence", result.Confidence),
	)
}

func (p *Pipeline) recognizePage(ctx context.Context, doc renderedDoc, page int) (string, float64, error) {
	pageCtx, cancel := context.WithTimeout(ctx, p.cfg.PageTimeout)
	defer cancel()

	png, err := doc.RenderPage(pageCtx, page, p.cfg.RenderDPI)
	if err != nil {
		return "", 0, fmt.Errorf("render: %w", err)
	}
	res, err := p.ocr.Recognize(pageCtx, png)
	if err != nil {
		return "", 0, fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(res.Text), res.Confidence, nil
}
