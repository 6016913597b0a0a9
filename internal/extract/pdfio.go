package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// pdfTextReader reads the embedded text layer via ledongthuc/pdf. The parser
// panics on some malformed xref tables, so the call is fenced with recover.
type pdfTextReader struct{}

func (r *pdfTextReader) ReadText(data []byte) (text string, pageCount int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	pageCount = reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", pageCount, fmt.Errorf("read text layer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", pageCount, fmt.Errorf("read text layer: %w", err)
	}
	return buf.String(), pageCount, nil
}

// fitzRenderer rasterizes pages with MuPDF via go-fitz.
type fitzRenderer struct{}

func (r *fitzRenderer) Open(data []byte) (renderedDoc, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDoc{doc: doc}, nil
}

type fitzDoc struct {
	doc *fitz.Document
}

func (d *fitzDoc) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDoc) RenderPage(ctx context.Context, page int, dpi float64) ([]byte, error) {
	// Rendering is a synchronous C call; the deadline is checked here and
	// enforced for real by the recognition step that follows.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.doc.ImagePNG(page, dpi)
}

func (d *fitzDoc) Close() error {
	return d.doc.Close()
}
