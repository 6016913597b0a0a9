package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/ocr"
)

type fakeReader struct {
	text  string
	pages int
	err   error
}

func (f *fakeReader) ReadText(data []byte) (string, int, error) {
	return f.text, f.pages, f.err
}

type fakeDoc struct {
	pages     int
	renderErr map[int]error
}

func (f *fakeDoc) PageCount() int { return f.pages }

func (f *fakeDoc) RenderPage(ctx context.Context, page int, dpi float64) ([]byte, error) {
	if err := f.renderErr[page]; err != nil {
		return nil, err
	}
	return []byte{byte(page)}, nil
}

func (f *fakeDoc) Close() error { return nil }

type fakeRenderer struct {
	doc *fakeDoc
	err error
}

func (f *fakeRenderer) Open(data []byte) (renderedDoc, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeOCR struct {
	results []*ocr.Result
	errs    []error
	calls   int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Recognize(ctx context.Context, png []byte) (*ocr.Result, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return f.results[idx], nil
}

func newTestPipeline(reader textReader, rend renderer, provider ocr.Provider) *Pipeline {
	p := NewPipeline(provider, Config{})
	p.reader = reader
	p.renderer = rend
	return p
}

func TestExtract_TextLayerAccepted(t *testing.T) {
	longText := strings.Repeat("newborn care notes ", 10)
	require.GreaterOrEqual(t, len(strings.TrimSpace(longText)), 100)

	provider := &fakeOCR{}
	p := newTestPipeline(&fakeReader{text: longText, pages: 4}, &fakeRenderer{}, provider)

	result := p.Extract(context.Background(), []byte("pdf"), "care.pdf")
	require.Equal(t, model.ExtractionTextLayer, result.Method)
	require.Equal(t, strings.TrimSpace(longText), result.Text)
	require.Equal(t, 4, result.PageCount)
	require.Empty(t, result.Errors)
	require.Zero(t, provider.calls)
}

func TestExtract_OCRFallbackAveragesConfidence(t *testing.T) {
	provider := &fakeOCR{results: []*ocr.Result{
		{Text: "page one", Confidence: 90},
		{Text: "page two", Confidence: 78},
		{Text: "page three", Confidence: 80},
	}}
	p := newTestPipeline(
		&fakeReader{text: "short"},
		&fakeRenderer{doc: &fakeDoc{pages: 3}},
		provider,
	)

	result := p.Extract(context.Background(), []byte("pdf"), "scan.pdf")
	require.Equal(t, model.ExtractionOCR, result.Method)
	require.Equal(t, "page one\n\npage two\n\npage three", result.Text)
	require.Equal(t, 3, result.PageCount)
	require.InDelta(t, (90.0+78.0+80.0)/3.0, result.Confidence, 1e-9)
}

func TestExtract_FirstPageFailureAborts(t *testing.T) {
	provider := &fakeOCR{
		results: []*ocr.Result{nil, {Text: "later", Confidence: 99}},
		errs:    []error{errors.New("engine crashed")},
	}
	p := newTestPipeline(
		&fakeReader{},
		&fakeRenderer{doc: &fakeDoc{pages: 3}},
		provider,
	)

	result := p.Extract(context.Background(), []byte("pdf"), "scan.pdf")
	require.Equal(t, model.ExtractionFailed, result.Method)
	require.Empty(t, result.Text)
	require.Equal(t, 1, provider.calls)
	require.NotEmpty(t, result.Errors)
	require.Contains(t, result.Errors[len(result.Errors)-1], "page 1")
}

func TestExtract_MidPageFailureIsIsolated(t *testing.T) {
	provider := &fakeOCR{
		results: []*ocr.Result{
			{Text: "first", Confidence: 88},
			nil,
			{Text: "third", Confidence: 92},
		},
		errs: []error{nil, errors.New("blurry page")},
	}
	p := newTestPipeline(
		&fakeReader{},
		&fakeRenderer{doc: &fakeDoc{pages: 3}},
		provider,
	)

	result := p.Extract(context.Background(), []byte("pdf"), "scan.pdf")
	require.Equal(t, model.ExtractionOCR, result.Method)
	require.Equal(t, "first\n\nthird", result.Text)
	require.InDelta(t, 90.0, result.Confidence, 1e-9)

	var pageErrors int
	for _, msg := range result.Errors {
		if strings.Contains(msg, "page 2") {
			pageErrors++
		}
	}
	require.Equal(t, 1, pageErrors)
}

func TestExtract_EmptyPagesExcludedFromConfidence(t *testing.T) {
	provider := &fakeOCR{results: []*ocr.Result{
		{Text: "", Confidence: 0},
		{Text: "content", Confidence: 70},
	}}
	p := newTestPipeline(
		&fakeReader{},
		&fakeRenderer{doc: &fakeDoc{pages: 2}},
		provider,
	)

	result := p.Extract(context.Background(), []byte("pdf"), "scan.pdf")
	require.Equal(t, model.ExtractionOCR, result.Method)
	require.InDelta(t, 70.0, result.Confidence, 1e-9)
}

func TestExtract_TotalFailure(t *testing.T) {
	p := newTestPipeline(
		&fakeReader{err: errors.New("corrupt pdf")},
		&fakeRenderer{err: errors.New("corrupt pdf")},
		&fakeOCR{},
	)
	result := p.Extract(context.Background(), []byte("not a pdf"), "bad.pdf")
	require.Equal(t, model.ExtractionFailed, result.Method)
	require.Empty(t, result.Text)
	require.NotEmpty(t, result.Errors)
}

func TestExtract_NoOCRProvider(t *testing.T) {
	p := newTestPipeline(&fakeReader{text: "short"}, &fakeRenderer{doc: &fakeDoc{pages: 1}}, nil)
	result := p.Extract(context.Background(), []byte("pdf"), "scan.pdf")
	require.Equal(t, model.ExtractionFailed, result.Method)
	require.Contains(t, result.Errors, "ocr: no provider configured")
}
