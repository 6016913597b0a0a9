package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/extract"
	"github.com/carenest/carenest/internal/filestore"
	"github.com/carenest/carenest/internal/logutil"
	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
	"github.com/carenest/carenest/internal/repo"
)

type DocumentCreator interface {
	Create(ctx context.Context, doc *model.Document) error
}

var _ DocumentCreator = (*repo.DocumentRepo)(nil)

// IngestService feeds the document library: PDF uploads go through the
// extraction pipeline, manual notes go straight in as plain text. Failed
// extractions are persisted too, with an empty body, so operators can see
// what needs a re-upload. Embeddings are synced out-of-band by the
// embedding job.
type IngestService struct {
	docs     DocumentCreator
	pipeline *extract.Pipeline
	store    filestore.Store
}

func NewIngestService(docs DocumentCreator, pipeline *extract.Pipeline, store filestore.Store) *IngestService {
	return &IngestService{
		docs:     docs,
		pipeline: pipeline,
		store:    store,
	}
}

func (s *IngestService) IngestPDF(ctx context.Context, data []byte, filename string, category model.Category, tags model.Tags, sourceAuthority bool) (*model.Document, *extract.Result, error) {
	if len(data) == 0 {
		return nil, nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))

	docID := uuid.NewString()
	fileKey := docID + ".pdf"
	if err := s.store.Save(ctx, fileKey, bytes.NewReader(data), int64(len(data))); err != nil {
		logger.Error("failed to save raw file", zap.Error(err))
		return nil, nil, err
	}

	result := s.pipeline.Extract(ctx, data, filename)

	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:                   docID,
		Title:                titleFromFilename(filename),
		Category:             category,
		Tags:                 tags,
		Content:              result.Text,
		SourceAuthority:      sourceAuthority,
		SourceChannel:        model.ChannelPDFUpload,
		ExtractionMethod:     result.Method,
		ExtractionConfidence: result.Confidence,
		PageCount:            result.PageCount,
		FileKey:              fileKey,
		IsActive:             true,
		Ctime:                now,
		Mtime:                now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		logger.Error("failed to persist document", zap.Error(err))
		return nil, nil, err
	}
	logger.Info("document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("method", string(result.Method)),
		zap.Int("pages", result.PageCount),
		zap.Int("errors", len(result.Errors)),
	)
	return doc, result, nil
}

func (s *IngestService) IngestNote(ctx context.Context, title, markdown string, category model.Category, tags model.Tags, sourceAuthority bool) (*model.Document, error) {
	title = strings.TrimSpace(title)
	content := markdownToPlain(markdown)
	if title == "" || content == "" {
		return nil, appErr.ErrInvalid
	}

	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:               uuid.NewString(),
		Title:            title,
		Category:         category,
		Tags:             tags,
		Content:          content,
		SourceAuthority:  sourceAuthority,
		SourceChannel:    model.ChannelManualNote,
		ExtractionMethod: model.ExtractionTextLayer,
		IsActive:         true,
		Ctime:            now,
		Mtime:            now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		logutil.GetLogger(ctx).Error("failed to persist note", zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled document"
	}
	return base
}

// markdownToPlain flattens a markdown note into the plain text that gets
// indexed; formatting carries no ranking signal.
func markdownToPlain(markdown string) string {
	src := []byte(markdown)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var builder strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				builder.WriteByte('\n')
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if builder.Len() > 0 {
				builder.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(builder.String())
}
