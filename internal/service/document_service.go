package service

import (
	"context"
	"strings"
	"time"

	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
	"github.com/carenest/carenest/internal/repo"
)

// DocumentService covers the administrative side of the library: listing,
// editing metadata, and (de)activation. Content edits bump mtime, which is
// what invalidates the stored embedding.
type DocumentService struct {
	docs *repo.DocumentRepo
}

func NewDocumentService(docs *repo.DocumentRepo) *DocumentService {
	return &DocumentService{docs: docs}
}

func (s *DocumentService) Get(ctx context.Context, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *DocumentService) List(ctx context.Context, limit, offset uint) ([]model.Document, int, error) {
	docs, err := s.docs.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.docs.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

type DocumentUpdate struct {
	Title           *string
	Summary         *string
	Category        *model.Category
	Tags            *model.Tags
	SourceAuthority *bool
}

func (s *DocumentService) Update(ctx context.Context, docID string, update DocumentUpdate) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, appErr.ErrInvalid
		}
		doc.Title = title
	}
	if update.Summary != nil {
		doc.Summary = strings.TrimSpace(*update.Summary)
	}
	if update.Category != nil {
		doc.Category = *update.Category
	}
	if update.Tags != nil {
		doc.Tags = *update.Tags
	}
	if update.SourceAuthority != nil {
		doc.SourceAuthority = *update.SourceAuthority
	}
	doc.Mtime = time.Now().UnixMilli()
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetActive is the only supported removal path; retrieval never sees an
// inactive document, but the record and its file stay around.
func (s *DocumentService) SetActive(ctx context.Context, docID string, active bool) error {
	return s.docs.UpdateActive(ctx, docID, active, time.Now().UnixMilli())
}
