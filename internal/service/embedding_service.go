package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/ai"
	"github.com/carenest/carenest/internal/logutil"
	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
	"github.com/carenest/carenest/internal/rank"
	"github.com/carenest/carenest/internal/repo"
)

// EmbeddingStore is the slice of repo.EmbeddingRepo the service needs.
type EmbeddingStore interface {
	Save(ctx context.Context, emb *model.DocumentEmbedding) error
	GetByDocID(ctx context.Context, docID string) (*model.DocumentEmbedding, error)
	ListAll(ctx context.Context) ([]model.DocumentEmbedding, error)
	ListStaleDocuments(ctx context.Context, limit int) ([]model.Document, error)
	TouchMtime(ctx context.Context, docID string, mtime int64) error
}

var _ EmbeddingStore = (*repo.EmbeddingRepo)(nil)

// EmbeddingService keeps document vectors in sync and runs semantic search.
// Vectors are computed lazily: a document only gets embedded once its content
// hash changes, and failures leave it out of semantic ranking without
// affecting anything else.
type EmbeddingService struct {
	embedder   ai.IEmbedder
	embeddings EmbeddingStore
	timeout    time.Duration
}

func NewEmbeddingService(embedder ai.IEmbedder, embeddings EmbeddingStore, timeout time.Duration) *EmbeddingService {
	return &EmbeddingService{
		embedder:   embedder,
		embeddings: embeddings,
		timeout:    timeout,
	}
}

func (s *EmbeddingService) SyncEmbedding(ctx context.Context, doc *model.Document) error {
	if s == nil || s.embedder == nil {
		return nil
	}
	if !doc.Rankable() {
		return nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID))

	textToEmbed := embeddingText(doc)
	hash := sha256.Sum256([]byte(textToEmbed))
	contentHash := hex.EncodeToString(hash[:])

	existing, err := s.embeddings.GetByDocID(ctx, doc.ID)
	if err == nil && existing.ContentHash == contentHash {
		// Metadata-only edits (category, authority, re-activation) bump the
		// document mtime without changing the embedded text. The stored
		// mtime must advance too, or the staleness join reports this
		// document on every batch from here on.
		if doc.Mtime > existing.Mtime {
			return s.embeddings.TouchMtime(ctx, doc.ID, doc.Mtime)
		}
		return nil
	}
	if err != nil && !appErr.IsNotFound(err) {
		return err
	}

	emb, err := s.embed(ctx, textToEmbed, "RETRIEVAL_DOCUMENT")
	if err != nil {
		logger.Error("failed to generate embedding", zap.Error(err))
		return err
	}
	if err := s.embeddings.Save(ctx, &model.DocumentEmbedding{
		DocumentID:  doc.ID,
		Embedding:   emb,
		ContentHash: contentHash,
		Mtime:       time.Now().UnixMilli(),
	}); err != nil {
		logger.Error("failed to save embedding", zap.Error(err))
		return err
	}
	logger.Info("embedding synced")
	return nil
}

// ProcessPending embeds documents whose vector is missing or stale. Individual
// failures are logged and skipped so one bad document cannot stall the batch.
func (s *EmbeddingService) ProcessPending(ctx context.Context, limit int) error {
	docs, err := s.embeddings.ListStaleDocuments(ctx, limit)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	var failed int
	for i := range docs {
		if err := s.SyncEmbedding(ctx, &docs[i]); err != nil {
			failed++
		}
	}
	if len(docs) > 0 {
		logger.Info("embedding batch processed",
			zap.Int("total", len(docs)),
			zap.Int("failed", failed),
		)
	}
	return nil
}

// SemanticSearch ranks the given documents by cosine similarity against the
// query embedding. Documents without a stored vector score 0 rather than
// disappearing.
func (s *EmbeddingService) SemanticSearch(ctx context.Context, query string, docs []model.Document, limit int) ([]model.RankedDocument, error) {
	queryEmb, err := s.embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		logutil.GetLogger(ctx).Error("failed to embed search query", zap.Error(err))
		return nil, err
	}
	allEmbs, err := s.embeddings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string][]float32, len(allEmbs))
	for _, item := range allEmbs {
		byID[item.DocumentID] = item.Embedding
	}

	ranked := make([]model.RankedDocument, 0, len(docs))
	for i := range docs {
		var score float64
		if emb, ok := byID[docs[i].ID]; ok {
			score = rank.CosineSimilarity(queryEmb, emb)
		}
		ranked = append(ranked, model.RankedDocument{
			Document: docs[i],
			Score:    score,
		})
	}
	rank.SortRanked(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *EmbeddingService) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, text, taskType)
}

// embeddingText builds the text that gets embedded. Title and tags are
// repeated so they weigh more than body text in vector space.
func embeddingText(doc *model.Document) string {
	tagLine := strings.Join(doc.Tags, " ")
	parts := make([]string, 0, 6)
	for _, part := range []string{doc.Title, doc.Title, tagLine, tagLine, doc.Summary, doc.Content} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}
