package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
)

type fakeEmbedder struct {
	vectors   map[string][]float32
	err       error
	calls     int
	taskTypes []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	f.taskTypes = append(f.taskTypes, taskType)
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

type fakeEmbStore struct {
	existing map[string]*model.DocumentEmbedding
	all      []model.DocumentEmbedding
	saved    []*model.DocumentEmbedding
}

func (f *fakeEmbStore) Save(ctx context.Context, emb *model.DocumentEmbedding) error {
	f.saved = append(f.saved, emb)
	return nil
}

func (f *fakeEmbStore) GetByDocID(ctx context.Context, docID string) (*model.DocumentEmbedding, error) {
	if emb, ok := f.existing[docID]; ok {
		return emb, nil
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeEmbStore) ListAll(ctx context.Context) ([]model.DocumentEmbedding, error) {
	return f.all, nil
}

func (f *fakeEmbStore) ListStaleDocuments(ctx context.Context, limit int) ([]model.Document, error) {
	return nil, nil
}

func (f *fakeEmbStore) TouchMtime(ctx context.Context, docID string, mtime int64) error {
	if emb, ok := f.existing[docID]; ok {
		emb.Mtime = mtime
	}
	return nil
}

// staleTrackingStore applies the real staleness predicate (document mtime
// newer than embedding mtime, or no embedding at all) over in-memory rows.
type staleTrackingStore struct {
	docs  map[string]*model.Document
	embs  map[string]*model.DocumentEmbedding
	saves int
}

func newStaleTrackingStore(docs ...*model.Document) *staleTrackingStore {
	s := &staleTrackingStore{
		docs: make(map[string]*model.Document),
		embs: make(map[string]*model.DocumentEmbedding),
	}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return s
}

func (s *staleTrackingStore) Save(ctx context.Context, emb *model.DocumentEmbedding) error {
	s.saves++
	s.embs[emb.DocumentID] = emb
	return nil
}

func (s *staleTrackingStore) GetByDocID(ctx context.Context, docID string) (*model.DocumentEmbedding, error) {
	if emb, ok := s.embs[docID]; ok {
		return emb, nil
	}
	return nil, appErr.ErrNotFound
}

func (s *staleTrackingStore) ListAll(ctx context.Context) ([]model.DocumentEmbedding, error) {
	var all []model.DocumentEmbedding
	for _, emb := range s.embs {
		all = append(all, *emb)
	}
	return all, nil
}

func (s *staleTrackingStore) ListStaleDocuments(ctx context.Context, limit int) ([]model.Document, error) {
	var stale []model.Document
	for _, doc := range s.docs {
		emb, ok := s.embs[doc.ID]
		if !ok || doc.Mtime > emb.Mtime {
			stale = append(stale, *doc)
		}
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

func (s *staleTrackingStore) TouchMtime(ctx context.Context, docID string, mtime int64) error {
	if emb, ok := s.embs[docID]; ok {
		emb.Mtime = mtime
	}
	return nil
}

func embeddableDoc(id string) model.Document {
	return model.Document{
		ID:               id,
		Title:            "Feeding basics",
		Content:          "feeding content",
		ExtractionMethod: model.ExtractionTextLayer,
		IsActive:         true,
	}
}

func TestSyncEmbedding_SavesNewVector(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeEmbStore{}
	s := NewEmbeddingService(embedder, store, 0)

	doc := embeddableDoc("doc-1")
	require.NoError(t, s.SyncEmbedding(context.Background(), &doc))
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, []string{"RETRIEVAL_DOCUMENT"}, embedder.taskTypes)
	require.Len(t, store.saved, 1)
	require.Equal(t, "doc-1", store.saved[0].DocumentID)
	require.NotEmpty(t, store.saved[0].ContentHash)
}

func TestSyncEmbedding_SkipsUnchangedContent(t *testing.T) {
	doc := embeddableDoc("doc-1")
	hash := sha256.Sum256([]byte(embeddingText(&doc)))

	embedder := &fakeEmbedder{}
	store := &fakeEmbStore{existing: map[string]*model.DocumentEmbedding{
		"doc-1": {DocumentID: "doc-1", ContentHash: hex.EncodeToString(hash[:])},
	}}
	s := NewEmbeddingService(embedder, store, 0)

	require.NoError(t, s.SyncEmbedding(context.Background(), &doc))
	require.Zero(t, embedder.calls)
	require.Empty(t, store.saved)
}

func TestSyncEmbedding_SkipsNonRankable(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeEmbStore{}
	s := NewEmbeddingService(embedder, store, 0)

	doc := embeddableDoc("doc-1")
	doc.ExtractionMethod = model.ExtractionFailed
	require.NoError(t, s.SyncEmbedding(context.Background(), &doc))
	require.Zero(t, embedder.calls)
}

func TestSyncEmbedding_MetadataOnlyUpdateAdvancesMtime(t *testing.T) {
	embedder := &fakeEmbedder{}
	doc := embeddableDoc("doc-1")
	doc.Mtime = 100
	store := newStaleTrackingStore(&doc)
	s := NewEmbeddingService(embedder, store, 0)

	require.NoError(t, s.SyncEmbedding(context.Background(), &doc))
	require.Equal(t, 1, embedder.calls)

	// Category or activation edits bump the document mtime but leave the
	// embedded text unchanged.
	doc.Mtime = store.embs["doc-1"].Mtime + 1
	require.NoError(t, s.SyncEmbedding(context.Background(), &doc))
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, 1, store.saves)
	require.Equal(t, doc.Mtime, store.embs["doc-1"].Mtime)
}

func TestProcessPending_TerminatesAfterMetadataOnlyUpdate(t *testing.T) {
	embedder := &fakeEmbedder{}
	doc := embeddableDoc("doc-1")
	doc.Mtime = 100
	store := newStaleTrackingStore(&doc)
	s := NewEmbeddingService(embedder, store, 0)

	require.NoError(t, s.ProcessPending(context.Background(), 10))
	doc.Mtime = store.embs["doc-1"].Mtime + 1

	// The next batch clears the staleness; the one after must find nothing,
	// or a full resync loop would spin on this document forever.
	require.NoError(t, s.ProcessPending(context.Background(), 10))
	stale, err := store.ListStaleDocuments(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, stale)
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, 1, store.saves)
}

func TestSemanticSearch_RanksByCosine(t *testing.T) {
	docClose := embeddableDoc("close")
	docFar := embeddableDoc("far")
	docMissing := embeddableDoc("missing")

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"feeding question": {1, 0},
	}}
	store := &fakeEmbStore{all: []model.DocumentEmbedding{
		{DocumentID: "close", Embedding: []float32{1, 0}},
		{DocumentID: "far", Embedding: []float32{0, 1}},
	}}
	s := NewEmbeddingService(embedder, store, 0)

	ranked, err := s.SemanticSearch(context.Background(), "feeding question",
		[]model.Document{docFar, docMissing, docClose}, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	require.Equal(t, "close", ranked[0].Document.ID)
	require.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	require.Equal(t, []string{"RETRIEVAL_QUERY"}, embedder.taskTypes)
	// Documents without a stored vector stay in the result at score 0.
	require.Equal(t, 0.0, ranked[1].Score)
	require.Equal(t, 0.0, ranked[2].Score)
}

func TestSemanticSearch_LimitApplied(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeEmbStore{}
	s := NewEmbeddingService(embedder, store, 0)

	docs := []model.Document{embeddableDoc("a"), embeddableDoc("b"), embeddableDoc("c")}
	ranked, err := s.SemanticSearch(context.Background(), "feeding", docs, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
}

func TestSemanticSearch_EmbedderFailurePropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	store := &fakeEmbStore{}
	s := NewEmbeddingService(embedder, store, 0)

	_, err := s.SemanticSearch(context.Background(), "feeding", nil, 5)
	require.Error(t, err)
}
