package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carenest/carenest/internal/classify"
	"github.com/carenest/carenest/internal/config"
	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/rank"
)

type fakeLister struct {
	docs  []model.Document
	err   error
	calls int
}

func (f *fakeLister) ListActive(ctx context.Context) ([]model.Document, error) {
	f.calls++
	return f.docs, f.err
}

type fakeSemantic struct {
	ranked []model.RankedDocument
	err    error
	calls  int
}

func (f *fakeSemantic) SemanticSearch(ctx context.Context, query string, docs []model.Document, limit int) ([]model.RankedDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ranked, nil
}

func retrievalTestConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		MaxDocuments:       6,
		MaxContentChars:    5000,
		PrimaryShare:       0.9,
		ConfidenceHigh:     0.95,
		ConfidenceModerate: 0.8,
		ConfidenceLow:      0.3,
		SpecialtyTopics:    []string{"breastfeeding", "milk supply", "latch"},
	}
}

func rankableDoc(id, content string, authority bool, mtime int64) model.Document {
	return model.Document{
		ID:               id,
		Title:            id,
		Content:          content,
		SourceAuthority:  authority,
		ExtractionMethod: model.ExtractionTextLayer,
		IsActive:         true,
		Mtime:            mtime,
	}
}

func newTestRetrieval(lister *fakeLister, semantic SemanticSearcher, cfg config.RetrievalConfig) *RetrievalService {
	return NewRetrievalService(lister, classify.New(classify.Config{}), rank.NewScorer(nil), semantic, cfg)
}

func TestRetrieve_SkipsNonDomainQuery(t *testing.T) {
	lister := &fakeLister{}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "tell me about your pricing", 5)
	require.True(t, result.Skipped)
	require.Empty(t, result.Documents)
	require.Nil(t, result.Confidence)
	require.Zero(t, lister.calls)
}

func TestRetrieve_EmergencyFlaggedEvenWhenSkipped(t *testing.T) {
	lister := &fakeLister{}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "my baby is not breathing", 5)
	require.True(t, result.Emergency)
	require.True(t, result.Skipped)
}

func TestRetrieve_TwoTierPrimaryAlwaysFirst(t *testing.T) {
	lister := &fakeLister{docs: []model.Document{
		rankableDoc("primary-weak", "general practice information", true, 10),
		rankableDoc("fallback-strong", "milk supply milk supply milk supply tips", false, 20),
		rankableDoc("fallback-weak", "unrelated content", false, 30),
	}}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "how can I boost my milk supply?", 3)
	require.False(t, result.Skipped)
	require.Len(t, result.Documents, 3)
	// The curated source leads even though the fallback doc scores higher.
	require.Equal(t, "primary-weak", result.Documents[0].Document.ID)
	require.Equal(t, model.TierPrimary, result.Documents[0].Tier)
	require.Equal(t, "fallback-strong", result.Documents[1].Document.ID)
	require.Equal(t, model.TierFallback, result.Documents[1].Tier)
	require.NotNil(t, result.Confidence)
	require.InDelta(t, 0.95, *result.Confidence, 1e-9)
}

func TestRetrieve_TwoTierSlotSplit(t *testing.T) {
	docs := []model.Document{
		rankableDoc("p1", "milk supply after birth", true, 1),
		rankableDoc("p2", "milk supply and pumping", true, 2),
		rankableDoc("p3", "milk supply troubleshooting", true, 3),
		rankableDoc("p4", "milk supply and diet", true, 4),
		rankableDoc("f1", "milk supply myths", false, 5),
		rankableDoc("f2", "milk supply history", false, 6),
	}
	lister := &fakeLister{docs: docs}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	// limit 4, share 0.9: ceil(3.6) = 4 primary slots, no fallback room.
	result := s.Retrieve(context.Background(), "milk supply", 4)
	require.Len(t, result.Documents, 4)
	for _, item := range result.Documents {
		require.Equal(t, model.TierPrimary, item.Tier)
	}
}

func TestRetrieve_TwoTierFallbackFillsUnusedSlots(t *testing.T) {
	lister := &fakeLister{docs: []model.Document{
		rankableDoc("p1", "milk supply notes", true, 1),
		rankableDoc("f1", "milk supply community tips", false, 2),
		rankableDoc("f2", "milk supply stories", false, 3),
	}}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "milk supply", 3)
	require.Len(t, result.Documents, 3)
	require.Equal(t, model.TierPrimary, result.Documents[0].Tier)
	require.Equal(t, model.TierFallback, result.Documents[1].Tier)
	require.Equal(t, model.TierFallback, result.Documents[2].Tier)
}

func TestRetrieve_SingleTierHeuristic(t *testing.T) {
	lister := &fakeLister{docs: []model.Document{
		rankableDoc("a", "swaddle technique step by step", false, 1),
		rankableDoc("b", "bath time", false, 2),
	}}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.False(t, result.Skipped)
	require.Equal(t, "a", result.Documents[0].Document.ID)
	require.NotNil(t, result.Confidence)
	require.InDelta(t, 0.8, *result.Confidence, 1e-9)
}

func TestRetrieve_SemanticPathUsedWhenConfigured(t *testing.T) {
	cfg := retrievalTestConfig()
	cfg.UseSemantic = true
	docA := rankableDoc("a", "swaddling", false, 1)
	semantic := &fakeSemantic{ranked: []model.RankedDocument{{Document: docA, Score: 0.91}}}
	lister := &fakeLister{docs: []model.Document{docA}}
	s := newTestRetrieval(lister, semantic, cfg)

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.Equal(t, 1, semantic.calls)
	require.Len(t, result.Documents, 1)
	require.InDelta(t, 0.91, result.Documents[0].Score, 1e-9)
	require.InDelta(t, 0.8, *result.Confidence, 1e-9)
}

func TestRetrieve_SemanticFailureDegradesToHeuristic(t *testing.T) {
	cfg := retrievalTestConfig()
	cfg.UseSemantic = true
	semantic := &fakeSemantic{err: errors.New("provider down")}
	lister := &fakeLister{docs: []model.Document{
		rankableDoc("a", "swaddle technique", false, 1),
	}}
	s := newTestRetrieval(lister, semantic, cfg)

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.Len(t, result.Documents, 1)
	require.Equal(t, "a", result.Documents[0].Document.ID)
	require.NotNil(t, result.Confidence)
	require.InDelta(t, 0.3, *result.Confidence, 1e-9)
}

func TestRetrieve_StoreFailureDegradesToEmpty(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.False(t, result.Skipped)
	require.Empty(t, result.Documents)
	require.NotNil(t, result.Confidence)
	require.InDelta(t, 0.3, *result.Confidence, 1e-9)
}

func TestRetrieve_EmptyCorpusLowConfidence(t *testing.T) {
	lister := &fakeLister{}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.Empty(t, result.Documents)
	require.InDelta(t, 0.3, *result.Confidence, 1e-9)
}

func TestRetrieve_NonRankableExcluded(t *testing.T) {
	inactive := rankableDoc("inactive", "swaddle guide", false, 1)
	inactive.IsActive = false
	failed := rankableDoc("failed", "swaddle guide", false, 2)
	failed.ExtractionMethod = model.ExtractionFailed
	lister := &fakeLister{docs: []model.Document{
		inactive,
		failed,
		rankableDoc("good", "swaddle guide", false, 3),
	}}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.Len(t, result.Documents, 1)
	require.Equal(t, "good", result.Documents[0].Document.ID)
}

func TestRetrieve_ContentTruncated(t *testing.T) {
	cfg := retrievalTestConfig()
	cfg.MaxContentChars = 10
	lister := &fakeLister{docs: []model.Document{
		rankableDoc("a", "swaddle "+strings.Repeat("x", 100), false, 1),
	}}
	s := newTestRetrieval(lister, nil, cfg)

	result := s.Retrieve(context.Background(), "how do I swaddle my baby", 5)
	require.Len(t, result.Documents, 1)
	require.Len(t, []rune(result.Documents[0].Document.Content), 10)
}

func TestRetrieve_LimitNormalized(t *testing.T) {
	var docs []model.Document
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		docs = append(docs, rankableDoc(id, "swaddle info", false, 1))
	}
	lister := &fakeLister{docs: docs}
	s := newTestRetrieval(lister, nil, retrievalTestConfig())

	require.Len(t, s.Retrieve(context.Background(), "how do I swaddle my baby", 0).Documents, 6)
	require.Len(t, s.Retrieve(context.Background(), "how do I swaddle my baby", 100).Documents, 6)
}
