package service

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/classify"
	"github.com/carenest/carenest/internal/config"
	"github.com/carenest/carenest/internal/logutil"
	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/rank"
	"github.com/carenest/carenest/internal/repo"
)

type DocumentLister interface {
	ListActive(ctx context.Context) ([]model.Document, error)
}

var _ DocumentLister = (*repo.DocumentRepo)(nil)

// SemanticSearcher is the optional embedding-backed ranking path. A nil
// searcher (or one that errors) degrades retrieval to heuristic scoring.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, query string, docs []model.Document, limit int) ([]model.RankedDocument, error)
}

// RetrievalService decides the retrieval mode for a message, runs the
// appropriate ranking, and attaches a confidence estimate. It is read-only
// against the document set: concurrent queries need no coordination.
type RetrievalService struct {
	docs       DocumentLister
	classifier *classify.Classifier
	scorer     *rank.Scorer
	semantic   SemanticSearcher
	cfg        config.RetrievalConfig
}

func NewRetrievalService(docs DocumentLister, classifier *classify.Classifier, scorer *rank.Scorer, semantic SemanticSearcher, cfg config.RetrievalConfig) *RetrievalService {
	return &RetrievalService{
		docs:       docs,
		classifier: classifier,
		scorer:     scorer,
		semantic:   semantic,
		cfg:        cfg,
	}
}

// Retrieve never fails a caller's request: store or provider trouble degrades
// the result (empty list, lowered confidence) instead of propagating.
func (s *RetrievalService) Retrieve(ctx context.Context, queryText string, limit int) *model.RetrievalResult {
	logger := logutil.GetLogger(ctx).With(zap.String("query", queryText))

	if limit <= 0 || limit > s.cfg.MaxDocuments {
		limit = s.cfg.MaxDocuments
	}

	result := &model.RetrievalResult{
		Documents: []model.RankedDocument{},
		Emergency: s.classifier.IsEmergency(queryText),
	}

	cls := s.classifier.Classify(queryText)
	if !cls.IsDomainQuery {
		// The single most important short-circuit: empathy-only or
		// off-topic messages never pay for index or scoring work.
		logger.Debug("retrieval skipped",
			zap.Bool("pure_emotional", cls.IsPureEmotional),
		)
		result.Skipped = true
		return result
	}

	docs, err := s.docs.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list documents, degrading to empty result", zap.Error(err))
		result.Confidence = s.confidence(s.cfg.ConfidenceLow)
		return result
	}
	rankable := docs[:0:0]
	for i := range docs {
		if docs[i].Rankable() {
			rankable = append(rankable, docs[i])
		}
	}

	if s.isSpecialtyQuery(queryText) {
		s.retrieveTwoTier(logger, queryText, rankable, limit, result)
	} else {
		s.retrieveSingleTier(ctx, logger, queryText, rankable, limit, result)
	}

	s.truncateContent(result)
	return result
}

// retrieveSingleTier ranks the whole corpus with one signal: semantic when
// configured and healthy, heuristic otherwise.
func (s *RetrievalService) retrieveSingleTier(ctx context.Context, logger *zap.Logger, query string, docs []model.Document, limit int, result *model.RetrievalResult) {
	var ranked []model.RankedDocument
	degraded := false

	if s.cfg.UseSemantic && s.semantic != nil {
		semRanked, err := s.semantic.SemanticSearch(ctx, query, docs, limit)
		if err != nil {
			logger.Warn("semantic ranking unavailable, degrading to heuristic", zap.Error(err))
			degraded = true
		} else {
			ranked = semRanked
		}
	}
	if ranked == nil && (degraded || !s.cfg.UseSemantic || s.semantic == nil) {
		ranked = s.scorer.Rank(query, docs)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Tier = model.TierFallback
	}
	result.Documents = ranked

	switch {
	case len(ranked) == 0:
		result.Confidence = s.confidence(s.cfg.ConfidenceLow)
	case degraded:
		result.Confidence = s.confidence(s.cfg.ConfidenceLow)
	default:
		result.Confidence = s.confidence(s.cfg.ConfidenceModerate)
	}
}

// retrieveTwoTier partitions by source authority and fills the result
// primary-first. Primary items always precede fallback items regardless of
// raw score: the curating clinician's material must lead the answer.
func (s *RetrievalService) retrieveTwoTier(logger *zap.Logger, query string, docs []model.Document, limit int, result *model.RetrievalResult) {
	var primary, other []model.Document
	for i := range docs {
		if docs[i].SourceAuthority {
			primary = append(primary, docs[i])
		} else {
			other = append(other, docs[i])
		}
	}

	primarySlots := int(math.Ceil(float64(limit) * s.cfg.PrimaryShare))
	if primarySlots > limit {
		primarySlots = limit
	}

	rankedPrimary := s.scorer.Rank(query, primary)
	if len(rankedPrimary) > primarySlots {
		rankedPrimary = rankedPrimary[:primarySlots]
	}
	for i := range rankedPrimary {
		rankedPrimary[i].Tier = model.TierPrimary
	}

	remainder := limit - len(rankedPrimary)
	rankedOther := s.scorer.Rank(query, other)
	if len(rankedOther) > remainder {
		rankedOther = rankedOther[:remainder]
	}
	for i := range rankedOther {
		rankedOther[i].Tier = model.TierFallback
	}

	result.Documents = append(rankedPrimary, rankedOther...)
	logger.Debug("two-tier retrieval",
		zap.Int("primary", len(rankedPrimary)),
		zap.Int("fallback", len(rankedOther)),
	)

	switch {
	case len(rankedPrimary) > 0:
		result.Confidence = s.confidence(s.cfg.ConfidenceHigh)
	case len(result.Documents) > 0:
		result.Confidence = s.confidence(s.cfg.ConfidenceModerate)
	default:
		result.Confidence = s.confidence(s.cfg.ConfidenceLow)
	}
}

func (s *RetrievalService) isSpecialtyQuery(query string) bool {
	q := strings.ToLower(query)
	for _, topic := range s.cfg.SpecialtyTopics {
		if strings.Contains(q, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}

// truncateContent caps each document's body at the configured character
// limit; the prompt assembler downstream has its own context ceiling.
func (s *RetrievalService) truncateContent(result *model.RetrievalResult) {
	for i := range result.Documents {
		content := []rune(result.Documents[i].Document.Content)
		if len(content) > s.cfg.MaxContentChars {
			result.Documents[i].Document.Content = string(content[:s.cfg.MaxContentChars])
		}
	}
}

func (s *RetrievalService) confidence(v float64) *float64 {
	return &v
}
