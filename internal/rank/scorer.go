// Package rank holds the two relevance signals: keyword-based heuristic
// scoring and embedding cosine similarity. The two are never blended
// numerically; the orchestrator picks which one orders a tier.
package rank

import (
	"sort"
	"strings"

	"github.com/carenest/carenest/internal/model"
)

const (
	phraseWeight   = 10
	tagWeight      = 5
	titleWeight    = 4
	summaryWeight  = 3
	contentWeight  = 2
	authorityBoost = 15
	curatedBoost   = 10
	minTermLength  = 3
)

// Default high-value phrases; overridable through configuration.
var defaultDomainPhrases = []string{
	"skin to skin", "milk supply", "tummy time", "sleep training",
	"growth spurt", "cluster feeding", "baby blues", "paced feeding",
}

type Scorer struct {
	phrases []string
}

func NewScorer(domainPhrases []string) *Scorer {
	phrases := domainPhrases
	if len(phrases) == 0 {
		phrases = defaultDomainPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Scorer{phrases: lowered}
}

// Score computes the additive heuristic relevance of a document for a query.
// It is independent of embeddings and deterministic for a fixed input.
func (s *Scorer) Score(query string, doc *model.Document) float64 {
	q := strings.ToLower(query)
	title := strings.ToLower(doc.Title)
	summary := strings.ToLower(doc.Summary)
	content := strings.ToLower(doc.Content)

	var score float64
	for _, phrase := range s.phrases {
		if strings.Contains(q, phrase) && strings.Contains(content, phrase) {
			score += phraseWeight
		}
	}

	for _, term := range strings.Fields(q) {
		term = strings.Trim(term, ".,!?;:\"'")
		if len(term) < minTermLength {
			continue
		}
		if tagsContain(doc.Tags, term) {
			score += tagWeight
		}
		if strings.Contains(title, term) {
			score += titleWeight
		}
		if strings.Contains(summary, term) {
			score += summaryWeight
		}
		if strings.Contains(content, term) {
			score += contentWeight
		}
	}

	if doc.SourceAuthority {
		score += authorityBoost
	}
	if doc.SourceChannel == model.ChannelPDFUpload {
		score += curatedBoost
	}
	return score
}

// Rank scores every document and returns them ordered by score descending,
// ties broken by most recently updated, then by id for stability.
func (s *Scorer) Rank(query string, docs []model.Document) []model.RankedDocument {
	ranked := make([]model.RankedDocument, 0, len(docs))
	for i := range docs {
		ranked = append(ranked, model.RankedDocument{
			Document: docs[i],
			Score:    s.Score(query, &docs[i]),
		})
	}
	SortRanked(ranked)
	return ranked
}

func SortRanked(ranked []model.RankedDocument) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Document.Mtime != ranked[j].Document.Mtime {
			return ranked[i].Document.Mtime > ranked[j].Document.Mtime
		}
		return ranked[i].Document.ID < ranked[j].Document.ID
	})
}

func tagsContain(tags model.Tags, term string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, term) {
			return true
		}
	}
	return false
}
