package model

type Tier string

const (
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

type RankedDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
	Tier     Tier     `json:"tier"`
}

// RetrievalResult is the ranked output handed to the prompt-assembly boundary.
// Confidence is nil when retrieval was skipped entirely.
type RetrievalResult struct {
	Documents  []RankedDocument `json:"documents"`
	Confidence *float64         `json:"confidence"`
	Emergency  bool             `json:"emergency"`
	Skipped    bool             `json:"skipped"`
}
