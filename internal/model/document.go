package model

import (
	"sort"
	"strings"
)

type Category string

const (
	CategoryBreastfeeding Category = "breastfeeding"
	CategorySleep         Category = "sleep"
	CategoryPostpartum    Category = "postpartum"
	CategorySafety        Category = "safety"
	CategoryOther         Category = "other"
)

func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryBreastfeeding:
		return CategoryBreastfeeding
	case CategorySleep:
		return CategorySleep
	case CategoryPostpartum:
		return CategoryPostpartum
	case CategorySafety:
		return CategorySafety
	default:
		return CategoryOther
	}
}

type ExtractionMethod string

const (
	ExtractionTextLayer ExtractionMethod = "text-layer"
	ExtractionOCR       ExtractionMethod = "ocr"
	ExtractionFailed    ExtractionMethod = "failed"
)

type SourceChannel string

const (
	ChannelPDFUpload  SourceChannel = "pdf-upload"
	ChannelManualNote SourceChannel = "manual-note"
)

// Tags is a set of normalized tag strings. The comma-joined form only exists
// at the repo edge.
type Tags []string

func NewTags(values ...string) Tags {
	seen := make(map[string]bool, len(values))
	out := make(Tags, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

func (t Tags) Contains(tag string) bool {
	needle := strings.ToLower(strings.TrimSpace(tag))
	for _, v := range t {
		if v == needle {
			return true
		}
	}
	return false
}

func (t Tags) Join() string {
	return strings.Join(t, ",")
}

func SplitTags(joined string) Tags {
	if strings.TrimSpace(joined) == "" {
		return Tags{}
	}
	return NewTags(strings.Split(joined, ",")...)
}

type Document struct {
	ID                   string           `json:"id"`
	Title                string           `json:"title"`
	Category             Category         `json:"category"`
	Tags                 Tags             `json:"tags"`
	Summary              string           `json:"summary"`
	Content              string           `json:"content"`
	SourceAuthority      bool             `json:"source_authority"`
	SourceChannel        SourceChannel    `json:"source_channel"`
	ExtractionMethod     ExtractionMethod `json:"extraction_method"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	PageCount            int              `json:"page_count"`
	FileKey              string           `json:"file_key"`
	IsActive             bool             `json:"is_active"`
	Ctime                int64            `json:"ctime"`
	Mtime                int64            `json:"mtime"`
}

// Rankable reports whether the document may participate in retrieval.
// Failed extractions have no content to rank on.
func (d *Document) Rankable() bool {
	return d.IsActive && d.ExtractionMethod != ExtractionFailed && d.Content != ""
}
