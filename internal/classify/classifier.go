// Package classify gates retrieval. It decides whether an incoming message
// needs domain retrieval at all, whether it only needs emotional support, and
// whether it describes a medical emergency.
package classify

import "strings"

type Classification struct {
	IsDomainQuery   bool `json:"is_domain_query"`
	IsPureEmotional bool `json:"is_pure_emotional"`
}

type Config struct {
	DomainKeywords      []string
	QuestionPatterns    []string
	EmotionalPhrases    []string
	QuestionMarkers     []string
	EmergencyKeywords   []string
	EmergencyExclusions []string
}

type Classifier struct {
	domainKeywords      []string
	questionPatterns    []string
	emotionalPhrases    []string
	questionMarkers     map[string]bool
	emergencyKeywords   []string
	emergencyExclusions []string
}

func New(cfg Config) *Classifier {
	markers := make(map[string]bool)
	for _, m := range withDefaults(cfg.QuestionMarkers, defaultQuestionMarkers) {
		markers[strings.ToLower(m)] = true
	}
	return &Classifier{
		domainKeywords:      lowered(withDefaults(cfg.DomainKeywords, defaultDomainKeywords)),
		questionPatterns:    lowered(withDefaults(cfg.QuestionPatterns, defaultQuestionPatterns)),
		emotionalPhrases:    lowered(withDefaults(cfg.EmotionalPhrases, defaultEmotionalPhrases)),
		questionMarkers:     markers,
		emergencyKeywords:   lowered(withDefaults(cfg.EmergencyKeywords, defaultEmergencyKeywords)),
		emergencyExclusions: lowered(withDefaults(cfg.EmergencyExclusions, defaultEmergencyExclusions)),
	}
}

// Classify applies purely additive keyword matching; the only negation is the
// emotional-phrase gate. A message that needs empathy rather than facts must
// not drag clinical content into the model's context.
func (c *Classifier) Classify(text string) Classification {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return Classification{}
	}

	emotional := containsAny(query, c.emotionalPhrases)
	pureEmotional := emotional && !c.hasQuestionMarker(query)
	domain := !pureEmotional &&
		(containsAny(query, c.domainKeywords) || containsAny(query, c.questionPatterns))

	return Classification{
		IsDomainQuery:   domain,
		IsPureEmotional: pureEmotional,
	}
}

// IsEmergency checks the exclusion list first: product and document titles can
// contain emergency-adjacent substrings ("30 Day Breastfeeding Blueprint"),
// and exclusion always wins over a keyword match.
func (c *Classifier) IsEmergency(text string) bool {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return false
	}
	if containsAny(query, c.emergencyExclusions) {
		return false
	}
	return containsAny(query, c.emergencyKeywords)
}

func (c *Classifier) hasQuestionMarker(query string) bool {
	if strings.Contains(query, "?") {
		return true
	}
	for _, word := range strings.FieldsFunc(query, isWordBreak) {
		if c.questionMarkers[word] {
			return true
		}
	}
	return false
}

func isWordBreak(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '.' || r == '!' || r == ';' || r == ':'
}

func containsAny(query string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(query, phrase) {
			return true
		}
	}
	return false
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func withDefaults(values, defaults []string) []string {
	if len(values) > 0 {
		return values
	}
	return defaults
}
