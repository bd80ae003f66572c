package severity

import "strings"

// DefaultKeywords are the emergency-indicating phrases the classifier
// matches against. The list is a fixed constant of the deployment, not
// something learned or derived at runtime.
var DefaultKeywords = []string{
	"chest pain", "difficulty breathing", "severe headache", "stroke",
	"heart attack", "unconscious", "high fever", "severe bleeding",
	"allergic reaction", "anaphylaxis", "sudden numbness", "slurred speech",
}

// Classifier flags queries that describe potentially acute symptoms.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier over the given phrases, lowered
// once up front. With no phrases it uses DefaultKeywords.
func NewClassifier(keywords ...string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Classifier{keywords: lowered}
}

// IsSevere reports whether the query contains any emergency phrase.
// Case-insensitive substring match; pure, no state.
func (c *Classifier) IsSevere(query string) bool {
	q := strings.ToLower(query)
	for _, k := range c.keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
