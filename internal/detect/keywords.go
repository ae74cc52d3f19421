package detect

import "strings"

// Matcher finds configured keywords in free-form case text. It is an
// interface so the substring scan can later be swapped for tokenized
// or stemmed matching without touching the detectors.
type Matcher interface {
	// Match returns the keywords found in text, lowercased, in
	// keyword-list order, without duplicates.
	Match(text string) []string
}

// SubstringMatcher matches case-insensitively on raw substring
// containment: "LAWSUIT pending" matches the keyword "lawsuit".
type SubstringMatcher struct {
	keywords []string
}

// NewSubstringMatcher builds a matcher over keywords. Keywords are
// lowercased once here; empty entries are dropped.
func NewSubstringMatcher(keywords []string) *SubstringMatcher {
	cleaned := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		cleaned = append(cleaned, kw)
	}
	return &SubstringMatcher{keywords: cleaned}
}

func (m *SubstringMatcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	var matched []string
	for _, kw := range m.keywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
