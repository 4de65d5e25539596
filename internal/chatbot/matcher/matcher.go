package matcher

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MatchStatus represents the status of a match operation
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// Item is an orderable product with matching metadata.
type Item struct {
	ID       uuid.UUID
	Name     string
	Keywords string // CSV like "teh,manis"; the name's words are always keywords
}

// MatchResult contains the result of a matching operation
type MatchResult struct {
	Status     MatchStatus
	Item       *Item  // when Matched
	Candidates []Item // when Ambiguous
}

// Matcher matches chat descriptions against product names by keyword.
type Matcher struct {
	items    []Item
	names    []string   // normalized names
	keywords [][]string // pre-tokenized keywords per item
}

const (
	variantWeight = 5
	regularWeight = 1
)

// Words that tell two versions of a dish apart. When the customer says
// one, the product must carry it too.
var variantKeywords = map[string]bool{
	"es":       true,
	"panas":    true,
	"hangat":   true,
	"dingin":   true,
	"pedas":    true,
	"original": true,
	"jumbo":    true,
	"besar":    true,
	"kecil":    true,
	"spesial":  true,
}

// New creates a new Matcher with pre-tokenized keywords
func New(items []Item) *Matcher {
	m := &Matcher{
		items:    items,
		names:    make([]string, len(items)),
		keywords: make([][]string, len(items)),
	}

	for i, item := range items {
		m.names[i] = normalize(item.Name)

		seen := map[string]bool{}
		var kws []string
		add := func(kw string) {
			if kw != "" && !seen[kw] {
				seen[kw] = true
				kws = append(kws, kw)
			}
		}
		for _, tok := range tokenize(m.names[i]) {
			add(tok)
		}
		for _, part := range strings.Split(item.Keywords, ",") {
			add(normalize(part))
		}
		m.keywords[i] = kws
	}

	return m
}

// Match resolves text to a single item. An exact name match always wins;
// otherwise the items with the highest keyword score are returned.
func (m *Matcher) Match(text string) MatchResult {
	normalized := normalize(text)
	if normalized == "" {
		return MatchResult{Status: Unmatched}
	}

	for i, name := range m.names {
		if name == normalized {
			return MatchResult{Status: Matched, Item: &m.items[i]}
		}
	}

	inputTokens := make(map[string]bool)
	inputVariants := make(map[string]bool)
	for _, tok := range tokenize(normalized) {
		inputTokens[tok] = true
		if variantKeywords[tok] {
			inputVariants[tok] = true
		}
	}

	maxScore := 0
	var topScorers []Item

	for i, item := range m.items {
		keywords := m.keywords[i]

		// Hard filter: if input contains variant keywords, candidate MUST have them
		if !hasAll(keywords, inputVariants) {
			continue
		}

		score, regular := 0, 0
		for _, kw := range keywords {
			if inputTokens[kw] {
				if variantKeywords[kw] {
					score += variantWeight
				} else {
					score += regularWeight
					regular++
				}
			}
		}

		switch {
		case regular == 0:
			// a variant word alone names no dish
		case score > maxScore:
			maxScore = score
			topScorers = []Item{item}
		case score == maxScore:
			topScorers = append(topScorers, item)
		}
	}

	switch len(topScorers) {
	case 0:
		return MatchResult{Status: Unmatched}
	case 1:
		return MatchResult{Status: Matched, Item: &topScorers[0]}
	}
	return MatchResult{Status: Ambiguous, Candidates: topScorers}
}

func hasAll(keywords []string, want map[string]bool) bool {
	for w := range want {
		found := false
		for _, kw := range keywords {
			if kw == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize converts a string to lowercase and replaces non-alphanumeric chars with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func tokenize(s string) []string {
	return strings.Fields(s)
}
