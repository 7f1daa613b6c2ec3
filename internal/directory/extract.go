package directory

import (
	"regexp"
	"strings"
	"unicode"
)

// stopWords are excluded from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "why": true, "how": true, "your": true,
	"you": true, "me": true, "my": true, "our": true, "we": true, "us": true,
	"i": true, "he": true, "she": true, "it": true, "they": true, "them": true,
	"this": true, "that": true, "these": true, "those": true, "to": true,
	"for": true, "with": true, "by": true, "at": true, "on": true, "in": true,
	"of": true, "about": true, "as": true, "if": true, "then": true,
	"than": true, "so": true, "because": true, "can": true, "could": true,
	"would": true, "should": true, "will": true, "shall": true, "may": true,
	"might": true,
}

// generalKeywords mark a question as "general" (FAQ-first) rather than a
// person lookup.
var generalKeywords = []string{
	"what", "when", "where", "why", "how", "can", "could", "would", "should",
	"hours", "time", "open", "close", "location", "address", "contact",
	"phone", "email", "price", "cost", "service", "support", "help",
	"business", "work", "operating", "available", "hour", "schedule", "timing",
}

var (
	wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

	// namePatterns match "who is alice", "tell me about bob smith" style questions.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:who is|who's|tell me about|what does|what is)\s+([a-zA-Z\s]+?)(?:'s)?\s*[?.!]*$`),
		regexp.MustCompile(`^([a-zA-Z\s]+?)(?:'s)?\s*(?:profile|info|bio|role)\s*[?.!]*$`),
	}
)

// ExtractKeywords returns the distinct non-stop-words of at least 3 letters
// from the question, lowercased. Order is not guaranteed.
func ExtractKeywords(question string) []string {
	words := wordPattern.FindAllString(strings.ToLower(question), -1)
	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// ExtractName pulls a probable person name out of a question.
// Tries "who is X" style patterns first, then falls back to capitalized words
// in the original text. Returns "" when no plausible name is found.
func ExtractName(question string) string {
	lower := strings.ToLower(strings.TrimSpace(question))

	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) > 2 {
				return name
			}
		}
	}

	// Fallback: capitalized words in the original question ("Is Alice around?")
	var capitalized []string
	for _, w := range strings.Fields(strings.TrimSpace(question)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if w == "" {
			continue
		}
		if unicode.IsUpper([]rune(w)[0]) {
			capitalized = append(capitalized, strings.ToLower(w))
		}
	}
	// The leading word of a sentence is capitalized by convention, not as a
	// name. Only trust capitals beyond the first word.
	if len(capitalized) > 0 && !strings.EqualFold(capitalized[0], firstWord(question)) {
		return strings.Join(capitalized, " ")
	}
	if len(capitalized) > 1 {
		return strings.Join(capitalized[1:], " ")
	}
	return ""
}

func firstWord(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool { return !unicode.IsLetter(r) })
}

// IsGeneralQuestion reports whether the question looks like a general FAQ
// query (hours, pricing, contact info) rather than a person lookup.
func IsGeneralQuestion(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range generalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
