// Package nlp implements the text-understanding stages of the discovery
// pipeline: normalization, intent classification, entity extraction and
// sentiment estimation. Everything here is pure and deterministic.
package nlp

import (
	"strings"
	"unicode"
)

// stopWords is the fixed English stop-word list applied during
// normalization. Removing an entry changes which tokens reach the
// relevance scorer and the preference learner.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves",
		"you", "your", "yours", "yourself", "yourselves",
		"he", "him", "his", "himself", "she", "her", "hers", "herself",
		"it", "its", "itself", "they", "them", "their", "theirs", "themselves",
		"what", "which", "who", "whom", "this", "that", "these", "those",
		"am", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "having", "do", "does", "did", "doing",
		"a", "an", "the", "and", "but", "if", "or", "because", "as",
		"until", "while", "of", "at", "by", "for", "with", "about",
		"against", "between", "into", "through", "during", "before",
		"after", "above", "below", "to", "from", "up", "down", "in",
		"out", "on", "off", "over", "under", "again", "further", "then",
		"once", "here", "there", "when", "where", "why", "how",
		"all", "any", "both", "each", "few", "more", "most", "other",
		"some", "such", "no", "nor", "not", "only", "own", "same",
		"so", "than", "too", "very",
		"s", "t", "can", "will", "just", "don", "should", "now",
		"d", "ll", "m", "o", "re", "ve", "y",
		"ain", "aren", "couldn", "didn", "doesn", "hadn", "hasn",
		"haven", "isn", "ma", "mightn", "mustn", "needn", "shan",
		"shouldn", "wasn", "weren", "won", "wouldn",
	} {
		stopWords[w] = struct{}{}
	}
}

// irregularForms maps irregular plurals to their singular form.
var irregularForms = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"feet":     "foot",
	"teeth":    "tooth",
	"geese":    "goose",
	"mice":     "mouse",
	"people":   "person",
}

// Normalize lowercases and tokenizes text, drops stop-words, lemmatizes
// each token and keeps tokens longer than two characters. It never errors
// and returns a non-nil slice.
func Normalize(text string) []string {
	tokens := tokenize(strings.ToLower(text))

	keywords := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := stopWords[token]; stop {
			continue
		}
		token = lemmatize(token)
		if len(token) > 2 {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// tokenize splits lowered text into runs of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// lemmatize reduces a token to a singular base form using the irregular
// table and a small set of suffix rules.
func lemmatize(token string) string {
	if base, ok := irregularForms[token]; ok {
		return base
	}

	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		// stories -> story
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"):
		// classes -> class
		return token[:len(token)-2]
	case strings.HasSuffix(token, "xes") || strings.HasSuffix(token, "zes") ||
		strings.HasSuffix(token, "ches") || strings.HasSuffix(token, "shes"):
		// boxes -> box, branches -> branch
		return token[:len(token)-2]
	case strings.HasSuffix(token, "s") &&
		!strings.HasSuffix(token, "ss") &&
		!strings.HasSuffix(token, "us") &&
		!strings.HasSuffix(token, "is") &&
		len(token) > 3:
		// books -> book
		return token[:len(token)-1]
	}
	return token
}
