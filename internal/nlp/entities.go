package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceRange is an extracted price constraint. Single-bound phrasings
// ("under 20") set Max only.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Entities holds structured facts extracted from one message.
type Entities struct {
	PriceRange    *PriceRange `json:"price_range"`
	Category      *string     `json:"category"`
	Author        *string     `json:"author"`
	SpecificTerms []string    `json:"specific_terms"`
}

// pricePhrases are tried in order; the first structural match wins.
// Single-bound forms accept an optional currency symbol ("under $20").
var pricePhrases = compileAll(
	`under \$?(\d+)`,
	`less than \$?(\d+)`,
	`below \$?(\d+)`,
	`(\d+) to (\d+)`,
	`between (\d+) and (\d+)`,
)

type categoryMapping struct {
	keyword  string
	category string
}

// categoryTable is scanned in declaration order; the first keyword found
// in the message decides the category.
var categoryTable = []categoryMapping{
	{"fiction", "Fiction"},
	{"textbook", "Education"},
	{"history", "History"},
	{"science", "Science"},
	{"biography", "Biography"},
	{"novel", "Fiction"},
	{"academic", "Education"},
}

var authorPattern = regexp.MustCompile(`(?i)by\s+([A-Za-z\s]+)`)

// ExtractEntities pulls a price range, a category and an author mention
// out of a raw message. It never errors; absent entities stay nil.
func ExtractEntities(message string) Entities {
	entities := Entities{SpecificTerms: []string{}}
	lowered := strings.ToLower(message)

	for _, p := range pricePhrases {
		match := p.FindStringSubmatch(lowered)
		if match == nil {
			continue
		}
		if len(match) == 2 {
			max := mustParsePrice(match[1])
			entities.PriceRange = &PriceRange{Max: &max}
		} else {
			min := mustParsePrice(match[1])
			max := mustParsePrice(match[2])
			entities.PriceRange = &PriceRange{Min: &min, Max: &max}
		}
		break
	}

	for _, m := range categoryTable {
		if strings.Contains(lowered, m.keyword) {
			category := m.category
			entities.Category = &category
			break
		}
	}

	if match := authorPattern.FindStringSubmatch(message); match != nil {
		author := strings.TrimSpace(match[1])
		entities.Author = &author
	}

	return entities
}

func mustParsePrice(digits string) float64 {
	n, _ := strconv.Atoi(digits)
	return float64(n)
}
