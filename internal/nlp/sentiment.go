package nlp

import "strings"

// Sentiment is the coarse emotional tone of one message.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {},
	"love": {}, "like": {}, "best": {}, "awesome": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "hate": {},
	"worst": {}, "awful": {}, "disappointed": {},
}

// EstimateSentiment counts lexicon hits over whitespace-split lowered
// words. Ties, including no hits at all, are neutral.
func EstimateSentiment(message string) Sentiment {
	var positive, negative int
	for _, word := range strings.Fields(strings.ToLower(message)) {
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
