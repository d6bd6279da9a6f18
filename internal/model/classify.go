package model

// Classification is the result of analyzing a single raw message.
// PatternID is empty when no pattern matched above the confidence floor.
type Classification struct {
	RawText           string
	Type              MessageType
	PatternID         string
	Sentiment         Sentiment
	MatchedKeywords   []string
	Confidence        float64
	HasUrgencyMarkers bool
}
