package domain

// SentimentSample is one detector reading taken during an active capture
// session: a timestamp and the labelled confidence scores the expression
// model reported for that frame.
type SentimentSample struct {
	TimestampMs int64              `json:"timestampMs"`
	Expressions map[string]float64 `json:"expressions"`
}
