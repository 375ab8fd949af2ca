package domain

import "time"

// Recording is one consolidated capture record as persisted by the ingest
// service.
type Recording struct {
	ID              string
	ParticipantID   string
	DurationSeconds float64
	DurationSource  string
	DurationValid   bool
	VideoPath       string
	VideoBytes      int64
	SampleCount     int
	CreatedAt       time.Time
}

// RecordingEcho is the validation echo returned to the uploading agent: the
// stored identity plus the server-side re-validation verdict on the
// submitted duration.
type RecordingEcho struct {
	ID              string  `json:"id"`
	ParticipantID   string  `json:"userId"`
	DurationSeconds float64 `json:"duration"`
	DurationValid   bool    `json:"durationValid"`
	DurationError   string  `json:"durationError,omitempty"`
	SampleCount     int     `json:"sampleCount"`
}
