package detector

import (
	"context"
	"math"
	"sync/atomic"
)

// Synthetic is a deterministic in-process detector for dry runs. It emits a
// slowly oscillating score profile so downstream plots look plausible
// without a camera or model present.
type Synthetic struct {
	calls atomic.Int64
}

// NewSynthetic returns a Synthetic detector.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Detect returns a deterministic score set derived from the call count. It
// ignores the frame contents.
func (s *Synthetic) Detect(_ context.Context, _ []byte) (map[string]float64, error) {
	n := float64(s.calls.Add(1))
	phase := math.Sin(n / 10)
	return map[string]float64{
		"neutral":   clamp01(0.6 - 0.2*phase),
		"happy":     clamp01(0.25 + 0.2*phase),
		"surprised": clamp01(0.1 + 0.05*math.Cos(n/7)),
		"sad":       0.05,
	}, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
