// Package duration turns possibly-missing, possibly-contradictory recording
// time signals into one validated duration. It never fails: out-of-range and
// absent inputs clamp to the nearest bound so an upload can always proceed.
package duration

import (
	"fmt"
	"math"
	"time"
)

// Source identifies which signal produced a reconciled duration.
type Source string

const (
	SourceRecording Source = "recording"
	SourceElement   Source = "element"
	SourceFallback  Source = "fallback"
)

const (
	// DefaultMinSeconds is the smallest duration ever reported.
	DefaultMinSeconds = 0.1
	// DefaultMaxSeconds caps a single recording at one hour.
	DefaultMaxSeconds = 3600.0
	// DefaultDecimalPlaces bounds the precision of reported seconds.
	DefaultDecimalPlaces = 3
)

// Options configures validation bounds.
type Options struct {
	MinSeconds    float64
	MaxSeconds    float64
	DecimalPlaces int
}

func (o Options) withDefaults() Options {
	if o.MinSeconds <= 0 {
		o.MinSeconds = DefaultMinSeconds
	}
	if o.MaxSeconds <= 0 {
		o.MaxSeconds = DefaultMaxSeconds
	}
	if o.DecimalPlaces <= 0 {
		o.DecimalPlaces = DefaultDecimalPlaces
	}
	return o
}

// Validated is the outcome of bounds-checking one candidate value.
type Validated struct {
	Seconds float64
	Valid   bool
	Err     string
}

// Result is the reconciled duration attached to an upload.
type Result struct {
	Seconds float64
	Valid   bool
	Source  Source
	Err     string
}

// DecimalString renders the seconds as the decimal string carried by the
// upload payload.
func (r Result) DecimalString() string {
	return fmt.Sprintf("%g", r.Seconds)
}

// Reconciler selects one trustworthy duration from candidate signals.
type Reconciler struct {
	opts Options
	now  func() time.Time
}

// NewReconciler constructs a Reconciler. A nil clock falls back to time.Now.
func NewReconciler(opts Options, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{opts: opts.withDefaults(), now: now}
}

// Validate clamps seconds into the configured bounds. A nil pointer and
// non-finite values are invalid and clamp to the minimum; in-range values
// are rounded half-away-from-zero to the configured decimal places.
func (r *Reconciler) Validate(seconds *float64) Validated {
	o := r.opts
	if seconds == nil {
		return Validated{Seconds: o.MinSeconds, Err: "duration is not set"}
	}
	v := *seconds
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Validated{Seconds: o.MinSeconds, Err: "duration is not a number"}
	}
	if v < o.MinSeconds {
		return Validated{
			Seconds: o.MinSeconds,
			Err:     fmt.Sprintf("duration %g below minimum %g", v, o.MinSeconds),
		}
	}
	if v > o.MaxSeconds {
		return Validated{
			Seconds: o.MaxSeconds,
			Err:     fmt.Sprintf("duration %g above maximum %g", v, o.MaxSeconds),
		}
	}
	return Validated{Seconds: round(v, o.DecimalPlaces), Valid: true}
}

// Reconcile picks the best available duration signal. Recording marks win
// when they validate; the playback element's reported seconds are the
// secondary signal; with neither usable the result degrades to the minimum
// valid duration with Valid=false rather than failing the caller.
//
// A stop mark earlier than the start mark yields a negative elapsed time,
// which fails validation through the below-minimum branch; corrupted
// timestamps are not a distinct error class.
func (r *Reconciler) Reconcile(start, stop *time.Time, elementSeconds *float64) Result {
	if start != nil {
		end := r.now()
		if stop != nil {
			end = *stop
		}
		elapsed := end.Sub(*start).Seconds()
		if v := r.Validate(&elapsed); v.Valid {
			return Result{Seconds: v.Seconds, Valid: true, Source: SourceRecording}
		}
	}
	if elementSeconds != nil && *elementSeconds > 0 {
		if v := r.Validate(elementSeconds); v.Valid {
			return Result{Seconds: v.Seconds, Valid: true, Source: SourceElement}
		}
	}
	return Result{
		Seconds: r.opts.MinSeconds,
		Source:  SourceFallback,
		Err:     "no valid duration source available",
	}
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
