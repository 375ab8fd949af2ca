package duration

import (
	"math"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

func TestValidateClampsBelowMinimum(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	for _, in := range []float64{0, 0.05, -1, -30000} {
		v := r.Validate(ptr(in))
		if v.Valid {
			t.Fatalf("expected %g to be invalid", in)
		}
		if v.Seconds != DefaultMinSeconds {
			t.Fatalf("expected clamp to %g for input %g, got %g", DefaultMinSeconds, in, v.Seconds)
		}
		if v.Err == "" {
			t.Fatalf("expected a diagnostic for input %g", in)
		}
	}
}

func TestValidateClampsAboveMaximum(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	v := r.Validate(ptr(3600.5))
	if v.Valid {
		t.Fatalf("expected above-maximum value to be invalid")
	}
	if v.Seconds != DefaultMaxSeconds {
		t.Fatalf("expected clamp to %g, got %g", DefaultMaxSeconds, v.Seconds)
	}
}

func TestValidateAcceptsAndRoundsInRange(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	cases := []struct {
		in   float64
		want float64
	}{
		{0.1, 0.1},
		{22.5, 22.5},
		{30.00049, 30.0},
		{30.0006, 30.001},
		{3600, 3600},
	}
	for _, tc := range cases {
		v := r.Validate(ptr(tc.in))
		if !v.Valid {
			t.Fatalf("expected %g to be valid, got error %q", tc.in, v.Err)
		}
		if v.Seconds != tc.want {
			t.Fatalf("expected %g rounded to %g, got %g", tc.in, tc.want, v.Seconds)
		}
	}
}

func TestValidateRejectsMissingAndNonNumeric(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	for name, in := range map[string]*float64{
		"nil":          nil,
		"nan":          ptr(math.NaN()),
		"positive inf": ptr(math.Inf(1)),
		"negative inf": ptr(math.Inf(-1)),
	} {
		v := r.Validate(in)
		if v.Valid {
			t.Fatalf("%s: expected invalid", name)
		}
		if v.Seconds != DefaultMinSeconds {
			t.Fatalf("%s: expected clamp to minimum, got %g", name, v.Seconds)
		}
	}
}

func TestValidateHonoursCustomBounds(t *testing.T) {
	r := NewReconciler(Options{MinSeconds: 1, MaxSeconds: 10, DecimalPlaces: 1}, nil)
	if v := r.Validate(ptr(0.5)); v.Valid || v.Seconds != 1 {
		t.Fatalf("expected clamp to custom minimum, got %+v", v)
	}
	if v := r.Validate(ptr(11.0)); v.Valid || v.Seconds != 10 {
		t.Fatalf("expected clamp to custom maximum, got %+v", v)
	}
	if v := r.Validate(ptr(5.55)); !v.Valid || v.Seconds != 5.6 {
		t.Fatalf("expected 5.55 rounded to 5.6, got %+v", v)
	}
}

func TestReconcilePrefersRecordingMarks(t *testing.T) {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := NewReconciler(Options{}, fixedClock(base))
	start := base
	stop := base.Add(30 * time.Second)

	res := r.Reconcile(&start, &stop, ptr(22.5))
	if !res.Valid || res.Source != SourceRecording {
		t.Fatalf("expected valid recording result, got %+v", res)
	}
	if res.Seconds != 30 {
		t.Fatalf("expected 30 seconds, got %g", res.Seconds)
	}
	if res.DecimalString() != "30" {
		t.Fatalf("expected decimal string 30, got %q", res.DecimalString())
	}
}

func TestReconcileUsesClockWhenStopMissing(t *testing.T) {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := NewReconciler(Options{}, fixedClock(base.Add(12*time.Second)))
	start := base

	res := r.Reconcile(&start, nil, nil)
	if !res.Valid || res.Source != SourceRecording {
		t.Fatalf("expected recording source, got %+v", res)
	}
	if res.Seconds != 12 {
		t.Fatalf("expected 12 seconds, got %g", res.Seconds)
	}
}

func TestReconcileFallsBackToElementSeconds(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	res := r.Reconcile(nil, nil, ptr(22.5))
	if !res.Valid || res.Source != SourceElement {
		t.Fatalf("expected valid element result, got %+v", res)
	}
	if res.Seconds != 22.5 {
		t.Fatalf("expected 22.5 seconds, got %g", res.Seconds)
	}
	if res.DecimalString() != "22.5" {
		t.Fatalf("expected decimal string 22.5, got %q", res.DecimalString())
	}
}

func TestReconcileZeroElementDegradesToFallback(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	res := r.Reconcile(nil, nil, ptr(0.0))
	if res.Valid || res.Source != SourceFallback {
		t.Fatalf("expected fallback result, got %+v", res)
	}
	if res.Seconds != DefaultMinSeconds {
		t.Fatalf("expected minimum duration, got %g", res.Seconds)
	}
	if res.Err != "no valid duration source available" {
		t.Fatalf("unexpected diagnostic %q", res.Err)
	}
}

func TestReconcileStopBeforeStartDegradesToFallback(t *testing.T) {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := NewReconciler(Options{}, fixedClock(base))
	start := base.Add(30 * time.Second)
	stop := base

	res := r.Reconcile(&start, &stop, nil)
	if res.Valid || res.Source != SourceFallback {
		t.Fatalf("expected fallback for corrupted marks, got %+v", res)
	}
	if res.Seconds != DefaultMinSeconds {
		t.Fatalf("expected minimum duration, got %g", res.Seconds)
	}
}

func TestReconcileInvalidMarksFallThroughToElement(t *testing.T) {
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := NewReconciler(Options{}, fixedClock(base))
	start := base.Add(30 * time.Second)
	stop := base

	res := r.Reconcile(&start, &stop, ptr(22.5))
	if !res.Valid || res.Source != SourceElement {
		t.Fatalf("expected element fallback, got %+v", res)
	}
	if res.Seconds != 22.5 {
		t.Fatalf("expected 22.5 seconds, got %g", res.Seconds)
	}
}

func TestReconcileNoSources(t *testing.T) {
	r := NewReconciler(Options{}, nil)
	res := r.Reconcile(nil, nil, nil)
	if res.Valid || res.Source != SourceFallback || res.Seconds != DefaultMinSeconds {
		t.Fatalf("expected fallback minimum, got %+v", res)
	}
}
