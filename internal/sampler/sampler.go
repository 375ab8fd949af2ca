// Package sampler drives the repeating, throttled calls into the opaque
// facial-expression detector while a capture session is recording, and
// accumulates results in a bounded buffer.
package sampler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/diaglog"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ring"
)

const (
	// DefaultInterval is the detection cadence: at most one attempt per
	// interval regardless of how often a manual check is requested.
	DefaultInterval = 100 * time.Millisecond
	// DefaultCapacity bounds the in-memory sample buffer.
	DefaultCapacity = 1000
)

// FrameSource yields the current video frame.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// Detector is the opaque expression model: given a frame it returns a
// possibly-empty set of labelled confidence scores.
type Detector interface {
	Detect(ctx context.Context, frame []byte) (map[string]float64, error)
}

// Sampler owns the detection loop and the bounded sample buffer. One
// Sampler serves one capture session at a time.
type Sampler struct {
	detector Detector
	logs     *diaglog.Store
	now      func() time.Time

	mu       sync.Mutex
	buf      *ring.Buffer[domain.SentimentSample]
	lastFire time.Time
	interval time.Duration
	source   FrameSource
	running  bool

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New constructs a Sampler. A nil clock falls back to time.Now.
func New(detector Detector, logs *diaglog.Store, now func() time.Time) *Sampler {
	if now == nil {
		now = time.Now
	}
	return &Sampler{detector: detector, logs: logs, now: now}
}

// Start begins the repeating detection timer against source. Capacity bounds
// the sample buffer; non-positive interval and capacity fall back to the
// defaults. Starting an already-running sampler is an error.
func (s *Sampler) Start(ctx context.Context, source FrameSource, interval time.Duration, capacity int) error {
	if source == nil {
		return errors.New("sampler requires a frame source")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("sampler already running")
	}
	s.running = true
	s.source = source
	s.interval = interval
	s.buf = ring.New[domain.SentimentSample](capacity)
	s.lastFire = time.Time{}
	s.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx)

	s.logs.Info("sentiment sampling started", map[string]any{
		"interval_ms": interval.Milliseconds(),
		"capacity":    capacity,
	})
	return nil
}

func (s *Sampler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// Sample performs one manual detection attempt. Inside the throttle window,
// or while a previous invocation is still in flight, the attempt is a
// logged no-op; it is never queued.
func (s *Sampler) Sample(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logs.Warn("sample requested while sampler stopped", nil)
		return
	}
	if since := s.now().Sub(s.lastFire); !s.lastFire.IsZero() && since < s.interval {
		s.mu.Unlock()
		s.logs.Warn("sample skipped: throttled", map[string]any{
			"since_last_ms": since.Milliseconds(),
			"interval_ms":   s.interval.Milliseconds(),
		})
		return
	}
	s.mu.Unlock()
	s.fire(ctx)
}

// fire performs a single detection attempt. Overlapping invocations are
// skipped, never queued: a slow detection still running when the next tick
// arrives causes that tick to be dropped with a warning.
func (s *Sampler) fire(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logs.Warn("sample skipped: previous detection still in flight", nil)
		return
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	s.lastFire = s.now()
	source := s.source
	s.mu.Unlock()

	frame, err := source.Frame(ctx)
	if err != nil {
		s.logs.Warn("frame capture failed", map[string]any{"error": err.Error()})
		return
	}
	scores, err := s.detector.Detect(ctx, frame)
	if err != nil {
		s.logs.Warn("detection attempt failed", map[string]any{"error": err.Error()})
		return
	}
	if len(scores) == 0 {
		s.logs.Warn("detection returned no expressions", nil)
		return
	}

	sample := domain.SentimentSample{
		TimestampMs: s.now().UnixMilli(),
		Expressions: scores,
	}
	s.mu.Lock()
	if s.buf != nil {
		s.buf.Append(sample)
	}
	s.mu.Unlock()
}

// Stop cancels the repeating timer and waits for the loop to exit. A firing
// already in flight lands its sample; no new firing begins after Stop
// returns. The buffer stays intact for Drain.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.logs.Info("sentiment sampling stopped", map[string]any{"samples": s.Len()})
}

// Drain returns the accumulated samples in chronological order and empties
// the buffer. A second call returns an empty slice.
func (s *Sampler) Drain() []domain.SentimentSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return nil
	}
	items := s.buf.Items()
	s.buf.Reset()
	return items
}

// Len reports the number of buffered samples.
func (s *Sampler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return 0
	}
	return s.buf.Len()
}
