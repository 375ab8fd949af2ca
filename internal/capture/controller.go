package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/diaglog"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/duration"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/sampler"
)

// State is the controller's lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// ErrNotRecording is returned when Stop is requested outside the active
// phase.
var ErrNotRecording = errors.New("capture session is not recording")

// SessionOptions configures one capture session.
type SessionOptions struct {
	Constraints    Constraints
	SampleInterval time.Duration
	SampleCapacity int
}

// Outcome is the consolidated result of one capture session. It is produced
// on every stop path: even after a mid-recording resource failure the
// duration is reconciled best-effort rather than discarded.
type Outcome struct {
	Duration duration.Result
	Video    []byte
	Samples  []domain.SentimentSample
}

// Controller drives one capture session through
// idle → acquiring → recording → stopping → completed, with aborted
// reachable from any non-completed state. A Controller is single-use per
// session; it is not shared across concurrent sessions.
type Controller struct {
	device     Device
	recorder   Recorder
	sampler    *sampler.Sampler
	reconciler *duration.Reconciler
	logs       *diaglog.Store
	now        func() time.Time

	mu             sync.Mutex
	state          State
	startMark      *time.Time
	stopMark       *time.Time
	elementSeconds *float64
	stream         Stream
	recording      Recording
}

// NewController constructs a Controller in the idle state. A nil clock
// falls back to time.Now.
func NewController(device Device, recorder Recorder, smp *sampler.Sampler, rec *duration.Reconciler, logs *diaglog.Store, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		device:     device,
		recorder:   recorder,
		sampler:    smp,
		reconciler: rec,
		logs:       logs,
		now:        now,
		state:      StateIdle,
	}
}

// State reports the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetElementTime records the playback element's last reported elapsed
// seconds, the secondary duration signal consulted at stop time.
func (c *Controller) SetElementTime(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elementSeconds = &seconds
}

// Start acquires the device and begins recording and sampling. Acquisition
// failure aborts the session and surfaces a *DeniedError; the controller
// does not retry.
func (c *Controller) Start(ctx context.Context, opts SessionOptions) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("cannot start capture from state %q", c.state)
	}
	c.state = StateAcquiring
	c.mu.Unlock()

	c.logs.Info("acquiring capture device", map[string]any{
		"min_width":  opts.Constraints.MinWidth,
		"min_height": opts.Constraints.MinHeight,
	})

	stream, err := c.device.Acquire(ctx, opts.Constraints)
	if err != nil {
		c.abort("device acquisition failed", err)
		var denied *DeniedError
		if errors.As(err, &denied) {
			return denied
		}
		return &DeniedError{Reason: DeniedNotFound, Err: err}
	}

	recording, err := c.recorder.Begin(stream)
	if err != nil {
		releaseStream(stream)
		c.abort("recorder failed to begin", err)
		return fmt.Errorf("begin recording: %w", err)
	}

	start := c.now()

	c.mu.Lock()
	c.stream = stream
	c.recording = recording
	c.startMark = &start
	c.state = StateRecording
	c.mu.Unlock()

	if err := c.sampler.Start(ctx, stream, opts.SampleInterval, opts.SampleCapacity); err != nil {
		c.logs.Warn("sentiment sampling unavailable for this session", map[string]any{"error": err.Error()})
	}

	c.logs.Info("recording started", nil)
	return nil
}

// Stop ends the active phase: flush the recording, mark the stop time, stop
// the sampler, reconcile the duration and release the device. The device
// release runs on every exit path. The returned Outcome is usable even when
// err is non-nil: a failed flush degrades the duration through the
// reconciler's fallback rules instead of discarding the session.
func (c *Controller) Stop(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		state := c.state
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w (state %q)", ErrNotRecording, state)
	}
	c.state = StateStopping
	recording := c.recording
	stream := c.stream
	c.mu.Unlock()

	defer func() {
		releaseStream(stream)
		c.mu.Lock()
		c.stream = nil
		c.recording = nil
		c.mu.Unlock()
	}()

	video, flushErr := recording.Stop(ctx)
	stop := c.now()

	c.sampler.Stop()
	samples := c.sampler.Drain()

	c.mu.Lock()
	c.stopMark = &stop
	start := c.startMark
	element := c.elementSeconds
	c.mu.Unlock()

	var result duration.Result
	if flushErr != nil {
		c.logs.Error("recording flush failed", flushErr, nil)
		// Without a trustworthy stop mark the element signal is consulted.
		result = c.reconciler.Reconcile(nil, nil, element)
	} else {
		result = c.reconciler.Reconcile(start, &stop, element)
	}
	if !result.Valid {
		c.logs.Warn("duration degraded", map[string]any{
			"source": string(result.Source),
			"error":  result.Err,
		})
	}

	c.mu.Lock()
	c.state = StateCompleted
	c.mu.Unlock()

	c.logs.Info("recording completed", map[string]any{
		"duration_seconds": result.Seconds,
		"duration_source":  string(result.Source),
		"samples":          len(samples),
		"video_bytes":      len(video),
	})

	outcome := Outcome{Duration: result, Video: video, Samples: samples}
	if flushErr != nil {
		return outcome, fmt.Errorf("flush recording: %w", flushErr)
	}
	return outcome, nil
}

// Abort releases whatever resources are held and moves to the aborted
// terminal state. Aborting a completed session is a no-op.
func (c *Controller) Abort(reason string) {
	c.mu.Lock()
	if c.state == StateCompleted || c.state == StateAborted {
		c.mu.Unlock()
		return
	}
	stream := c.stream
	c.stream = nil
	c.recording = nil
	c.state = StateAborted
	c.mu.Unlock()

	c.sampler.Stop()
	releaseStream(stream)
	c.logs.Warn("capture session aborted", map[string]any{"reason": reason})
}

// DiagnosticsJSON snapshots the diagnostic history for the upload payload.
func (c *Controller) DiagnosticsJSON() json.RawMessage {
	raw, err := c.logs.ExportJSON()
	if err != nil {
		return nil
	}
	return raw
}

func (c *Controller) abort(message string, err error) {
	c.mu.Lock()
	c.state = StateAborted
	c.mu.Unlock()
	c.logs.Error(message, err, nil)
}

// releaseStream stops every track of an acquired stream. Safe on nil.
func releaseStream(stream Stream) {
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}
