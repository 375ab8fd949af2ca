package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// SyntheticDevice produces an in-memory stream for dry runs and tests: no
// camera, no permissions, deterministic frames.
type SyntheticDevice struct{}

// NewSyntheticDevice returns a SyntheticDevice.
func NewSyntheticDevice() *SyntheticDevice { return &SyntheticDevice{} }

// Acquire returns a synthetic stream. Constraints are accepted as-is; a
// synthetic source can always satisfy them.
func (d *SyntheticDevice) Acquire(_ context.Context, c Constraints) (Stream, error) {
	return &syntheticStream{
		tracks: []Track{&syntheticTrack{kind: "video"}},
		width:  c.MinWidth,
		height: c.MinHeight,
	}, nil
}

type syntheticStream struct {
	mu     sync.Mutex
	tracks []Track
	width  int
	height int
	frame  int
}

func (s *syntheticStream) Tracks() []Track { return s.tracks }

func (s *syntheticStream) Frame(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame++
	return []byte(fmt.Sprintf("frame-%dx%d-%d", s.width, s.height, s.frame)), nil
}

type syntheticTrack struct {
	mu      sync.Mutex
	kind    string
	stopped bool
}

func (t *syntheticTrack) Kind() string { return t.kind }

func (t *syntheticTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// SyntheticRecorder accumulates frame markers into a fake payload until the
// recording is stopped.
type SyntheticRecorder struct{}

// NewSyntheticRecorder returns a SyntheticRecorder.
func NewSyntheticRecorder() *SyntheticRecorder { return &SyntheticRecorder{} }

// Begin starts a synthetic recording on stream.
func (r *SyntheticRecorder) Begin(stream Stream) (Recording, error) {
	return &syntheticRecording{stream: stream, started: time.Now()}, nil
}

type syntheticRecording struct {
	stream  Stream
	started time.Time
}

// Stop flushes the synthetic recording: a small payload stamped with the
// elapsed wall time.
func (r *syntheticRecording) Stop(context.Context) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "synthetic-webm elapsed=%s", time.Since(r.started).Round(time.Millisecond))
	return buf.Bytes(), nil
}
